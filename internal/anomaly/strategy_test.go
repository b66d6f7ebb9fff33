package anomaly

import (
	"math/rand"
	"testing"

	"github.com/busforge/busforge/pkg/types"
)

func testField() types.Field {
	// Length 3 spans the inclusive bit range [8, 11].
	return types.Field{StartBit: 8, Length: 3, Type: types.FieldSensor, Category: types.HighVar}
}

func patternWord(w int) types.Word {
	word := make(types.Word, w)
	for i := range word {
		word[i] = byte(i % 2)
	}
	return word
}

// checkOutsideField asserts every bit outside the field's inclusive
// range is identical between in and out.
func checkOutsideField(t *testing.T, f types.Field, in, out types.Word) {
	t.Helper()
	for i := range in {
		if i >= f.StartBit && i <= f.StartBit+f.Length {
			continue
		}
		if in[i] != out[i] {
			t.Errorf("bit %d outside field changed: %d -> %d", i, in[i], out[i])
		}
	}
}

func TestStrategiesLeaveOutsideBitsUntouched(t *testing.T) {
	f := testField()
	word := patternWord(16)
	donor := patternWord(16)
	for i := range donor {
		donor[i] = 1 - donor[i]
	}
	rng := rand.New(rand.NewSource(7))

	for _, kind := range AllStrategyKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			s := NewStrategy(kind, rng)
			s.Reset()
			out := s.Apply(f, word, donor)
			checkOutsideField(t, f, word, out)
			if &out[0] == &word[0] {
				t.Error("strategy returned the input word, want a copy")
			}
		})
	}
}

func TestMaxStrategySetsFieldToOnes(t *testing.T) {
	f := testField()
	s := NewStrategy(types.StrategyMax, nil)
	out := s.Apply(f, make(types.Word, 16), nil)
	for i := f.StartBit; i <= f.StartBit+f.Length; i++ {
		if out[i] != 1 {
			t.Errorf("bit %d = %d, want 1", i, out[i])
		}
	}
	if s.Label() != LabelMaxValue {
		t.Errorf("label = %q, want %q", s.Label(), LabelMaxValue)
	}
}

func TestMinStrategySetsFieldToZeros(t *testing.T) {
	f := testField()
	word := make(types.Word, 16)
	for i := range word {
		word[i] = 1
	}
	s := NewStrategy(types.StrategyMin, nil)
	out := s.Apply(f, word, nil)
	for i := f.StartBit; i <= f.StartBit+f.Length; i++ {
		if out[i] != 0 {
			t.Errorf("bit %d = %d, want 0", i, out[i])
		}
	}
	if s.Label() != LabelMinValue {
		t.Errorf("label = %q, want %q", s.Label(), LabelMinValue)
	}
}

func TestRandomConstantReusesDrawWithinSession(t *testing.T) {
	f := testField()
	rng := rand.New(rand.NewSource(11))
	s := NewStrategy(types.StrategyRandomConstant, rng)
	s.Reset()

	first := s.Apply(f, make(types.Word, 16), nil)
	second := s.Apply(f, patternWord(16), nil)

	// The same constant lands in every word of the session. Only Length
	// bits are written; the final bit of the inclusive range is left as
	// it was.
	for i := 0; i < f.Length; i++ {
		if first[f.StartBit+i] != second[f.StartBit+i] {
			t.Errorf("constant bit %d differs between words in one session", i)
		}
	}
}

func TestRandomConstantWritesOnlyLengthBits(t *testing.T) {
	f := testField()
	rng := rand.New(rand.NewSource(3))
	s := NewStrategy(types.StrategyRandomConstant, rng)
	s.Reset()

	word := patternWord(16)
	out := s.Apply(f, word, nil)
	last := f.StartBit + f.Length
	if out[last] != word[last] {
		t.Errorf("bit %d written, random constant must write only %d bits", last, f.Length)
	}
}

func TestRandomValueWritesFullInclusiveRange(t *testing.T) {
	f := testField()
	rng := rand.New(rand.NewSource(5))
	s := NewStrategy(types.StrategyRandomValue, rng)

	// With all-2 sentinel bits any written position becomes 0 or 1.
	word := make(types.Word, 16)
	for i := range word {
		word[i] = 2
	}
	out := s.Apply(f, word, nil)
	for i := f.StartBit; i <= f.StartBit+f.Length; i++ {
		if out[i] > 1 {
			t.Errorf("bit %d not written", i)
		}
	}
	checkOutsideField(t, f, word, out)
}

func TestReplayCopiesDonorFieldBits(t *testing.T) {
	f := testField()
	donor := patternWord(16)
	s := NewStrategy(types.StrategyReplay, nil)
	out := s.Apply(f, make(types.Word, 16), donor)
	for i := f.StartBit; i <= f.StartBit+f.Length; i++ {
		if out[i] != donor[i] {
			t.Errorf("bit %d = %d, want donor's %d", i, out[i], donor[i])
		}
	}
	if s.Label() != LabelReplayField {
		t.Errorf("label = %q, want %q", s.Label(), LabelReplayField)
	}
}

func TestDefaultRegistryHoldsClosedSet(t *testing.T) {
	reg := DefaultRegistry(rand.New(rand.NewSource(1)))

	names := reg.Names()
	want := []string{"max", "min", "random_constant", "random_value", "replay"}
	if len(names) != len(want) {
		t.Fatalf("registry holds %d strategies, want %d", len(names), len(want))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("names[%d] = %q, want %q", i, names[i], name)
		}
		if _, ok := reg.Get(name); !ok {
			t.Errorf("strategy %q not registered", name)
		}
	}
	if _, ok := reg.Get("bitflip"); ok {
		t.Error("unknown strategy resolved")
	}
}
