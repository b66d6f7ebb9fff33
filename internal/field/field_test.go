package field

import (
	"errors"
	"testing"

	"github.com/busforge/busforge/pkg/types"
)

func word(bits ...byte) types.Word {
	return types.Word(bits)
}

func TestFindConstantBits(t *testing.T) {
	base := word(1, 0, 1, 0, 1, 0, 1, 0)
	sample := []types.Word{
		word(1, 0, 1, 0, 1, 0, 1, 0),
		word(1, 0, 0, 0, 1, 0, 1, 0), // bit 2 differs
		nil,                          // absent entry, skipped
		word(1, 0, 1, 0, 1, 1, 1, 0), // bit 5 differs
	}

	mask := FindConstantBits(base, sample, 8)
	want := []bool{true, true, false, true, true, false, true, true}
	for i := range want {
		if mask[i] != want[i] {
			t.Errorf("mask[%d] = %v, want %v", i, mask[i], want[i])
		}
	}
}

func TestFindConstantBitsMonotonic(t *testing.T) {
	base := word(1, 1, 1, 1)
	subset := []types.Word{
		word(1, 1, 1, 1),
		word(1, 0, 1, 1),
	}
	superset := append(append([]types.Word{}, subset...),
		word(1, 1, 0, 1),
		word(1, 1, 1, 1),
	)

	maskSub := FindConstantBits(base, subset, 4)
	maskSuper := FindConstantBits(base, superset, 4)

	// A superset of words can only clear more entries, never restore one.
	for i := range maskSub {
		if maskSuper[i] && !maskSub[i] {
			t.Errorf("bit %d restored by superset scan", i)
		}
	}
}

func TestConstantBitIndicesInclusiveRanges(t *testing.T) {
	fields := []types.Field{
		{StartBit: 0, Length: 2, Type: types.FieldConst},                            // bits 0,1,2
		{StartBit: 4, Length: 0, Type: types.FieldConst},                            // bit 4
		{StartBit: 5, Length: 2, Type: types.FieldSensor, Category: types.HighVar}, // not CONST
	}
	got := ConstantBitIndices(fields)
	want := []int{0, 1, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("indices = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indices = %v, want %v", got, want)
		}
	}
}

func TestRemoveBitsDeletesConstantColumns(t *testing.T) {
	tensor := types.Tensor{
		{word(0, 1, 2, 3, 4, 5, 6, 7), word(10, 11, 12, 13, 14, 15, 16, 17)},
		{word(20, 21, 22, 23, 24, 25, 26, 27), word(30, 31, 32, 33, 34, 35, 36, 37)},
	}
	fields := []types.Field{
		{StartBit: 1, Length: 1, Type: types.FieldConst}, // bits 1,2
		{StartBit: 6, Length: 0, Type: types.FieldConst}, // bit 6
	}

	out := RemoveBits(tensor, fields)
	if out.W() != 5 {
		t.Fatalf("W = %d, want 5", out.W())
	}
	wantBits := []byte{0, 3, 4, 5, 7}
	for k, bit := range wantBits {
		if out[0][0][k] != bit {
			t.Errorf("kept column %d = %d, want %d", k, out[0][0][k], bit)
		}
	}
	// Input untouched.
	if tensor.W() != 8 {
		t.Error("input tensor mutated")
	}
}

func TestRemoveBitsToleratesOverlapAndIsIdempotent(t *testing.T) {
	tensor := types.Tensor{
		{word(0, 1, 2, 3, 4, 5)},
	}
	overlapping := []types.Field{
		{StartBit: 0, Length: 2, Type: types.FieldConst}, // bits 0,1,2
		{StartBit: 2, Length: 1, Type: types.FieldConst}, // bits 2,3 (overlaps at 2)
	}

	once := RemoveBits(tensor, overlapping)
	if once.W() != 2 {
		t.Fatalf("W after removal = %d, want 2 (duplicate index collapsed)", once.W())
	}

	// All named indices are gone, so a second pass over the reduced
	// tensor only drops whatever of bits 0..3 remain positionally.
	twice := RemoveBits(once, nil)
	if twice.W() != once.W() {
		t.Errorf("removal with no CONST fields changed W: %d -> %d", once.W(), twice.W())
	}
}

func TestFieldValues(t *testing.T) {
	fields := []types.Field{
		{StartBit: 0, Length: 3, Type: types.FieldConst},                              // skipped
		{StartBit: 4, Length: 3, Type: types.FieldSensor, Category: types.HighVar},    // bits 4..7
		{StartBit: 8, Length: 1, Type: types.FieldMultiValue, Category: types.MidVar}, // bits 8..9
	}
	bits := "1111" + "1010" + "11" + "00"

	values, err := FieldValues(fields, bits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("got %d values, want 2", len(values))
	}
	if values[0] != 0b1010 {
		t.Errorf("values[0] = %d, want %d", values[0], 0b1010)
	}
	if values[1] != 0b11 {
		t.Errorf("values[1] = %d, want %d", values[1], 0b11)
	}
}

func TestFieldValuesRejectsRangePastPayload(t *testing.T) {
	fields := []types.Field{
		// Inclusive range [6,9] overruns an 8-bit payload.
		{StartBit: 6, Length: 3, Type: types.FieldSensor, Category: types.HighVar},
	}
	_, err := FieldValues(fields, "10101010")
	if !errors.Is(err, ErrFieldPastPayload) {
		t.Fatalf("error = %v, want ErrFieldPastPayload", err)
	}
}
