package anomaly

import (
	"math/rand"
	"sync"

	"github.com/busforge/busforge/pkg/types"
)

// Labels attached to field anomaly outputs, one per strategy.
const (
	LabelMaxValue      = "max_value"
	LabelMinValue      = "min_value"
	LabelConstantValue = "constant_value"
	LabelRandomValue   = "random_value"
	LabelReplayField   = "replay_field"
)

// Strategy is one word-mutation strategy of the closed set. Apply
// rewrites the target field's bits on a copy of the word and returns
// it; bits outside the field are left untouched. The donor word is
// only consulted by the replay strategy and may be nil otherwise.
//
// Reset clears any state a strategy carries across words within one
// engine invocation. The engine calls it at the start of every
// invocation so nothing leaks between unrelated sessions.
type Strategy interface {
	// Name returns the config-file spelling of the strategy
	Name() string

	// Label returns the dataset label emitted for this strategy
	Label() string

	// Kind returns the StrategyKind constant for this strategy
	Kind() types.StrategyKind

	// Apply rewrites the field's bit range on a copy of the word
	Apply(f types.Field, w types.Word, donor types.Word) types.Word

	// Reset clears per-invocation state
	Reset()
}

// NewStrategy builds the strategy for a kind. Strategies that draw
// random bits share the injected source so a run is reproducible by
// seed.
func NewStrategy(kind types.StrategyKind, rng *rand.Rand) Strategy {
	switch kind {
	case types.StrategyMax:
		return &maxStrategy{}
	case types.StrategyMin:
		return &minStrategy{}
	case types.StrategyRandomConstant:
		return &randomConstantStrategy{rng: rng}
	case types.StrategyRandomValue:
		return &randomValueStrategy{rng: rng}
	case types.StrategyReplay:
		return &replayStrategy{}
	default:
		return nil
	}
}

// AllStrategyKinds lists the closed strategy set in a stable order.
func AllStrategyKinds() []types.StrategyKind {
	return []types.StrategyKind{
		types.StrategyMax,
		types.StrategyMin,
		types.StrategyRandomConstant,
		types.StrategyRandomValue,
		types.StrategyReplay,
	}
}

// randomBits draws n bits, one per byte, each uniformly 0 or 1.
func randomBits(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Intn(2))
	}
	return b
}

// --- max: every bit in the field range set to 1 ---

type maxStrategy struct{}

func (*maxStrategy) Name() string             { return types.StrategyMax.String() }
func (*maxStrategy) Label() string            { return LabelMaxValue }
func (*maxStrategy) Kind() types.StrategyKind { return types.StrategyMax }
func (*maxStrategy) Reset()                   {}

func (*maxStrategy) Apply(f types.Field, w types.Word, _ types.Word) types.Word {
	out := w.Clone()
	for i := 0; i <= f.Length; i++ {
		out[f.StartBit+i] = 1
	}
	return out
}

// --- min: every bit in the field range set to 0 ---

type minStrategy struct{}

func (*minStrategy) Name() string             { return types.StrategyMin.String() }
func (*minStrategy) Label() string            { return LabelMinValue }
func (*minStrategy) Kind() types.StrategyKind { return types.StrategyMin }
func (*minStrategy) Reset()                   {}

func (*minStrategy) Apply(f types.Field, w types.Word, _ types.Word) types.Word {
	out := w.Clone()
	for i := 0; i <= f.Length; i++ {
		out[f.StartBit+i] = 0
	}
	return out
}

// --- random constant: one value drawn per invocation, reused for every word ---

// randomConstantStrategy draws Length+2 bits on first use and writes
// the first Length of them into every affected word. The draw size and
// write count intentionally differ from the other strategies; unifying
// them would change the anomaly magnitude.
type randomConstantStrategy struct {
	rng   *rand.Rand
	value []byte
}

func (*randomConstantStrategy) Name() string             { return types.StrategyRandomConstant.String() }
func (*randomConstantStrategy) Label() string            { return LabelConstantValue }
func (*randomConstantStrategy) Kind() types.StrategyKind { return types.StrategyRandomConstant }

func (s *randomConstantStrategy) Reset() { s.value = nil }

func (s *randomConstantStrategy) Apply(f types.Field, w types.Word, _ types.Word) types.Word {
	if s.value == nil {
		s.value = randomBits(s.rng, f.Length+2)
	}
	out := w.Clone()
	for i := 0; i < f.Length; i++ {
		out[f.StartBit+i] = s.value[i]
	}
	return out
}

// --- random value: a fresh draw for every affected word ---

// randomValueStrategy draws Length+2 bits per word and writes Length+1
// of them.
type randomValueStrategy struct {
	rng *rand.Rand
}

func (*randomValueStrategy) Name() string             { return types.StrategyRandomValue.String() }
func (*randomValueStrategy) Label() string            { return LabelRandomValue }
func (*randomValueStrategy) Kind() types.StrategyKind { return types.StrategyRandomValue }
func (*randomValueStrategy) Reset()                   {}

func (s *randomValueStrategy) Apply(f types.Field, w types.Word, _ types.Word) types.Word {
	bits := randomBits(s.rng, f.Length+2)
	out := w.Clone()
	for i := 0; i <= f.Length; i++ {
		out[f.StartBit+i] = bits[i]
	}
	return out
}

// --- replay: field bits substituted from the same position of a donor word ---

type replayStrategy struct{}

func (*replayStrategy) Name() string             { return types.StrategyReplay.String() }
func (*replayStrategy) Label() string            { return LabelReplayField }
func (*replayStrategy) Kind() types.StrategyKind { return types.StrategyReplay }
func (*replayStrategy) Reset()                   {}

func (*replayStrategy) Apply(f types.Field, w types.Word, donor types.Word) types.Word {
	out := w.Clone()
	for i := 0; i <= f.Length; i++ {
		out[f.StartBit+i] = donor[f.StartBit+i]
	}
	return out
}

// --- Registry: named lookup over the strategy set ---

// Registry stores strategies by name in insertion order. The runner
// registers the closed set once and resolves config spellings through
// it.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// DefaultRegistry returns a registry holding all five strategies backed
// by the given random source.
func DefaultRegistry(rng *rand.Rand) *Registry {
	r := NewRegistry()
	for _, kind := range AllStrategyKinds() {
		r.Register(NewStrategy(kind, rng))
	}
	return r
}

// Register adds a strategy to the registry.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.strategies[name]; !exists {
		r.order = append(r.order, name)
	}
	r.strategies[name] = s
}

// Get retrieves a strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.strategies[name]
	return s, ok
}

// Names returns the registered names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
