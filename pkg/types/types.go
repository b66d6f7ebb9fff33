// Package types defines common data structures shared across BusForge components.
package types

import "fmt"

// Word is one fixed-width binary message payload, stored one bit per byte
// with values 0 or 1. A Word is never mutated in place by the anomaly
// generators; they always work on copies.
type Word []byte

// Clone returns an independent copy of the word.
func (w Word) Clone() Word {
	c := make(Word, len(w))
	copy(c, w)
	return c
}

// Sequence is a fixed-length ordered window of Words.
type Sequence []Word

// Tensor is the 3-D collection of all Sequences under analysis, with
// shape (N sequences, P words per sequence, W bits per word).
type Tensor []Sequence

// N returns the number of sequences.
func (t Tensor) N() int { return len(t) }

// P returns the number of words per sequence.
func (t Tensor) P() int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0])
}

// W returns the number of bits per word.
func (t Tensor) W() int {
	if len(t) == 0 || len(t[0]) == 0 {
		return 0
	}
	return len(t[0][0])
}

// Shape returns (N, P, W).
func (t Tensor) Shape() (int, int, int) { return t.N(), t.P(), t.W() }

// Validate checks that every sequence holds P words and every word holds
// W bits. Transforms call this on their input before touching it.
func (t Tensor) Validate() error {
	p, w := t.P(), t.W()
	for i, seq := range t {
		if len(seq) != p {
			return fmt.Errorf("ragged tensor: sequence %d has %d words, want %d", i, len(seq), p)
		}
		for j, word := range seq {
			if len(word) != w {
				return fmt.Errorf("ragged tensor: word (%d,%d) has %d bits, want %d", i, j, len(word), w)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the tensor.
func (t Tensor) Clone() Tensor {
	c := make(Tensor, len(t))
	for i, seq := range t {
		cs := make(Sequence, len(seq))
		for j, word := range seq {
			cs[j] = word.Clone()
		}
		c[i] = cs
	}
	return c
}

// Flatten returns the words of the tensor as one row-major list
// (sequence-major, then word order). The returned words are copies.
func (t Tensor) Flatten() []Word {
	rows := make([]Word, 0, t.N()*t.P())
	for _, seq := range t {
		for _, word := range seq {
			rows = append(rows, word.Clone())
		}
	}
	return rows
}

// Reshape builds a tensor of shape (n, p) from a flat row-major word
// list. The rows are used as-is, not copied.
func Reshape(rows []Word, n, p int) Tensor {
	t := make(Tensor, n)
	for i := 0; i < n; i++ {
		t[i] = Sequence(rows[i*p : (i+1)*p])
	}
	return t
}

// FieldType classifies what kind of signal a bit-field carries.
type FieldType int

const (
	FieldConst      FieldType = iota // every bit constant across observed traffic
	FieldMultiValue                  // small discrete value set
	FieldSensor                      // continuously varying reading
)

// String returns the classification-file spelling of the field type.
func (ft FieldType) String() string {
	switch ft {
	case FieldConst:
		return "CONST"
	case FieldMultiValue:
		return "MULTI-VALUE"
	case FieldSensor:
		return "SENSOR"
	default:
		return "UNKNOWN"
	}
}

// ParseFieldType parses the classification-file spelling of a field type.
func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "CONST":
		return FieldConst, nil
	case "MULTI-VALUE":
		return FieldMultiValue, nil
	case "SENSOR":
		return FieldSensor, nil
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

// Variability is the field category used for anomaly targeting.
type Variability int

const (
	HighVar Variability = iota + 1
	MidVar
	LowVar
)

// String returns the classification-file spelling of the category.
func (v Variability) String() string {
	switch v {
	case HighVar:
		return "HIGH_VAR"
	case MidVar:
		return "MID_VAR"
	case LowVar:
		return "LOW_VAR"
	default:
		return "UNKNOWN"
	}
}

// ParseVariability parses the classification-file spelling of a category.
func ParseVariability(s string) (Variability, error) {
	switch s {
	case "HIGH_VAR":
		return HighVar, nil
	case "MID_VAR":
		return MidVar, nil
	case "LOW_VAR":
		return LowVar, nil
	}
	return 0, fmt.Errorf("unknown variability category %q", s)
}

// Field describes one bit-range within a Word. A field of Length L spans
// the inclusive range [StartBit, StartBit+L], i.e. L+1 bits. The
// inclusive convention is deliberate and used consistently everywhere.
type Field struct {
	StartBit int
	Length   int
	Type     FieldType
	Category Variability
	NValues  int // observed value cardinality, informational
}

// StrategyKind enumerates the closed set of field mutation strategies.
type StrategyKind int

const (
	StrategyMax StrategyKind = iota
	StrategyMin
	StrategyRandomConstant
	StrategyRandomValue
	StrategyReplay
)

// String returns the config-file spelling of the strategy kind.
func (k StrategyKind) String() string {
	switch k {
	case StrategyMax:
		return "max"
	case StrategyMin:
		return "min"
	case StrategyRandomConstant:
		return "random_constant"
	case StrategyRandomValue:
		return "random_value"
	case StrategyReplay:
		return "replay"
	default:
		return "unknown"
	}
}

// ParseStrategyKind parses the config-file spelling of a strategy kind.
func ParseStrategyKind(s string) (StrategyKind, error) {
	switch s {
	case "max":
		return StrategyMax, nil
	case "min":
		return StrategyMin, nil
	case "random_constant":
		return StrategyRandomConstant, nil
	case "random_value":
		return StrategyRandomValue, nil
	case "replay":
		return StrategyReplay, nil
	}
	return 0, fmt.Errorf("unknown mutation strategy %q", s)
}

// Record is one decoded traffic record: a message identifier plus the
// payload bits, in arrival order within its source.
type Record struct {
	Timestamp float64
	ID        string
	DLC       int
	Bits      string // fixed-width binary-string payload, DLC*8 characters
}
