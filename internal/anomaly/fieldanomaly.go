package anomaly

import (
	"errors"
	"fmt"
	"log"
	"math/rand"

	"github.com/busforge/busforge/pkg/types"
)

var (
	// ErrAnomalyTooLong is returned when the run length leaves no legal
	// onset in [P/3, P-words-1].
	ErrAnomalyTooLong = errors.New("anomaly: field anomaly does not fit in the sequence")

	// ErrFieldOutOfRange is returned when the target field's bit range
	// does not fit inside the tensor's word width.
	ErrFieldOutOfRange = errors.New("anomaly: field bit range exceeds word width")
)

// FieldAnomaly rewrites one bit-field over a contiguous run of words in
// every sequence, leaving all other bits byte-identical to the input.
//
// The onset is drawn once, uniformly from [P/3, P-words-1] inclusive,
// and shared by every sequence: the anomaly never starts in the
// earliest third of a window and always fits before its end. Words at
// indices [start, start+words] inclusive are affected, so a run of
// `words` mutates words+1 words per sequence.
//
// The replay strategy sources its donor word from a rotating sequence
// index starting at N/3, advancing once per affected word across all
// sequences and wrapping to 0 at N. The strategy is Reset before use,
// which clears the random-constant cache: the cached constant is scoped
// to a single invocation and must never leak between sessions.
//
// Verbose logs the chosen onset and field geometry; it is a diagnostic
// side channel and has no effect on the output.
func FieldAnomaly(t types.Tensor, f types.Field, words int, strat Strategy, rng *rand.Rand, verbose bool) (types.Tensor, string, error) {
	if err := t.Validate(); err != nil {
		return nil, "", err
	}
	n, p, w := t.Shape()
	if f.StartBit < 0 || f.StartBit+f.Length >= w {
		return nil, "", fmt.Errorf("%w: field [%d,%d], word width %d",
			ErrFieldOutOfRange, f.StartBit, f.StartBit+f.Length, w)
	}

	lo := p / 3
	hi := p - words - 1
	if hi < lo {
		return nil, "", fmt.Errorf("%w: run of %d words in sequence of %d", ErrAnomalyTooLong, words, p)
	}
	start := lo + rng.Intn(hi-lo+1)

	strat.Reset()

	if verbose {
		log.Printf("field anomaly starts at %d, run length %d", start, words)
		log.Printf("target field: start bit %d, length %d", f.StartBit, f.Length)
	}

	out := t.Clone()
	donor := n / 3
	replay := strat.Kind() == types.StrategyReplay

	for i := range t {
		for j := start; j <= start+words; j++ {
			var donorWord types.Word
			if replay {
				donorWord = t[donor][j].Clone()
				donor++
				if donor == n {
					donor = 0
				}
			}
			out[i][j] = strat.Apply(f, t[i][j], donorWord)
		}
	}
	return out, strat.Label(), nil
}
