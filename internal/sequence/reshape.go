// Package sequence turns flat, time-ordered binary word streams into the
// 3-D tensors the anomaly generators consume, via fixed-duration
// non-overlapping windowing.
package sequence

import (
	"errors"
	"fmt"

	"github.com/busforge/busforge/pkg/types"
)

var (
	// ErrRaggedWords is returned when the input words do not all share
	// one bit width. This is a fatal contract violation: reshaping a
	// ragged stream would silently corrupt every window after the first
	// mismatch.
	ErrRaggedWords = errors.New("sequence: input words have unequal bit lengths")

	// ErrBadWindow is returned when the sampling period and duration do
	// not yield at least one word per window.
	ErrBadWindow = errors.New("sequence: window shorter than one sampling period")
)

// WordFromBits converts a binary-string payload into a Word.
func WordFromBits(bits string) (types.Word, error) {
	w := make(types.Word, len(bits))
	for i := 0; i < len(bits); i++ {
		switch bits[i] {
		case '0':
			w[i] = 0
		case '1':
			w[i] = 1
		default:
			return nil, fmt.Errorf("sequence: bit %d is %q, want '0' or '1'", i, bits[i])
		}
	}
	return w, nil
}

// Reshape windows an ordered binary word stream into a tensor of shape
// (split, P, W) where P = floor(duration/samplingPeriod) and
// split = floor(len(words)/P). Any trailing words that do not fill a
// complete window are discarded; the discard count is returned so
// callers can account for the lost coverage. The truncation is a
// deliberate, lossy policy, not an error.
func Reshape(words []string, samplingPeriod, duration float64) (types.Tensor, int, error) {
	p := int(duration / samplingPeriod)
	if p <= 0 {
		return nil, 0, ErrBadWindow
	}
	if len(words) == 0 {
		return types.Tensor{}, 0, nil
	}

	width := len(words[0])
	rows := make([]types.Word, len(words))
	for i, bits := range words {
		if len(bits) != width {
			return nil, 0, fmt.Errorf("%w: word %d has %d bits, want %d", ErrRaggedWords, i, len(bits), width)
		}
		w, err := WordFromBits(bits)
		if err != nil {
			return nil, 0, err
		}
		rows[i] = w
	}

	split := len(rows) / p
	kept := split * p
	discarded := len(rows) - kept

	return types.Reshape(rows[:kept], split, p), discarded, nil
}
