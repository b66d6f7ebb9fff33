// Package anomaly implements the sequence/field transformation engine:
// four whole-sequence structural generators and a field-level anomaly
// engine driven by interchangeable word-mutation strategies. Every
// generator validates its input tensor, works on a copy, and returns a
// labeled output tensor; the caller's tensor is never mutated.
package anomaly

import (
	"errors"
	"fmt"

	"github.com/busforge/busforge/pkg/types"
)

// Labels attached to structural anomaly outputs.
const (
	LabelInterleave    = "interleave"
	LabelDiscontinuity = "discontinuity"
	LabelReverse       = "reverse"
	LabelDrop          = "drop"
)

var (
	// ErrOddWordCount is returned by Interleave when the tensor holds an
	// odd number of words. The two halves cannot realign into the
	// original shape after interleaving, so the input is rejected rather
	// than silently truncated or padded.
	ErrOddWordCount = errors.New("anomaly: interleave requires an even total word count")

	// ErrDropTooLong is returned when a drop length does not leave at
	// least one word per sequence.
	ErrDropTooLong = errors.New("anomaly: cannot drop more words than a sequence holds")
)

// Interleave flattens the tensor row-major, splits the word stream in
// half by count, rebuilds it alternating one word from each half
// (x1,y1,x2,y2,...), and reshapes back to the original (N, P, W).
func Interleave(t types.Tensor) (types.Tensor, string, error) {
	if err := t.Validate(); err != nil {
		return nil, "", err
	}
	n, p, _ := t.Shape()
	total := n * p
	if total%2 != 0 {
		return nil, "", fmt.Errorf("%w: got %d words", ErrOddWordCount, total)
	}

	rows := t.Flatten()
	half := total / 2
	first := rows[:half]
	second := rows[total-half:]

	out := make([]types.Word, total)
	for i := 0; i < half; i++ {
		out[2*i] = first[i]
		out[2*i+1] = second[i]
	}
	return types.Reshape(out, n, p), LabelInterleave, nil
}

// Discontinuity replaces the second half of every sequence with the
// second half of a rotating donor sequence, so each output sequence is
// still valid traffic but switches context mid-window. The donor index
// starts at N/2 - 1, advances by one per sequence, and wraps to 0 at N.
// With a single sequence the initial index wraps to the last sequence,
// matching negative-index wraparound in the reference data. Output
// shape equals input shape.
func Discontinuity(t types.Tensor) (types.Tensor, string, error) {
	if err := t.Validate(); err != nil {
		return nil, "", err
	}
	n, p, _ := t.Shape()
	half := p / 2

	out := t.Clone()
	donor := n/2 - 1
	if donor < 0 {
		donor += n
	}
	for i := range out {
		if donor >= n {
			donor = 0
		}
		for j := half; j < p; j++ {
			out[i][j] = t[donor][j].Clone()
		}
		donor++
	}
	return out, LabelDiscontinuity, nil
}

// Reverse fully reverses the flattened word stream viewed through the
// original (N, P) partitioning: output sequence i holds the words of
// input sequence N-1-i in reverse word order. This is not the same as
// reversing words independently within each sequence.
func Reverse(t types.Tensor) (types.Tensor, string, error) {
	if err := t.Validate(); err != nil {
		return nil, "", err
	}
	n, p, _ := t.Shape()

	rows := t.Flatten()
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return types.Reshape(rows, n, p), LabelReverse, nil
}

// Drop removes a contiguous block of words centered on the sequence
// midpoint from every sequence: word indices [P/2 - length/2,
// P/2 + length/2) with integer division, so an odd length removes
// length-1 words. Output shape is (N, P - 2*(length/2), W).
func Drop(t types.Tensor, length int) (types.Tensor, string, error) {
	if err := t.Validate(); err != nil {
		return nil, "", err
	}
	p := t.P()
	if length >= p {
		return nil, "", fmt.Errorf("%w: length %d, sequence length %d", ErrDropTooLong, length, p)
	}

	mid := p / 2
	half := length / 2
	lo, hi := mid-half, mid+half

	out := make(types.Tensor, len(t))
	for i, seq := range t {
		os := make(types.Sequence, 0, p-(hi-lo))
		for j, word := range seq {
			if j >= lo && j < hi {
				continue
			}
			os = append(os, word.Clone())
		}
		out[i] = os
	}
	return out, LabelDrop, nil
}
