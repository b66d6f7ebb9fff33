// Package field implements the bit-field model for CAN message words:
// constant-bit detection, constant-column removal, and field value
// extraction. Field lists themselves are built once per identifier by
// the classification collaborator and are immutable here.
package field

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/busforge/busforge/pkg/types"
)

// ErrFieldPastPayload is returned when a field's inclusive bit range
// extends beyond the payload it is read from.
var ErrFieldPastPayload = errors.New("field: bit range exceeds payload width")

// FindConstantBits builds a constant-bit mask for a sample of words.
// The mask starts all true and an entry is cleared as soon as any
// sampled word's bit differs from the base word at that position.
// Clearing is monotonic within one scan: constancy is only ever
// revoked, never restored. Nil words in the sample are skipped.
func FindConstantBits(base types.Word, sample []types.Word, wordLen int) []bool {
	mask := make([]bool, wordLen)
	for i := range mask {
		mask[i] = true
	}
	for _, word := range sample {
		if word == nil {
			continue
		}
		for bit := len(word) - 1; bit >= 0; bit-- {
			if base[bit] != word[bit] {
				mask[bit] = false
			}
		}
	}
	return mask
}

// ConstantBitIndices expands every CONST field into its full inclusive
// bit range and returns the indices in field-list order. Fields are
// assumed non-overlapping; overlapping CONST fields yield duplicate
// indices, which RemoveBits tolerates.
func ConstantBitIndices(fields []types.Field) []int {
	var indices []int
	for _, f := range fields {
		if f.Type != types.FieldConst {
			continue
		}
		for bit := f.StartBit; bit <= f.StartBit+f.Length; bit++ {
			indices = append(indices, bit)
		}
	}
	return indices
}

// RemoveBits deletes every constant bit column from the tensor along
// the bit axis only. Deletion is by index set, so duplicate indices
// from overlapping CONST fields collapse and a second application over
// the already-reduced tensor removes nothing further.
func RemoveBits(t types.Tensor, fields []types.Field) types.Tensor {
	w := t.W()
	drop := make([]bool, w)
	kept := w
	for _, idx := range ConstantBitIndices(fields) {
		if idx >= 0 && idx < w && !drop[idx] {
			drop[idx] = true
			kept--
		}
	}

	out := make(types.Tensor, len(t))
	for i, seq := range t {
		os := make(types.Sequence, len(seq))
		for j, word := range seq {
			ow := make(types.Word, 0, kept)
			for bit, v := range word {
				if !drop[bit] {
					ow = append(ow, v)
				}
			}
			os[j] = ow
		}
		out[i] = os
	}
	return out
}

// FieldValues slices each non-CONST field's bit range out of a word's
// binary-string payload and parses it as an unsigned integer. Order
// follows the input field list, not bit position.
func FieldValues(fields []types.Field, bits string) ([]uint64, error) {
	var values []uint64
	for _, f := range fields {
		if f.Type == types.FieldConst {
			continue
		}
		end := f.StartBit + f.Length + 1
		if f.StartBit < 0 || end > len(bits) {
			return nil, fmt.Errorf("%w: field [%d,%d], payload %d bits",
				ErrFieldPastPayload, f.StartBit, f.StartBit+f.Length, len(bits))
		}
		v, err := strconv.ParseUint(bits[f.StartBit:end], 2, 64)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
