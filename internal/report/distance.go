package report

import (
	"errors"

	"github.com/glaslos/tlsh"

	"github.com/busforge/busforge/pkg/types"
)

// tlshMinBytes is the minimum content size TLSH needs for a stable hash.
const tlshMinBytes = 50

// ErrStreamTooSmall is returned when a tensor's byte stream is too
// small for TLSH computation.
var ErrStreamTooSmall = errors.New("report: bit stream too small for TLSH distance")

// Distance computes the TLSH distance between the baseline tensor's
// bit stream and an anomalous one. It is an evaluation aid recorded in
// the manifest: a rough measure of how far a transform moved the
// traffic. 0 means near-identical streams.
func Distance(baseline, anomalous types.Tensor) (int, error) {
	bh, err := hashTensor(baseline)
	if err != nil {
		return -1, err
	}
	ah, err := hashTensor(anomalous)
	if err != nil {
		return -1, err
	}
	return bh.Diff(ah), nil
}

// hashTensor packs the flattened bit stream 8 bits per byte, MSB
// first, before hashing. TLSH needs the full byte alphabet: a stream
// of '0'/'1' characters has too little bucket variance and the hash
// computation rejects it.
func hashTensor(t types.Tensor) (*tlsh.TLSH, error) {
	n, p, w := t.Shape()
	stream := make([]byte, (n*p*w+7)/8)
	idx := 0
	for _, seq := range t {
		for _, word := range seq {
			for _, bit := range word {
				if bit != 0 {
					stream[idx/8] |= 1 << uint(7-idx%8)
				}
				idx++
			}
		}
	}
	if len(stream) < tlshMinBytes {
		return nil, ErrStreamTooSmall
	}
	return tlsh.HashBytes(stream)
}
