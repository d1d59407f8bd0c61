package serialization

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"slices"

	"github.com/born-ml/stochnorm/internal/tensor"
)

// ComputeChecksum computes the SHA-256 of the canonical payload of stateDict.
//
// The payload is, for each name in sorted order: the name, a zero byte, the
// dtype string, a zero byte, the rank and dimensions as uint64 LE and the
// element bit patterns as little-endian words.
func ComputeChecksum(stateDict map[string]*tensor.RawTensor) [32]byte {
	h := sha256.New()
	var word [8]byte

	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		raw := stateDict[name]
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write([]byte(dtypeToString(raw.DType())))
		h.Write([]byte{0})

		shape := raw.Shape()
		binary.LittleEndian.PutUint64(word[:], uint64(len(shape)))
		h.Write(word[:])
		for _, dim := range shape {
			binary.LittleEndian.PutUint64(word[:], uint64(dim)) //nolint:gosec // G115: dims are validated positive
			h.Write(word[:])
		}

		switch raw.DType() {
		case tensor.Float32:
			for _, v := range raw.AsFloat32() {
				binary.LittleEndian.PutUint32(word[:4], math.Float32bits(v))
				h.Write(word[:4])
			}
		case tensor.Float64:
			for _, v := range raw.AsFloat64() {
				binary.LittleEndian.PutUint64(word[:], math.Float64bits(v))
				h.Write(word[:])
			}
		}
	}

	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// ChecksumHex returns ComputeChecksum as a lowercase hex string.
func ChecksumHex(stateDict map[string]*tensor.RawTensor) string {
	sum := ComputeChecksum(stateDict)
	return hex.EncodeToString(sum[:])
}

// ValidateChecksum compares the computed checksum against the stored hex string.
// Returns ErrChecksumMismatch if they don't match.
func ValidateChecksum(stateDict map[string]*tensor.RawTensor, stored string) error {
	if ChecksumHex(stateDict) != stored {
		return ErrChecksumMismatch
	}
	return nil
}
