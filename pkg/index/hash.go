package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// RootHash computes the canonical digest over a set of entries: sort by
// ID, hex-decode each entry hash, and SHA-256 the concatenated raw
// digests. The input slice is not mutated, and any permutation of the
// same entries yields the same result.
func RootHash(entries []Entry) (string, error) {
	sorted := SortedByID(entries)

	h := sha256.New()
	for _, e := range sorted {
		raw, err := hex.DecodeString(e.Hash)
		if err != nil {
			return "", fmt.Errorf("%w: entry %s has invalid hex hash: %v", ErrMalformed, e.ID, err)
		}
		h.Write(raw)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// BlobHash computes the content hash that names a blob in the transport
// layer.
func BlobHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
