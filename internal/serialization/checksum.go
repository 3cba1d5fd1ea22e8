package serialization

import (
	"crypto/sha256"
	"fmt"
	"io"
)

// ComputeChecksum hashes a tensor data section held in memory.
func ComputeChecksum(data []byte) [ChecksumSize]byte {
	return sha256.Sum256(data)
}

// ComputeChecksumReader hashes a tensor data section streamed from r, so
// large weight files are never buffered whole.
func ComputeChecksumReader(r io.Reader) (sum [ChecksumSize]byte, err error) {
	h := sha256.New()
	if _, err = io.Copy(h, r); err != nil {
		return sum, fmt.Errorf("hashing tensor data: %w", err)
	}
	h.Sum(sum[:0])
	return sum, nil
}

// ValidateChecksum reports ErrChecksumMismatch when the data section no
// longer matches the digest recorded by the writer.
func ValidateChecksum(computed, stored [ChecksumSize]byte) error {
	if computed == stored {
		return nil
	}
	return fmt.Errorf("%w: stored %x, computed %x", ErrChecksumMismatch, stored[:4], computed[:4])
}
