package archive

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher is the injected integrity capability. Environments without one
// fail loudly with ErrIntegrityUnavailable instead of emitting fake digests.
type Hasher interface {
	Algorithm() string
	SumHex(data []byte) string
}

type sha256Hasher struct{}

// NewSHA256 returns the standard SHA-256 hasher.
func NewSHA256() Hasher {
	return sha256Hasher{}
}

func (sha256Hasher) Algorithm() string {
	return "SHA-256"
}

func (sha256Hasher) SumHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
