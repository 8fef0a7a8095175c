// Package hasher computes the digests stored next to integrity protected records.
package hasher

import (
	"crypto/sha1" //nolint:gosec
	"crypto/sha256"
	"errors"
	"fmt"
)

// ErrDataIsNil is returned if the passed data is nil.
var ErrDataIsNil = errors.New("data is nil")

// Hasher computes a digest of a record payload. Implementations are safe for
// concurrent use.
type Hasher interface {
	// Name identifies the algorithm in stored records.
	Name() string
	Hash(data []byte) ([]byte, error)
}

type funcHasher struct {
	name string
	sum  func([]byte) []byte
}

func (h funcHasher) Name() string {
	return h.name
}

func (h funcHasher) Hash(data []byte) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("%s: %w", h.name, ErrDataIsNil)
	}

	return h.sum(data), nil
}

// NewSHA256Hasher returns a SHA-256 hasher.
func NewSHA256Hasher() Hasher {
	return funcHasher{
		name: "sha256",
		sum: func(data []byte) []byte {
			sum := sha256.Sum256(data)
			return sum[:]
		},
	}
}

// NewSHA1Hasher returns a SHA-1 hasher. It is kept for records written by
// older deployments.
func NewSHA1Hasher() Hasher {
	return funcHasher{
		name: "sha1",
		sum: func(data []byte) []byte {
			sum := sha1.Sum(data) //nolint:gosec
			return sum[:]
		},
	}
}
