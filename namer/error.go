package namer

import (
	"errors"
	"fmt"
)

// ErrInvalidKey is returned when a storage key does not follow the record key layout.
var ErrInvalidKey = errors.New("invalid key")

// InvalidKeyError represents an error for invalid key format.
type InvalidKeyError struct {
	Key     string
	Problem string
}

func (e InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key '%s': %s", e.Key, e.Problem)
}

// Unwrap returns ErrInvalidKey.
func (e InvalidKeyError) Unwrap() error {
	return ErrInvalidKey
}

func errInvalidKey(key string, problem string) error {
	return InvalidKeyError{
		Key:     key,
		Problem: problem,
	}
}
