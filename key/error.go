package key

import (
	"errors"
	"fmt"
)

var (
	// ErrNilKey is returned when a nil value (or nil pointer) is used as a key.
	ErrNilKey = errors.New("nil key")
	// ErrUnsupportedType is returned when a value of an unsupported type is used as a key.
	ErrUnsupportedType = errors.New("unsupported key type")
	// ErrTypeMismatch is returned when a key value has another type than the key it targets.
	ErrTypeMismatch = errors.New("key type mismatch")
)

// EncodingError represents a failure to turn an input value into canonical key bytes.
type EncodingError struct {
	// Type is the Go type of the rejected value, "<nil>" for nil.
	Type   string
	parent error
}

func errEncoding(value any, parent error) error {
	return &EncodingError{
		Type:   fmt.Sprintf("%T", value),
		parent: parent,
	}
}

// Error returns a string representation of the encoding error.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode key of type %s: %s", e.Type, e.parent)
}

// Unwrap returns the underlying reason of the encoding failure.
func (e *EncodingError) Unwrap() error {
	return e.parent
}
