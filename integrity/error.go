package integrity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrHashMismatch is returned when a stored digest does not match the payload.
	ErrHashMismatch = errors.New("hash mismatch")
	// ErrHashMissing is returned when a configured hasher has no stored digest.
	ErrHashMissing = errors.New("hash not verified (missing)")
	// ErrSignatureFailed is returned when signature verification fails.
	ErrSignatureFailed = errors.New("signature verification failed")
	// ErrSignatureMissing is returned when a configured verifier has no stored signature.
	ErrSignatureMissing = errors.New("signature not verified (missing)")
	// ErrMalformedEnvelope is returned when stored bytes are not a protected record.
	ErrMalformedEnvelope = errors.New("malformed integrity envelope")
)

// ValidationError describes one failed check of a protected record.
type ValidationError struct {
	// Property is the hasher or verifier name.
	Property string
	Err      error
}

// Error returns a string representation of the validation error.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%q: %s", e.Property, e.Err)
}

// Unwrap returns the cause of the failed check.
func (e ValidationError) Unwrap() error {
	return e.Err
}

type hashMismatchDetailError struct {
	expected []byte
	got      []byte
}

func (h hashMismatchDetailError) Error() string {
	return fmt.Sprintf("expected %s, got %s", hex.EncodeToString(h.expected), hex.EncodeToString(h.got))
}

func (h hashMismatchDetailError) Unwrap() error {
	return ErrHashMismatch
}

func errHashMismatch(hasherName string, expected, got []byte) error {
	return ValidationError{
		Property: hasherName,
		Err:      hashMismatchDetailError{expected: expected, got: got},
	}
}

// AggregatedError collects every failed check of one record.
type AggregatedError struct {
	parent []error
}

// Unwrap returns the underlying slice of errors.
func (e *AggregatedError) Unwrap() []error {
	return e.parent
}

// Append adds an error to the aggregated error.
func (e *AggregatedError) Append(err error) {
	if err != nil {
		e.parent = append(e.parent, err)
	}
}

// Error returns a string representation of the aggregated error.
func (e *AggregatedError) Error() string {
	switch len(e.parent) {
	case 0:
		return ""
	case 1:
		return e.parent[0].Error()
	default:
		errStrings := make([]string, 0, len(e.parent))
		for _, p := range e.parent {
			errStrings = append(errStrings, p.Error())
		}

		return "aggregated error: " + strings.Join(errStrings, ", ")
	}
}

// Finalize returns nil if there are no errors, otherwise returns error or the aggregated error.
func (e *AggregatedError) Finalize() error {
	switch len(e.parent) {
	case 0:
		return nil
	case 1:
		return e.parent[0]
	default:
		return e
	}
}
