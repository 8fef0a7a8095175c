// Package options implements the functional options used by the package constructors.
package options

import "fmt"

// Callback mutates an options value of type T.
type Callback[T any] func(*T)

// Validator is implemented by options values that can check their own consistency.
type Validator interface {
	Validate() error
}

// Apply starts from defaults and applies callbacks in order. Nil callbacks are skipped.
func Apply[T any](defaults T, cbs []Callback[T]) T {
	opts := defaults

	for _, cb := range cbs {
		if cb != nil {
			cb(&opts)
		}
	}

	return opts
}

// ApplyValidated is Apply followed by a Validate call on the result.
func ApplyValidated[T Validator](defaults T, cbs []Callback[T]) (T, error) {
	opts := Apply(defaults, cbs)

	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("invalid options: %w", err)
	}

	return opts, nil
}
