package typedkv

import (
	"errors"
	"fmt"

	"github.com/tarantool/go-typedkv/key"
	"github.com/tarantool/go-typedkv/model"
	"github.com/tarantool/go-typedkv/schema"
)

var (
	// ErrAlreadyExists is returned when a record with the same primary key is stored.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrNotFound is returned when a record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a concurrent writer changed a record read by the
	// transaction. Nothing is written and no event is emitted.
	ErrConflict = errors.New("transaction conflict")
	// ErrModelNotDefined is returned for record types no model was defined for.
	ErrModelNotDefined = model.ErrNotDefined
	// ErrTxDone is returned by any call on a committed or aborted transaction.
	ErrTxDone = errors.New("transaction is already committed or aborted")
	// ErrNilDriver is returned by New without a driver.
	ErrNilDriver = errors.New("driver is nil")
	// ErrEmptyKey is returned for records whose primary key encodes to no bytes.
	ErrEmptyKey = errors.New("empty primary key")
)

// RecordError describes a failed operation on one record.
type RecordError struct {
	Table string
	Key   key.Key
	Err   error
}

// Error returns a string representation of the error.
func (e *RecordError) Error() string {
	return fmt.Sprintf("%s[%s]: %s", e.Table, e.Key, e.Err)
}

// Unwrap returns the cause.
func (e *RecordError) Unwrap() error {
	return e.Err
}

func errRecord(table schema.Table, k key.Key, err error) error {
	return &RecordError{Table: table.Name(), Key: k, Err: err}
}
