// Package tkv provides a Tarantool config storage driver implementation.
// It enables using Tarantool as a distributed key-value storage backend.
package tkv

import (
	"context"
	"errors"
	"fmt"

	"github.com/tarantool/go-tarantool/v2"

	"github.com/tarantool/go-typedkv/driver"
	"github.com/tarantool/go-typedkv/kv"
)

// txnFunction is the stored procedure executing config storage transactions.
const txnFunction = "config.storage.txn"

// Driver is a Tarantool implementation of the storage driver interface.
// It uses the config storage of a Tarantool cluster as the key-value backend.
type Driver struct {
	conn tarantool.Doer
}

var (
	_ driver.Driver = &Driver{} //nolint:exhaustruct

	// ErrUnexpectedResponse is returned when the response from tarantool has unexpected format.
	ErrUnexpectedResponse = errors.New("unexpected response from tarantool")
)

// New creates a new Tarantool driver over a connection or a connection pool adapter.
func New(doer tarantool.Doer) *Driver {
	return &Driver{conn: doer}
}

// Execute implements driver.Driver with a single config.storage.txn call.
func (d Driver) Execute(ctx context.Context, conds []kv.Cond, ops []kv.Op) (kv.Response, error) {
	req := tarantool.NewCallRequest(txnFunction).
		Args([]any{newTxnRequest(conds, ops)}).
		Context(ctx)

	var result []txnResponse

	switch err := d.conn.Do(req).GetTyped(&result); {
	case err != nil:
		return kv.Response{}, fmt.Errorf("failed to execute transaction: %w", err)
	case len(result) != 1:
		return kv.Response{}, fmt.Errorf("%w: expected 1 response, got %d", ErrUnexpectedResponse, len(result))
	}

	return result[0].asResponse(), nil
}
