// Package driver defines the interface for storage driver implementations.
// It provides a common interface for different storage backends like etcd and Tarantool.
package driver

import (
	"context"

	"github.com/tarantool/go-typedkv/kv"
)

// Driver is the interface that storage drivers must implement.
type Driver interface {
	// Execute applies ops atomically if every condition holds. Otherwise nothing
	// is applied and the response reports Succeeded == false. In both cases the
	// response carries the storage revision observed by the transaction.
	Execute(ctx context.Context, conds []kv.Cond, ops []kv.Op) (kv.Response, error)
}
