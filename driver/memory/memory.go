// Package memory provides an in-memory implementation of the storage driver
// interface, used by tests and embedded deployments without a server.
package memory

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/tarantool/go-typedkv/driver"
	"github.com/tarantool/go-typedkv/kv"
)

// Driver keeps every key in a map guarded by a single lock.
type Driver struct {
	mu       sync.RWMutex
	storage  map[string]kv.KeyValue
	revision int64
}

var _ driver.Driver = (*Driver)(nil)

// New creates an empty in-memory driver.
func New() *Driver {
	return &Driver{
		mu:       sync.RWMutex{},
		storage:  make(map[string]kv.KeyValue),
		revision: 1,
	}
}

// Execute implements driver.Driver.
func (d *Driver) Execute(ctx context.Context, conds []kv.Cond, ops []kv.Op) (kv.Response, error) {
	if err := ctx.Err(); err != nil {
		return kv.Response{}, err //nolint:wrapcheck
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.checkConds(conds) {
		return kv.Response{
			Succeeded: false,
			Revision:  d.revision,
			Results:   nil,
		}, nil
	}

	return kv.Response{
		Succeeded: true,
		Results:   d.executeOps(ops),
		Revision:  d.revision,
	}, nil
}

// Len returns the number of stored keys.
func (d *Driver) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.storage)
}

func (d *Driver) checkConds(conds []kv.Cond) bool {
	for _, cond := range conds {
		stored, exists := d.storage[string(cond.Key)]
		if !cond.Holds(stored, exists) {
			return false
		}
	}

	return true
}

func (d *Driver) getAllByPrefix(prefix string) []kv.KeyValue {
	var values []kv.KeyValue

	for k, v := range d.storage {
		if strings.HasPrefix(k, prefix) {
			values = append(values, v)
		}
	}

	slices.SortFunc(values, func(a, b kv.KeyValue) int {
		return bytes.Compare(a.Key, b.Key)
	})

	return values
}

func (d *Driver) lookup(key []byte) []kv.KeyValue {
	if kv.IsPrefix(key) {
		return d.getAllByPrefix(string(key))
	}

	if val, ok := d.storage[string(key)]; ok {
		return []kv.KeyValue{val}
	}

	return nil
}

// executeOps applies ops under the write lock. All writes of one transaction
// share the next revision.
func (d *Driver) executeOps(ops []kv.Op) []kv.Result {
	results := make([]kv.Result, 0, len(ops))
	next := d.revision + 1
	mutated := false

	for _, op := range ops {
		switch op.Type {
		case kv.OpPut:
			d.storage[string(op.Key)] = kv.KeyValue{
				Key:         bytes.Clone(op.Key),
				Value:       bytes.Clone(op.Value),
				ModRevision: next,
			}
			mutated = true

			results = append(results, kv.Result{Values: nil})
		case kv.OpDelete:
			values := d.lookup(op.Key)
			for _, v := range values {
				delete(d.storage, string(v.Key))
			}

			mutated = mutated || len(values) > 0

			results = append(results, kv.Result{Values: values})
		case kv.OpGet:
			results = append(results, kv.Result{Values: d.lookup(op.Key)})
		}
	}

	if mutated {
		d.revision = next
	}

	return results
}
