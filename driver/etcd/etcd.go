// Package etcd provides an etcd implementation of the storage driver interface.
// It enables using etcd as a distributed key-value storage backend.
package etcd

import (
	"context"
	"fmt"

	"go.etcd.io/etcd/api/v3/mvccpb"
	etcd "go.etcd.io/etcd/client/v3"

	"github.com/tarantool/go-typedkv/driver"
	"github.com/tarantool/go-typedkv/kv"
)

// Client defines the minimal interface needed for etcd operations.
// This allows for easier testing and mock implementations.
type Client interface {
	// Txn creates a new transaction.
	Txn(ctx context.Context) etcd.Txn
}

// Driver is an etcd implementation of the storage driver interface.
type Driver struct {
	client Client
}

var _ driver.Driver = &Driver{} //nolint:exhaustruct

// New creates a new etcd driver instance using an existing etcd client.
// The client should be properly configured and connected to an etcd cluster.
func New(client Client) *Driver {
	return &Driver{client: client}
}

// Execute implements driver.Driver with a single etcd transaction: the conditions
// become ModRevision comparisons and the operations its Then branch.
func (d Driver) Execute(ctx context.Context, conds []kv.Cond, ops []kv.Op) (kv.Response, error) {
	etcdOps, err := operationsToEtcdOps(ops)
	if err != nil {
		return kv.Response{}, fmt.Errorf("failed to convert operations: %w", err)
	}

	resp, err := d.client.Txn(ctx).
		If(condsToCmps(conds)...).
		Then(etcdOps...).
		Commit()
	if err != nil {
		return kv.Response{}, fmt.Errorf("transaction failed: %w", err)
	}

	return etcdResponseToResponse(resp), nil
}

func toKeyValues(kvs []*mvccpb.KeyValue) []kv.KeyValue {
	var values []kv.KeyValue

	for _, etcdKv := range kvs {
		values = append(values, kv.KeyValue{
			Key:         etcdKv.Key,
			Value:       etcdKv.Value,
			ModRevision: etcdKv.ModRevision,
		})
	}

	return values
}

// etcdResponseToResponse converts an etcd transaction response to kv.Response.
func etcdResponseToResponse(resp *etcd.TxnResponse) kv.Response {
	var revision int64
	if resp.Header != nil {
		revision = resp.Header.Revision
	}

	if !resp.Succeeded {
		return kv.Response{Succeeded: false, Revision: revision, Results: nil}
	}

	results := make([]kv.Result, 0, len(resp.Responses))

	for _, etcdResp := range resp.Responses {
		var values []kv.KeyValue

		switch {
		case etcdResp.GetResponseRange() != nil:
			values = toKeyValues(etcdResp.GetResponseRange().Kvs)
		case etcdResp.GetResponsePut() != nil:
			// Put operations don't return data.
		case etcdResp.GetResponseDeleteRange() != nil:
			values = toKeyValues(etcdResp.GetResponseDeleteRange().PrevKvs)
		}

		results = append(results, kv.Result{Values: values})
	}

	return kv.Response{
		Succeeded: true,
		Revision:  revision,
		Results:   results,
	}
}
