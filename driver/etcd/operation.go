package etcd

import (
	"errors"
	"fmt"

	etcd "go.etcd.io/etcd/client/v3"

	"github.com/tarantool/go-typedkv/kv"
)

var errUnsupportedOperationType = errors.New("unsupported operation type")

// operationsToEtcdOps converts operations to etcd operations.
func operationsToEtcdOps(ops []kv.Op) ([]etcd.Op, error) {
	etcdOps := make([]etcd.Op, 0, len(ops))
	for _, op := range ops {
		etcdOp, err := operationToEtcdOp(op)
		if err != nil {
			return nil, err
		}

		etcdOps = append(etcdOps, etcdOp)
	}

	return etcdOps, nil
}

// operationToEtcdOp converts an operation to an etcd operation.
func operationToEtcdOp(op kv.Op) (etcd.Op, error) {
	key := string(op.Key)

	var opts []etcd.OpOption
	if kv.IsPrefix(op.Key) && op.Type != kv.OpPut {
		opts = append(opts, etcd.WithPrefix())
	}

	switch op.Type {
	case kv.OpGet:
		return etcd.OpGet(key, opts...), nil
	case kv.OpPut:
		return etcd.OpPut(key, string(op.Value)), nil
	case kv.OpDelete:
		opts = append(opts, etcd.WithPrevKV())
		return etcd.OpDelete(key, opts...), nil
	default:
		return etcd.Op{}, fmt.Errorf("%w: %v", errUnsupportedOperationType, op.Type)
	}
}

// condsToCmps converts conditions to etcd comparisons. An absent key has a
// ModRevision of zero in etcd, so both kinds of condition map to one comparison.
func condsToCmps(conds []kv.Cond) []etcd.Cmp {
	cmps := make([]etcd.Cmp, 0, len(conds))
	for _, cond := range conds {
		cmps = append(cmps, etcd.Compare(etcd.ModRevision(string(cond.Key)), "=", cond.ModRevision))
	}

	return cmps
}
