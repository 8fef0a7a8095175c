package watch_test

import (
	"reflect"
	"time"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-typedkv/key"
	"github.com/tarantool/go-typedkv/schema"
	"github.com/tarantool/go-typedkv/watch"
)

const (
	usersTable  schema.TableID = 1
	ordersTable schema.TableID = 2

	nameIndex schema.IndexID = 1

	receiveTimeout = time.Second
)

type table struct {
	id      schema.TableID
	name    string
	indexes map[string]schema.IndexID
	// keyTypes is nil for a table whose key types are not known yet.
	keyTypes map[schema.IndexID]reflect.Type
}

func (t table) ID() schema.TableID { return t.id }
func (t table) Name() string       { return t.name }

func (t table) Index(name string) (schema.IndexID, bool) {
	id, ok := t.indexes[name]
	return id, ok
}

func (t table) KeyType(index schema.IndexID) reflect.Type {
	return t.keyTypes[index]
}

func users() table {
	return table{
		id:      usersTable,
		name:    "users",
		indexes: map[string]schema.IndexID{"name": nameIndex},
		keyTypes: map[schema.IndexID]reflect.Type{
			schema.PrimaryIndex: reflect.TypeFor[uint64](),
			nameIndex:           reflect.TypeFor[string](),
		},
	}
}

func orders() table {
	return table{id: ordersTable, name: "orders", indexes: nil, keyTypes: nil}
}

func snapshot(pk uint64, name string) watch.Snapshot {
	secondary := map[schema.IndexID]key.Key{}
	if name != "" {
		secondary[nameIndex] = key.MustEncode(name)
	}

	return watch.Snapshot{
		Primary:   key.MustEncode(pk),
		Secondary: secondary,
		Value:     []byte(name),
	}
}

func insert(tbl schema.TableID, snap watch.Snapshot) watch.ChangeRecord {
	return watch.ChangeRecord{
		Table: tbl,
		Op:    watch.OpInsert,
		Old:   option.None[watch.Snapshot](),
		New:   option.Some(snap),
	}
}

func update(tbl schema.TableID, old, snap watch.Snapshot) watch.ChangeRecord {
	return watch.ChangeRecord{
		Table: tbl,
		Op:    watch.OpUpdate,
		Old:   option.Some(old),
		New:   option.Some(snap),
	}
}

func remove(tbl schema.TableID, old watch.Snapshot) watch.ChangeRecord {
	return watch.ChangeRecord{
		Table: tbl,
		Op:    watch.OpDelete,
		Old:   option.Some(old),
		New:   option.None[watch.Snapshot](),
	}
}

func receive(recv *watch.Receiver) (watch.Event, bool) {
	select {
	case ev, ok := <-recv.C:
		return ev, ok
	case <-time.After(receiveTimeout):
		return watch.Event{}, false
	}
}

func drained(recv *watch.Receiver) bool {
	select {
	case _, ok := <-recv.C:
		return !ok
	default:
		return true
	}
}
