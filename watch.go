package typedkv

import (
	"fmt"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-typedkv/model"
	"github.com/tarantool/go-typedkv/watch"
)

// WatchPrimary watches the records of T whose primary key equals pk.
func WatchPrimary[T any](db *DB, pk any) (*watch.Receiver, watch.WatcherID, error) {
	m, err := model.Lookup[T](db.models)
	if err != nil {
		return nil, 0, err //nolint:wrapcheck
	}

	return db.watch.Get().Primary(m, pk) //nolint:wrapcheck
}

// WatchSecondary watches the records of T whose secondary key keyName equals k.
func WatchSecondary[T any](db *DB, keyName string, k any) (*watch.Receiver, watch.WatcherID, error) {
	m, err := model.Lookup[T](db.models)
	if err != nil {
		return nil, 0, err //nolint:wrapcheck
	}

	return db.watch.Get().Secondary(m, keyName, k) //nolint:wrapcheck
}

// DecodeEvent decodes the records carried by an event of table T.
func DecodeEvent[T any](db *DB, ev watch.Event) (option.Generic[T], option.Generic[T], error) {
	none := option.None[T]()

	m, err := model.Lookup[T](db.models)
	if err != nil {
		return none, none, err //nolint:wrapcheck
	}

	if ev.Table != m.ID() {
		return none, none, fmt.Errorf("%w: event of table %s decoded as %s", model.ErrTypeMismatch, ev.Table, m.Name())
	}

	decode := func(snap option.Generic[watch.Snapshot]) (option.Generic[T], error) {
		if !snap.IsSome() {
			return none, nil
		}

		value, err := m.Decode(snap.UnwrapOr(watch.Snapshot{}).Value)
		if err != nil {
			return none, err //nolint:wrapcheck
		}

		return option.Some(value), nil
	}

	old, err := decode(ev.Old)
	if err != nil {
		return none, none, err
	}

	updated, err := decode(ev.New)
	if err != nil {
		return none, none, err
	}

	return old, updated, nil
}
