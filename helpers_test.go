package typedkv_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	typedkv "github.com/tarantool/go-typedkv"
	"github.com/tarantool/go-typedkv/driver"
	"github.com/tarantool/go-typedkv/driver/memory"
	"github.com/tarantool/go-typedkv/model"
	"github.com/tarantool/go-typedkv/watch"
)

type data struct {
	ID   uint64 `msgpack:"id"`
	Name string `msgpack:"name"`
}

type unknown struct {
	ID uint64
}

func dataModel() *model.Model[data] {
	return model.MustNew[data](1, "data", func(d data) any { return d.ID },
		model.WithSecondary[data]("name", func(d data) any {
			if d.Name == "" {
				return nil
			}

			return d.Name
		}),
	)
}

func newDB(t *testing.T, opts ...typedkv.Option) *typedkv.DB {
	t.Helper()

	return newDBWithDriver(t, memory.New(), opts...)
}

func newDBWithDriver(t *testing.T, drv driver.Driver, opts ...typedkv.Option) *typedkv.DB {
	t.Helper()

	opts = append([]typedkv.Option{typedkv.WithLogger(zerolog.New(zerolog.NewTestWriter(t)))}, opts...)

	db, err := typedkv.New(drv, opts...)
	require.NoError(t, err)
	require.NoError(t, typedkv.Define(db, dataModel()))

	return db
}

// commit runs fn in a new transaction and commits it.
func commit(t *testing.T, db *typedkv.DB, fn func(tx *typedkv.RwTx) error) error {
	t.Helper()

	tx := db.RW(t.Context())
	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func receive(recv *watch.Receiver) (watch.Event, bool) {
	select {
	case ev, ok := <-recv.C:
		return ev, ok
	case <-time.After(time.Second):
		return watch.Event{}, false //nolint:exhaustruct
	}
}

// drained reports whether no event arrives within a short period.
func drained(recv *watch.Receiver) bool {
	select {
	case <-recv.C:
		return false
	case <-time.After(50 * time.Millisecond):
		return true
	}
}

func decode(t *testing.T, db *typedkv.DB, ev watch.Event) (data, data) {
	t.Helper()

	old, updated, err := typedkv.DecodeEvent[data](db, ev)
	require.NoError(t, err)

	return old.UnwrapOr(data{}), updated.UnwrapOr(data{})
}
