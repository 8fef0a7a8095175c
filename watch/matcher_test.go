package watch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarantool/go-typedkv/key"
	"github.com/tarantool/go-typedkv/watch"
)

func TestMatches(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)

	_, byPK := reg.Register(usersTable, watch.Primary(), key.MustEncode(uint64(1)))
	_, byName := reg.Register(usersTable, watch.Secondary(nameIndex), key.MustEncode("test"))
	_, otherTable := reg.Register(ordersTable, watch.Primary(), key.MustEncode(uint64(1)))

	tests := []struct {
		name     string
		record   watch.ChangeRecord
		byPK     bool
		byName   bool
		ordersPK bool
	}{
		{"insert matching pk", insert(usersTable, snapshot(1, "other")), true, false, false},
		{"insert matching name", insert(usersTable, snapshot(2, "test")), false, true, false},
		{"insert without name", insert(usersTable, snapshot(2, "")), false, false, false},
		{"update into name", update(usersTable, snapshot(2, "other"), snapshot(2, "test")), false, true, false},
		{"update out of name", update(usersTable, snapshot(2, "test"), snapshot(2, "other")), false, true, false},
		{"update unrelated", update(usersTable, snapshot(2, "a"), snapshot(2, "b")), false, false, false},
		{"update matching pk", update(usersTable, snapshot(1, "a"), snapshot(1, "b")), true, false, false},
		{"delete matching both", remove(usersTable, snapshot(1, "test")), true, true, false},
		{"other table same pk", insert(ordersTable, snapshot(1, "test")), false, false, true},
	}

	entry := func(id watch.WatcherID) *watch.Entry {
		e, ok := reg.Lookup(id)
		require.True(t, ok)

		return e
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.byPK, watch.Matches(entry(byPK), tt.record), "primary watcher")
			assert.Equal(t, tt.byName, watch.Matches(entry(byName), tt.record), "secondary watcher")
			assert.Equal(t, tt.ordersPK, watch.Matches(entry(otherTable), tt.record), "orders watcher")
		})
	}
}

func TestMatches_MissingSnapshot(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	_, id := reg.Register(usersTable, watch.Primary(), key.MustEncode(uint64(1)))

	entry, ok := reg.Lookup(id)
	require.True(t, ok)

	rec := insert(usersTable, snapshot(1, ""))
	rec.New, rec.Old = rec.Old, rec.New

	assert.False(t, watch.Matches(entry, rec), "insert without new snapshot must not match")

	rec.Op = watch.Op(42)
	assert.False(t, watch.Matches(entry, rec))
}

func TestMatcher_MatchTransaction(t *testing.T) {
	t.Parallel()

	reg := newRegistry(t)
	matcher := watch.NewMatcher(reg)

	_, byPK := reg.Register(usersTable, watch.Primary(), key.MustEncode(uint64(1)))
	deadRecv, deadID := reg.Register(usersTable, watch.Primary(), key.MustEncode(uint64(1)))
	deadRecv.Close()

	matches, dead := matcher.MatchTransaction(7, []watch.ChangeRecord{
		insert(usersTable, snapshot(1, "a")),
		insert(usersTable, snapshot(2, "b")),
		update(usersTable, snapshot(1, "a"), snapshot(1, "c")),
		remove(usersTable, snapshot(1, "c")),
	})

	require.Len(t, matches, 3)

	ops := make([]watch.Op, 0, len(matches))
	for _, m := range matches {
		assert.Equal(t, byPK, m.ID)
		assert.Equal(t, int64(7), m.Event.Revision)
		assert.Equal(t, key.MustEncode(uint64(1)), m.Event.PrimaryKey())
		ops = append(ops, m.Event.Op)
	}

	assert.Equal(t, []watch.Op{watch.OpInsert, watch.OpUpdate, watch.OpDelete}, ops)
	assert.Equal(t, []watch.WatcherID{deadID}, dead, "dead watcher must be reported once")
}

func TestMatcher_NoWatchers(t *testing.T) {
	t.Parallel()

	matcher := watch.NewMatcher(newRegistry(t))

	matches, dead := matcher.MatchTransaction(1, []watch.ChangeRecord{insert(usersTable, snapshot(1, "a"))})
	assert.Empty(t, matches)
	assert.Empty(t, dead)
}
