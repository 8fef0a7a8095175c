package watch

import (
	"bytes"

	"github.com/tarantool/go-option"

	"github.com/tarantool/go-typedkv/key"
	"github.com/tarantool/go-typedkv/schema"
)

// Op is the kind of a committed write.
type Op int

const (
	// OpInsert is a record insertion.
	OpInsert Op = iota + 1
	// OpUpdate is a record update.
	OpUpdate
	// OpDelete is a record removal.
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "Insert"
	case OpUpdate:
		return "Update"
	case OpDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Snapshot is the keyed state of one record before or after a write.
type Snapshot struct {
	// Primary is the canonical primary key.
	Primary key.Key
	// Secondary holds the canonical secondary keys the record has a value for.
	Secondary map[schema.IndexID]key.Key
	// Value is the marshalled record.
	Value []byte
}

// SecondaryKey returns the secondary key stored for index id.
func (s Snapshot) SecondaryKey(id schema.IndexID) (key.Key, bool) {
	k, ok := s.Secondary[id]
	return k, ok
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	var secondary map[schema.IndexID]key.Key

	if s.Secondary != nil {
		secondary = make(map[schema.IndexID]key.Key, len(s.Secondary))
		for id, k := range s.Secondary {
			secondary[id] = bytes.Clone(k)
		}
	}

	return Snapshot{
		Primary:   bytes.Clone(s.Primary),
		Secondary: secondary,
		Value:     bytes.Clone(s.Value),
	}
}

func cloneSnapshot(snap option.Generic[Snapshot]) option.Generic[Snapshot] {
	if !snap.IsSome() {
		return option.None[Snapshot]()
	}

	return option.Some(snap.UnwrapOr(Snapshot{}).Clone())
}

// ChangeRecord describes one record affected by a committed transaction.
// Insert carries only New, Delete only Old, Update both.
type ChangeRecord struct {
	Table schema.TableID
	Op    Op
	Old   option.Generic[Snapshot]
	New   option.Generic[Snapshot]
}

// Event is the notification delivered to a watcher.
//
// The shape of Event is part of the public contract.
type Event struct {
	// Op is the kind of write.
	Op Op
	// Table is the table the record belongs to.
	Table schema.TableID
	// Revision is the storage revision of the commit that produced the event.
	// Every commit that emits events changes storage, so revisions strictly
	// increase across the events of one watcher, except for events of one commit
	// which share it.
	Revision int64
	// Old is the record before the write (Update, Delete).
	Old option.Generic[Snapshot]
	// New is the record after the write (Insert, Update).
	New option.Generic[Snapshot]
}

func newEvent(revision int64, rec ChangeRecord) Event {
	return Event{
		Op:       rec.Op,
		Table:    rec.Table,
		Revision: revision,
		Old:      rec.Old,
		New:      rec.New,
	}
}

// PrimaryKey returns the primary key of the affected record: the new one for
// Insert and Update, the old one for Delete.
func (e Event) PrimaryKey() key.Key {
	if e.New.IsSome() {
		return e.New.UnwrapOr(Snapshot{}).Primary
	}

	return e.Old.UnwrapOr(Snapshot{}).Primary
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	return Event{
		Op:       e.Op,
		Table:    e.Table,
		Revision: e.Revision,
		Old:      cloneSnapshot(e.Old),
		New:      cloneSnapshot(e.New),
	}
}
