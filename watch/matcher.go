package watch

import (
	"github.com/tarantool/go-option"

	"github.com/tarantool/go-typedkv/key"
)

// Match pairs a watcher with an event it must receive.
type Match struct {
	ID    WatcherID
	Event Event
}

// Matches reports whether rec is relevant to the watcher entry.
//
// Insert is matched against the new record, Delete against the old one. Update
// matches when either the old or the new record carries the target, so a watcher
// on a secondary key observes records moving into and out of its key value.
func Matches(entry *Entry, rec ChangeRecord) bool {
	if entry.table != rec.Table {
		return false
	}

	switch rec.Op {
	case OpInsert:
		return snapshotMatches(entry, rec.New)
	case OpDelete:
		return snapshotMatches(entry, rec.Old)
	case OpUpdate:
		return snapshotMatches(entry, rec.New) || snapshotMatches(entry, rec.Old)
	default:
		return false
	}
}

func snapshotMatches(entry *Entry, snap option.Generic[Snapshot]) bool {
	if !snap.IsSome() {
		return false
	}

	s := snap.UnwrapOr(Snapshot{})

	var candidate key.Key

	if index, ok := entry.selector.Index(); ok {
		k, found := s.SecondaryKey(index)
		if !found {
			return false
		}

		candidate = k
	} else {
		candidate = s.Primary
	}

	return candidate.Equal(entry.target)
}

// Matcher finds the watchers interested in the records of a committed transaction.
type Matcher struct {
	registry *Registry
}

// NewMatcher creates a matcher over registry.
func NewMatcher(registry *Registry) *Matcher {
	return &Matcher{registry: registry}
}

// MatchTransaction matches records, in order, against the registry. Matches of a
// single watcher follow record order. Entries whose receiver was released are not
// matched and are returned in dead instead, each id at most once.
func (m *Matcher) MatchTransaction(revision int64, records []ChangeRecord) ([]Match, []WatcherID) {
	var (
		matches []Match
		dead    []WatcherID
		seen    map[WatcherID]struct{}
	)

	for _, rec := range records {
		for entry := range m.registry.EntriesFor(rec.Table) {
			if entry.Dropped() {
				if _, ok := seen[entry.id]; !ok {
					if seen == nil {
						seen = make(map[WatcherID]struct{})
					}

					seen[entry.id] = struct{}{}
					dead = append(dead, entry.id)
				}

				continue
			}

			if Matches(entry, rec) {
				matches = append(matches, Match{ID: entry.id, Event: newEvent(revision, rec)})
			}
		}
	}

	return matches, dead
}
