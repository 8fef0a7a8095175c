package kv

// Cond is a transaction condition: the key must currently be stored with
// ModRevision, or be absent when ModRevision is zero.
type Cond struct {
	Key         []byte
	ModRevision int64
}

// RevisionEqual creates a condition holding when key was last modified at revision.
func RevisionEqual(key []byte, revision int64) Cond {
	return Cond{Key: key, ModRevision: revision}
}

// Absent creates a condition holding when key is not stored.
func Absent(key []byte) Cond {
	return Cond{Key: key, ModRevision: 0}
}

// IsAbsent reports whether the condition requires the key to be missing.
func (c Cond) IsAbsent() bool {
	return c.ModRevision == 0
}

// Holds reports whether the condition holds for the stored pair, if any.
func (c Cond) Holds(stored KeyValue, exists bool) bool {
	if c.IsAbsent() {
		return !exists
	}

	return exists && stored.ModRevision == c.ModRevision
}
