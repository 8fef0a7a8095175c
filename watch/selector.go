package watch

import (
	"fmt"

	"github.com/tarantool/go-typedkv/schema"
)

type selectorKind uint8

const (
	selectorPrimary selectorKind = iota + 1
	selectorSecondary
)

// Selector names the key a watcher compares against: the primary key or one
// secondary key definition.
type Selector struct {
	kind  selectorKind
	index schema.IndexID
}

// Primary selects the primary key.
func Primary() Selector {
	return Selector{kind: selectorPrimary, index: 0}
}

// Secondary selects the secondary key definition index.
func Secondary(index schema.IndexID) Selector {
	return Selector{kind: selectorSecondary, index: index}
}

// IsPrimary reports whether the selector targets the primary key.
func (s Selector) IsPrimary() bool {
	return s.kind == selectorPrimary
}

// Index returns the secondary key definition and true for secondary selectors.
func (s Selector) Index() (schema.IndexID, bool) {
	return s.index, s.kind == selectorSecondary
}

func (s Selector) String() string {
	switch s.kind {
	case selectorPrimary:
		return "primary"
	case selectorSecondary:
		return fmt.Sprintf("secondary(%d)", s.index)
	default:
		return "invalid"
	}
}
