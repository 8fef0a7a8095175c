// Package schema defines table and key identities shared by the model layer,
// the storage engine and the watch engine.
package schema

import (
	"reflect"
	"strconv"
)

// TableID identifies a table. It is assigned by the model definition and must be
// unique within one database.
type TableID uint32

// String returns the decimal representation of the table id.
func (id TableID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IndexID identifies a secondary key definition inside one table.
// Zero is never a valid secondary key id.
type IndexID uint32

// PrimaryIndex designates the primary key where an IndexID is expected.
const PrimaryIndex IndexID = 0

// Table describes a table as seen by the watch engine.
type Table interface {
	// ID returns the table identity token.
	ID() TableID
	// Name returns the human readable table name.
	Name() string
	// Index resolves a secondary key definition by name.
	Index(name string) (IndexID, bool)
	// KeyType returns the Go type of the values of key index, PrimaryIndex for
	// the primary key. It returns nil while the type is not known.
	KeyType(index IndexID) reflect.Type
}
