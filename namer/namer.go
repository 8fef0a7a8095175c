// Package namer maps records to storage keys.
//
// A record of table T with primary key K is stored under
// "<prefix>/<T>/<hex(K)>". Hex keeps the key printable for every backend and
// preserves the byte order of K.
package namer

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/tarantool/go-typedkv/key"
	"github.com/tarantool/go-typedkv/schema"
)

// DefaultPrefix is the prefix used when none is configured.
const DefaultPrefix = "/typedkv"

// Name is a parsed record key.
type Name struct {
	Table   schema.TableID
	Primary key.Key
}

// Namer represents the record keys naming strategy.
type Namer interface {
	// RecordKey returns the storage key of a record.
	RecordKey(table schema.TableID, primary key.Key) []byte
	// TablePrefix returns the storage prefix of all records of table.
	TablePrefix(table schema.TableID) []byte
	// ParseKey converts a storage key back into its record name.
	ParseKey(raw []byte) (Name, error)
}

// DefaultNamer represents default namer.
type DefaultNamer struct {
	prefix string
}

var _ Namer = (*DefaultNamer)(nil)

// NewDefaultNamer returns new DefaultNamer object. Trailing slashes of prefix are ignored.
func NewDefaultNamer(prefix string) *DefaultNamer {
	return &DefaultNamer{
		prefix: strings.TrimRight(prefix, "/"),
	}
}

// Prefix returns the configured prefix.
func (n *DefaultNamer) Prefix() string {
	return n.prefix
}

// TablePrefix implements Namer.
func (n *DefaultNamer) TablePrefix(table schema.TableID) []byte {
	return []byte(n.prefix + "/" + strconv.FormatUint(uint64(table), 10) + "/")
}

// RecordKey implements Namer.
func (n *DefaultNamer) RecordKey(table schema.TableID, primary key.Key) []byte {
	return append(n.TablePrefix(table), hex.EncodeToString(primary)...)
}

// ParseKey implements Namer.
func (n *DefaultNamer) ParseKey(raw []byte) (Name, error) {
	name := string(raw)

	rest, ok := strings.CutPrefix(name, n.prefix+"/")
	if !ok {
		return Name{}, errInvalidKey(name, "prefix mismatch")
	}

	tablePart, keyPart, ok := strings.Cut(rest, "/")
	if !ok {
		return Name{}, errInvalidKey(name, "missing primary key")
	}

	table, err := strconv.ParseUint(tablePart, 10, 32)
	if err != nil {
		return Name{}, errInvalidKey(name, "bad table id")
	}

	primary, err := hex.DecodeString(keyPart)
	if err != nil {
		return Name{}, errInvalidKey(name, "bad primary key")
	}

	return Name{Table: schema.TableID(table), Primary: primary}, nil
}
