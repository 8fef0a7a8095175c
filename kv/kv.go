// Package kv provides the key-value data structures exchanged with storage drivers:
// stored pairs, the operations of a transaction, its conditions and its response.
package kv

// KeyValue represents a key-value pair with revision metadata.
type KeyValue struct {
	// Key is the serialized representation of the key.
	Key []byte
	// Value is the serialized representation of the value.
	Value []byte

	// ModRevision is the revision number of the last modification to this key.
	ModRevision int64
}

// IsPrefix reports whether key addresses a range of keys rather than a single one.
// Prefix keys end with a slash.
func IsPrefix(key []byte) bool {
	return len(key) == 0 || key[len(key)-1] == '/'
}
