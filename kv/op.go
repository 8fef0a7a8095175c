package kv

// OpType represents the type of a storage operation.
type OpType int

const (
	// OpGet represents a read operation.
	OpGet OpType = iota
	// OpPut represents a write operation.
	OpPut
	// OpDelete represents a delete operation.
	OpDelete
)

func (t OpType) String() string {
	switch t {
	case OpGet:
		return "Get"
	case OpPut:
		return "Put"
	case OpDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Op is a single operation of a transaction.
// Get and Delete operate on every key under Key when Key is a prefix.
type Op struct {
	// Type specifies the operation type.
	Type OpType
	// Key is the target key of the operation.
	Key []byte
	// Value contains the data of a put operation, nil otherwise.
	Value []byte
}

// Get creates a read operation.
func Get(key []byte) Op {
	return Op{Type: OpGet, Key: key, Value: nil}
}

// Put creates a write operation.
func Put(key, value []byte) Op {
	return Op{Type: OpPut, Key: key, Value: value}
}

// Delete creates a delete operation.
func Delete(key []byte) Op {
	return Op{Type: OpDelete, Key: key, Value: nil}
}
