package tkv

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tarantool/go-typedkv/kv"
)

// ErrUnknownOperation is returned when the operation type is unknown.
var ErrUnknownOperation = errors.New("unknown operation")

// EncodeRequestError is returned when a transaction request cannot be encoded.
type EncodeRequestError struct {
	Text string
	Err  error
}

// Error returns the error message.
func (e EncodeRequestError) Error() string {
	return fmt.Sprintf("failed to encode transaction request, %s: %s", e.Text, e.Err)
}

// Unwrap returns the underlying encoding error.
func (e EncodeRequestError) Unwrap() error {
	return e.Err
}

const (
	putOperationArrayLen   = 3
	otherOperationArrayLen = 2
	condArrayLen           = 4
)

var (
	_ msgpack.CustomEncoder = tkvOperation{}  //nolint:exhaustruct
	_ msgpack.CustomEncoder = tkvCond{}       //nolint:exhaustruct
)

func operationName(opType kv.OpType) (string, bool) {
	switch opType {
	case kv.OpGet:
		return "get", true
	case kv.OpPut:
		return "put", true
	case kv.OpDelete:
		return "delete", true
	default:
		return "", false
	}
}

// tkvOperation is encoded as [name, path] or [name, path, value].
type tkvOperation struct {
	kv.Op
}

func newTKVOperations(ops []kv.Op) []tkvOperation {
	result := make([]tkvOperation, 0, len(ops))
	for _, op := range ops {
		result = append(result, tkvOperation{op})
	}

	return result
}

func (o tkvOperation) EncodeMsgpack(encoder *msgpack.Encoder) error {
	name, ok := operationName(o.Type)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownOperation, o.Type)
	}

	arrayLen := otherOperationArrayLen
	if o.Type == kv.OpPut {
		arrayLen = putOperationArrayLen
	}

	if err := encoder.EncodeArrayLen(arrayLen); err != nil {
		return EncodeRequestError{Text: "encode operation array length", Err: err}
	}

	if err := encoder.EncodeString(name); err != nil {
		return EncodeRequestError{Text: "encode operation", Err: err}
	}

	// Paths and values travel as msgpack strings, the config storage rejects binary.
	if err := encoder.EncodeString(string(o.Key)); err != nil {
		return EncodeRequestError{Text: "encode operation key", Err: err}
	}

	if o.Type == kv.OpPut {
		if err := encoder.EncodeString(string(o.Value)); err != nil {
			return EncodeRequestError{Text: "encode operation value", Err: err}
		}
	}

	return nil
}

// tkvCond is encoded as ["mod_revision", "==", revision, path]. A missing path
// has mod_revision 0.
type tkvCond struct {
	kv.Cond
}

func newTKVConds(conds []kv.Cond) []tkvCond {
	result := make([]tkvCond, 0, len(conds))
	for _, cond := range conds {
		result = append(result, tkvCond{cond})
	}

	return result
}

func (c tkvCond) EncodeMsgpack(encoder *msgpack.Encoder) error {
	if err := encoder.EncodeArrayLen(condArrayLen); err != nil {
		return EncodeRequestError{Text: "encode condition array length", Err: err}
	}

	if err := encoder.EncodeString("mod_revision"); err != nil {
		return EncodeRequestError{Text: "encode condition target", Err: err}
	}

	if err := encoder.EncodeString("=="); err != nil {
		return EncodeRequestError{Text: "encode condition operator", Err: err}
	}

	if err := encoder.EncodeInt(c.ModRevision); err != nil {
		return EncodeRequestError{Text: "encode condition revision", Err: err}
	}

	if err := encoder.EncodeString(string(c.Key)); err != nil {
		return EncodeRequestError{Text: "encode condition key", Err: err}
	}

	return nil
}
