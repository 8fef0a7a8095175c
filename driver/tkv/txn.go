package tkv

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tarantool/go-typedkv/kv"
)

// DecodeResponseError is returned when a transaction response cannot be decoded.
type DecodeResponseError struct {
	Text string
	Err  error
}

// Error returns the error message.
func (e DecodeResponseError) Error() string {
	return fmt.Sprintf("failed to decode transaction response, %s: %s", e.Text, e.Err)
}

// Unwrap returns the underlying decoding error.
func (e DecodeResponseError) Unwrap() error {
	return e.Err
}

type storedValue struct {
	Path        []byte `msgpack:"path"`
	ModRevision int64  `msgpack:"mod_revision"`
	Value       []byte `msgpack:"value"`
}

// opResponse holds the values of one operation. Tarantool encodes it as a bare array.
type opResponse struct {
	Values []storedValue
}

func (r *opResponse) DecodeMsgpack(decoder *msgpack.Decoder) error {
	if err := decoder.Decode(&r.Values); err != nil {
		return DecodeResponseError{Text: "decode operation values", Err: err}
	}

	return nil
}

type txnResponseData struct {
	IsSuccess bool         `msgpack:"is_success"`
	Responses []opResponse `msgpack:"responses"`
}

type txnResponse struct {
	Data     txnResponseData `msgpack:"data"`
	Revision int64           `msgpack:"revision"`
}

func (r txnResponse) asResponse() kv.Response {
	if !r.Data.IsSuccess {
		return kv.Response{Succeeded: false, Revision: r.Revision, Results: nil}
	}

	results := make([]kv.Result, 0, len(r.Data.Responses))

	for _, resp := range r.Data.Responses {
		values := make([]kv.KeyValue, 0, len(resp.Values))

		for _, val := range resp.Values {
			// Freshly written values are reported without their own revision.
			modRevision := val.ModRevision
			if modRevision == 0 {
				modRevision = r.Revision
			}

			values = append(values, kv.KeyValue{
				Key:         val.Path,
				Value:       val.Value,
				ModRevision: modRevision,
			})
		}

		results = append(results, kv.Result{Values: values})
	}

	return kv.Response{
		Succeeded: true,
		Revision:  r.Revision,
		Results:   results,
	}
}

type txnRequest struct {
	_msgpack struct{} `msgpack:",omitempty"`

	Predicates []tkvCond      `msgpack:"predicates"`
	OnSuccess  []tkvOperation `msgpack:"on_success"`
	OnFailure  []tkvOperation `msgpack:"on_failure"`
}

func newTxnRequest(conds []kv.Cond, ops []kv.Op) txnRequest {
	return txnRequest{
		_msgpack:   struct{}{},
		Predicates: newTKVConds(conds),
		OnSuccess:  newTKVOperations(ops),
		OnFailure:  []tkvOperation{},
	}
}
