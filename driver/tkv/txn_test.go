package tkv //nolint:testpackage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tarantool/go-typedkv/kv"
)

func TestTxnRequest_Encode(t *testing.T) {
	t.Parallel()

	req := newTxnRequest(
		[]kv.Cond{kv.RevisionEqual([]byte("/a"), 5), kv.Absent([]byte("/b"))},
		[]kv.Op{kv.Put([]byte("/b"), []byte("v")), kv.Get([]byte("/a")), kv.Delete([]byte("/c/"))},
	)

	raw, err := msgpack.Marshal(req)
	require.NoError(t, err)

	var decoded struct {
		Predicates [][]any `msgpack:"predicates"`
		OnSuccess  [][]any `msgpack:"on_success"`
		OnFailure  [][]any `msgpack:"on_failure"`
	}

	require.NoError(t, msgpack.Unmarshal(raw, &decoded))

	require.Len(t, decoded.Predicates, 2)
	assert.Equal(t, "mod_revision", decoded.Predicates[0][0])
	assert.Equal(t, "==", decoded.Predicates[0][1])
	assert.EqualValues(t, 5, decoded.Predicates[0][2])
	assert.Equal(t, "/a", decoded.Predicates[0][3])
	assert.EqualValues(t, 0, decoded.Predicates[1][2])

	require.Len(t, decoded.OnSuccess, 3)
	assert.Equal(t, []any{"put", "/b", "v"}, decoded.OnSuccess[0])
	assert.Equal(t, []any{"get", "/a"}, decoded.OnSuccess[1])
	assert.Equal(t, []any{"delete", "/c/"}, decoded.OnSuccess[2])

	assert.Empty(t, decoded.OnFailure)
}

func TestTxnRequest_EncodeUnknownOperation(t *testing.T) {
	t.Parallel()

	req := newTxnRequest(nil, []kv.Op{{Type: kv.OpType(42), Key: []byte("/a"), Value: nil}})

	_, err := msgpack.Marshal(req)
	require.ErrorIs(t, err, ErrUnknownOperation)
}

type wireValue struct {
	Path        string `msgpack:"path"`
	ModRevision int64  `msgpack:"mod_revision,omitempty"`
	Value       string `msgpack:"value"`
}

type wireResponse struct {
	Data struct {
		IsSuccess bool          `msgpack:"is_success"`
		Responses [][]wireValue `msgpack:"responses"`
	} `msgpack:"data"`
	Revision int64 `msgpack:"revision"`
}

func TestTxnResponse_Decode(t *testing.T) {
	t.Parallel()

	var wire wireResponse

	wire.Revision = 12
	wire.Data.IsSuccess = true
	wire.Data.Responses = [][]wireValue{
		{},
		{{Path: "/a", ModRevision: 7, Value: "x"}, {Path: "/b", ModRevision: 0, Value: "y"}},
	}

	raw, err := msgpack.Marshal(wire)
	require.NoError(t, err)

	var resp txnResponse
	require.NoError(t, msgpack.Unmarshal(raw, &resp))

	converted := resp.asResponse()
	assert.True(t, converted.Succeeded)
	assert.Equal(t, int64(12), converted.Revision)
	require.Len(t, converted.Results, 2)
	assert.Empty(t, converted.Results[0].Values)
	assert.Equal(t, []kv.KeyValue{
		{Key: []byte("/a"), Value: []byte("x"), ModRevision: 7},
		{Key: []byte("/b"), Value: []byte("y"), ModRevision: 12},
	}, converted.Results[1].Values)
}

func TestTxnResponse_Failed(t *testing.T) {
	t.Parallel()

	resp := txnResponse{
		Data:     txnResponseData{IsSuccess: false, Responses: nil},
		Revision: 3,
	}.asResponse()

	assert.False(t, resp.Succeeded)
	assert.Equal(t, int64(3), resp.Revision)
	assert.Empty(t, resp.Results)
}

func TestOpResponse_DecodeError(t *testing.T) {
	t.Parallel()

	raw, err := msgpack.Marshal(map[string]any{"data": map[string]any{"responses": []any{"bad"}}})
	require.NoError(t, err)

	var resp txnResponse

	err = msgpack.Unmarshal(raw, &resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode transaction response")
}
