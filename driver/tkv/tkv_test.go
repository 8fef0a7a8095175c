package tkv_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/gojuno/minimock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tarantool/go-tarantool/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tarantool/go-typedkv/driver/tkv"
	"github.com/tarantool/go-typedkv/internal/mocks"
	"github.com/tarantool/go-typedkv/kv"
)

// iprotoFunctionName is the IPROTO_FUNCTION_NAME key of a call request body.
const iprotoFunctionName = 0x22

func TestNew(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, tkv.New(mocks.NewDoerMock(t)))
}

func TestDriver_Execute_Error(t *testing.T) {
	t.Parallel()

	var (
		mc       = minimock.NewController(t)
		doer     = mocks.NewDoerMock(mc)
		errLost  = errors.New("connection lost")
		captured tarantool.Request
	)

	doer.DoMock.Set(func(req tarantool.Request) *tarantool.Future {
		captured = req
		return mocks.FailedFuture(req, errLost)
	})

	_, err := tkv.New(doer).Execute(context.Background(),
		[]kv.Cond{kv.Absent([]byte("/a"))}, []kv.Op{kv.Put([]byte("/a"), []byte("v"))})
	require.ErrorIs(t, err, errLost)
	assert.Contains(t, err.Error(), "failed to execute transaction")

	require.NotNil(t, captured)

	var buf bytes.Buffer
	require.NoError(t, captured.Body(nil, msgpack.NewEncoder(&buf)))

	var body map[int]any
	require.NoError(t, msgpack.Unmarshal(buf.Bytes(), &body))
	assert.Equal(t, "config.storage.txn", body[iprotoFunctionName])

	assert.Len(t, doer.DoMock.Calls(), 1)
}

func TestConnect_NoAddresses(t *testing.T) {
	t.Parallel()

	drv, err := tkv.Connect(context.Background(), tkv.ConnectConfig{}) //nolint:exhaustruct
	require.ErrorIs(t, err, tkv.ErrNoAddresses)
	assert.Nil(t, drv)
}
