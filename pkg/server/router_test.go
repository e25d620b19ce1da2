package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(_ context.Context, params map[string]interface{}) (interface{}, error) {
	return params, nil
}

func TestRPCRouter_RegisterMethod(t *testing.T) {
	router := NewRPCRouter()

	t.Run("registers method", func(t *testing.T) {
		require.NoError(t, router.RegisterMethod("test.echo", echoHandler))
		assert.True(t, router.HasMethod("test.echo"))
	})

	t.Run("rejects nil handler", func(t *testing.T) {
		err := router.RegisterMethod("test.nil", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "handler cannot be nil")
	})

	t.Run("rejects empty name", func(t *testing.T) {
		assert.Error(t, router.RegisterMethod("", echoHandler))
	})

	t.Run("lists methods sorted", func(t *testing.T) {
		require.NoError(t, router.RegisterMethod("a.first", echoHandler))
		assert.Equal(t, []string{"a.first", "test.echo"}, router.Methods())
	})
}

func TestRPCRouter_ParseRequest(t *testing.T) {
	router := NewRPCRouter()

	t.Run("valid request", func(t *testing.T) {
		req, err := router.ParseRequest([]byte(`{"id":"1","method":"query.handle","params":{"query":"2+2"}}`))
		require.NoError(t, err)
		assert.Equal(t, "1", req.ID)
		assert.Equal(t, "query.handle", req.Method)
		assert.Equal(t, "2+2", req.Params["query"])
		assert.Equal(t, JSONRPCVersion, req.JSONRPC)
	})

	tests := []struct {
		name string
		data string
		code int
	}{
		{name: "malformed json", data: `{"id":`, code: ParseError},
		{name: "missing id", data: `{"method":"x"}`, code: InvalidRequest},
		{name: "missing method", data: `{"id":"1"}`, code: InvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := router.ParseRequest([]byte(tt.data))
			require.Error(t, err)

			var rpcErr *RPCError
			require.True(t, errors.As(err, &rpcErr))
			assert.Equal(t, tt.code, rpcErr.Code)
		})
	}
}

func TestRPCRouter_RouteRequest(t *testing.T) {
	router := NewRPCRouter()
	require.NoError(t, router.RegisterMethod("test.echo", echoHandler))
	require.NoError(t, router.RegisterMethod("test.fail", func(context.Context, map[string]interface{}) (interface{}, error) {
		return nil, errors.New("boom")
	}))
	require.NoError(t, router.RegisterMethod("test.params", func(context.Context, map[string]interface{}) (interface{}, error) {
		return nil, invalidParams("x is required")
	}))
	ctx := context.Background()

	t.Run("returns handler result", func(t *testing.T) {
		resp := router.RouteRequest(ctx, &RPCRequest{ID: "1", Method: "test.echo", Params: map[string]interface{}{"k": "v"}})
		assert.Nil(t, resp.Error)
		assert.Equal(t, "1", resp.ID)
		assert.Equal(t, map[string]interface{}{"k": "v"}, resp.Result)
	})

	t.Run("unknown method", func(t *testing.T) {
		resp := router.RouteRequest(ctx, &RPCRequest{ID: "2", Method: "nope"})
		require.NotNil(t, resp.Error)
		assert.Equal(t, MethodNotFound, resp.Error.Code)
	})

	t.Run("plain error is internal", func(t *testing.T) {
		resp := router.RouteRequest(ctx, &RPCRequest{ID: "3", Method: "test.fail"})
		require.NotNil(t, resp.Error)
		assert.Equal(t, InternalError, resp.Error.Code)
		assert.Equal(t, "boom", resp.Error.Message)
	})

	t.Run("rpc error keeps its code", func(t *testing.T) {
		resp := router.RouteRequest(ctx, &RPCRequest{ID: "4", Method: "test.params"})
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidParams, resp.Error.Code)
	})

	t.Run("nil request", func(t *testing.T) {
		resp := router.RouteRequest(ctx, nil)
		require.NotNil(t, resp.Error)
		assert.Equal(t, InvalidRequest, resp.Error.Code)
	})
}

func TestRPCRouter_Idempotency(t *testing.T) {
	router := NewRPCRouter()
	var calls int32
	require.NoError(t, router.RegisterMethod("test.count", func(context.Context, map[string]interface{}) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}))
	ctx := context.Background()

	first := router.RouteRequest(ctx, &RPCRequest{ID: "a", Method: "test.count", IdempotencyKey: "k1"})
	second := router.RouteRequest(ctx, &RPCRequest{ID: "b", Method: "test.count", IdempotencyKey: "k1"})
	other := router.RouteRequest(ctx, &RPCRequest{ID: "c", Method: "test.count", IdempotencyKey: "k2"})
	unkeyed := router.RouteRequest(ctx, &RPCRequest{ID: "d", Method: "test.count"})

	assert.Equal(t, int32(1), first.Result)
	assert.Equal(t, int32(1), second.Result)
	assert.Equal(t, "b", second.ID)
	assert.Equal(t, int32(2), other.Result)
	assert.Equal(t, int32(3), unkeyed.Result)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
