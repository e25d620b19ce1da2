package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/mathroute/internal/tracing"
	"github.com/harun/mathroute/pkg/pipeline"
	"github.com/harun/mathroute/pkg/tools"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFunc func(ctx context.Context, text string) pipeline.Outcome

func (f handlerFunc) HandleQuery(ctx context.Context, text string) pipeline.Outcome {
	return f(ctx, text)
}

// seen records the context values the handler observed per query.
type seen struct {
	mu       sync.Mutex
	clients  map[string]string
	requests map[string]string
}

func newSeen() *seen {
	return &seen{clients: map[string]string{}, requests: map[string]string{}}
}

func (s *seen) handler() handlerFunc {
	return func(ctx context.Context, text string) pipeline.Outcome {
		s.mu.Lock()
		s.clients[text] = tracing.GetClientID(ctx)
		s.requests[text] = tracing.GetRequestID(ctx)
		s.mu.Unlock()
		return pipeline.Outcome{
			Query:   text,
			Summary: "answer to " + text,
			TraceID: tracing.GetTraceID(ctx),
		}
	}
}

type rpcReply struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

type queryReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Outcome struct {
		Query   string `json:"query"`
		Summary string `json:"summary"`
		TraceID string `json:"trace_id"`
	} `json:"outcome"`
}

func newTestServer(t *testing.T, h pipeline.Handler, mutate func(*Config)) (*Server, *httptest.Server) {
	t.Helper()

	reg, err := tools.DefaultRegistry(nil)
	require.NoError(t, err)

	logger := zerolog.Nop()
	cfg := Config{Port: 0, Handler: h, Registry: reg, Logger: &logger, ShutdownTimeout: time.Second}
	if mutate != nil {
		mutate(&cfg)
	}

	srv, err := NewServer(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postRPC(t *testing.T, ts *httptest.Server, body string, headers map[string]string) (*http.Response, rpcReply) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/rpc", bytes.NewBufferString(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var reply rpcReply
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(data, &reply))
	}
	return resp, reply
}

func TestNewServer_Validation(t *testing.T) {
	reg, err := tools.DefaultRegistry(nil)
	require.NoError(t, err)
	h := newSeen().handler()

	_, err = NewServer(Config{Port: -1, Handler: h, Registry: reg})
	assert.Error(t, err)

	_, err = NewServer(Config{Port: 8080, Registry: reg})
	assert.Error(t, err)

	_, err = NewServer(Config{Port: 8080, Handler: h})
	assert.Error(t, err)

	srv, err := NewServer(Config{Host: "127.0.0.1", Port: 8080, Handler: h, Registry: reg})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", srv.Addr())
}

func TestServer_Healthz(t *testing.T) {
	_, ts := newTestServer(t, newSeen().handler(), nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestServer_Metrics(t *testing.T) {
	_, ts := newTestServer(t, newSeen().handler(), nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "mathroute_")
}

func TestServer_RPCQueryHandle(t *testing.T) {
	s := newSeen()
	_, ts := newTestServer(t, s.handler(), nil)

	resp, reply := postRPC(t, ts, `{"jsonrpc":"2.0","id":"q1","method":"query.handle","params":{"query":"17*3+2"}}`,
		map[string]string{TraceHeader: "trace-abc"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, reply.Error)
	assert.Equal(t, "q1", reply.ID)

	var result queryReply
	require.NoError(t, json.Unmarshal(reply.Result, &result))
	assert.Equal(t, pipeline.StatusOK, result.Status)
	assert.Equal(t, "answer to 17*3+2", result.Message)
	assert.Equal(t, "trace-abc", result.Outcome.TraceID)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.NotEmpty(t, s.clients["17*3+2"])
	assert.Equal(t, "q1", s.requests["17*3+2"])
}

func TestServer_RPCInvalidParams(t *testing.T) {
	_, ts := newTestServer(t, newSeen().handler(), nil)

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "missing query", body: `{"id":"1","method":"query.handle","params":{}}`, code: InvalidParams},
		{name: "query not a string", body: `{"id":"1","method":"query.handle","params":{"query":42}}`, code: InvalidParams},
		{name: "unknown tool", body: `{"id":"1","method":"registry.list","params":{"tool":"astrology"}}`, code: InvalidParams},
		{name: "unknown method", body: `{"id":"1","method":"query.stream"}`, code: MethodNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, reply := postRPC(t, ts, tt.body, nil)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			require.NotNil(t, reply.Error)
			assert.Equal(t, tt.code, reply.Error.Code)
		})
	}
}

func TestServer_RPCMalformed(t *testing.T) {
	_, ts := newTestServer(t, newSeen().handler(), nil)

	resp, reply := postRPC(t, ts, `{"id":`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, reply.Error)
	assert.Equal(t, ParseError, reply.Error.Code)

	getResp, err := http.Get(ts.URL + "/rpc")
	require.NoError(t, err)
	getResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, getResp.StatusCode)
}

func TestServer_RegistryList(t *testing.T) {
	_, ts := newTestServer(t, newSeen().handler(), nil)

	_, reply := postRPC(t, ts, `{"id":"1","method":"registry.list"}`, nil)
	require.Nil(t, reply.Error)

	var all struct {
		Tools      []string `json:"tools"`
		Operations []struct {
			Tool      string `json:"tool"`
			Operation string `json:"operation"`
		} `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(reply.Result, &all))
	assert.Equal(t, []string{"algorithm", "calculator", "converter"}, all.Tools)
	assert.NotEmpty(t, all.Operations)

	_, reply = postRPC(t, ts, `{"id":"2","method":"registry.list","params":{"tool":" Converter "}}`, nil)
	require.Nil(t, reply.Error)

	var one struct {
		Tools      []string `json:"tools"`
		Operations []struct {
			Tool string `json:"tool"`
		} `json:"operations"`
	}
	require.NoError(t, json.Unmarshal(reply.Result, &one))
	assert.Equal(t, []string{"converter"}, one.Tools)
	for _, op := range one.Operations {
		assert.Equal(t, "converter", op.Tool)
	}
}

func TestServer_SharedSecret(t *testing.T) {
	_, ts := newTestServer(t, newSeen().handler(), func(cfg *Config) {
		cfg.SharedSecret = "s3cret"
	})
	body := `{"id":"1","method":"registry.list"}`

	resp, _ := postRPC(t, ts, body, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postRPC(t, ts, body, map[string]string{SecretHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, reply := postRPC(t, ts, body, map[string]string{SecretHeader: "s3cret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, reply.Error)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	_, wsResp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, wsResp)
	assert.Equal(t, http.StatusUnauthorized, wsResp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{SecretHeader: []string{"s3cret"}})
	require.NoError(t, err)
	conn.Close()
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServer_WebSocketConcurrentQueries(t *testing.T) {
	s := newSeen()
	srv, ts := newTestServer(t, s.handler(), nil)
	conn := dialWS(t, ts)

	queries := map[string]string{"a": "1+1", "b": "10 km in miles", "c": "gcd of 18 and 12"}
	for id, q := range queries {
		require.NoError(t, conn.WriteJSON(RPCRequest{ID: id, Method: MethodQueryHandle, Params: map[string]interface{}{"query": q}}))
	}

	got := map[string]queryReply{}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for range queries {
		var reply rpcReply
		require.NoError(t, conn.ReadJSON(&reply))
		require.Nil(t, reply.Error)

		var result queryReply
		require.NoError(t, json.Unmarshal(reply.Result, &result))
		got[reply.ID] = result
	}

	for id, q := range queries {
		assert.Equal(t, q, got[id].Outcome.Query)
		assert.Equal(t, "answer to "+q, got[id].Message)
	}

	s.mu.Lock()
	clientID := s.clients["1+1"]
	for _, q := range queries {
		assert.Equal(t, clientID, s.clients[q], "one connection, one client id")
	}
	assert.Equal(t, "b", s.requests["10 km in miles"])
	s.mu.Unlock()

	infos := srv.Clients()
	require.Len(t, infos, 1)
	assert.Equal(t, clientID, infos[0].ID)

	conn.Close()
	assert.Eventually(t, func() bool { return len(srv.Clients()) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_WebSocketErrors(t *testing.T) {
	_, ts := newTestServer(t, newSeen().handler(), nil)
	conn := dialWS(t, ts)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	var reply rpcReply
	require.NoError(t, conn.ReadJSON(&reply))
	require.NotNil(t, reply.Error)
	assert.Equal(t, ParseError, reply.Error.Code)

	require.NoError(t, conn.WriteJSON(RPCRequest{ID: "x", Method: "nope"}))
	reply = rpcReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	require.NotNil(t, reply.Error)
	assert.Equal(t, "x", reply.ID)
	assert.Equal(t, MethodNotFound, reply.Error.Code)
}

func TestServer_WebSocketConcurrencyLimit(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	h := handlerFunc(func(ctx context.Context, text string) pipeline.Outcome {
		started <- struct{}{}
		<-release
		return pipeline.Outcome{Query: text, Summary: "done"}
	})

	_, ts := newTestServer(t, h, func(cfg *Config) {
		cfg.MaxConcurrent = 1
	})
	conn := dialWS(t, ts)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(RPCRequest{ID: "slow", Method: MethodQueryHandle, Params: map[string]interface{}{"query": "slow"}}))
	<-started

	require.NoError(t, conn.WriteJSON(RPCRequest{ID: "fast", Method: MethodQueryHandle, Params: map[string]interface{}{"query": "fast"}}))
	var rejected rpcReply
	require.NoError(t, conn.ReadJSON(&rejected))
	assert.Equal(t, "fast", rejected.ID)
	require.NotNil(t, rejected.Error)
	assert.Equal(t, TooManyConcurrent, rejected.Error.Code)

	close(release)
	var done rpcReply
	require.NoError(t, conn.ReadJSON(&done))
	assert.Equal(t, "slow", done.ID)
	assert.Nil(t, done.Error)
}

func TestServer_StartStop(t *testing.T) {
	reg, err := tools.DefaultRegistry(nil)
	require.NoError(t, err)
	logger := zerolog.Nop()

	srv, err := NewServer(Config{Host: "127.0.0.1", Port: 0, Handler: newSeen().handler(), Registry: reg, Logger: &logger})
	require.NoError(t, err)
	require.NoError(t, srv.Start())

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop())

	resp, err = http.Post("http://"+srv.Addr()+"/rpc", "application/json", strings.NewReader(`{"id":"1","method":"registry.list"}`))
	if err == nil {
		resp.Body.Close()
		assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	}
}
