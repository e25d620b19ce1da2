package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harun/mathroute/pkg/faults"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Call(ctx context.Context, request Request) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) Provider() string {
	return "mock"
}

func TestGateway_Complete(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Call", mock.Anything, mock.MatchedBy(func(r Request) bool {
		return r.Model == "llama3.1" &&
			r.SystemPrompt == "contract" &&
			len(r.Messages) == 1 &&
			r.Messages[0].Content == "17*3+2"
	})).Return(`{"tool":"calculator"}`, nil).Once()

	gw := NewGateway(provider, Config{Model: "llama3.1", Timeout: time.Second})
	text, err := gw.Complete(context.Background(), "contract", []Message{UserMessage("17*3+2")})

	require.NoError(t, err)
	assert.Equal(t, `{"tool":"calculator"}`, text)
	provider.AssertExpectations(t)
}

func TestGateway_CallHasDeadline(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Call", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return("ok", nil).Once()

	gw := NewGateway(provider, Config{Timeout: time.Second})
	_, err := gw.Complete(context.Background(), "", nil)
	require.NoError(t, err)
	provider.AssertExpectations(t)
}

func TestGateway_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want *faults.Error
	}{
		{name: "refused", err: errors.New("dial tcp: connection refused"), want: faults.ErrGatewayUnavailable},
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), want: faults.ErrGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := new(mockProvider)
			provider.On("Call", mock.Anything, mock.Anything).Return("", tt.err).Once()

			gw := NewGateway(provider, Config{Timeout: time.Second})
			_, err := gw.Complete(context.Background(), "", nil)

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.False(t, errors.Is(err, faults.ErrRoutingFailed))
			provider.AssertNumberOfCalls(t, "Call", 1)
		})
	}
}

func TestGateway_EmptyReplyIsUnavailable(t *testing.T) {
	provider := new(mockProvider)
	provider.On("Call", mock.Anything, mock.Anything).Return("  \n", nil)

	gw := NewGateway(provider, Config{})
	_, err := gw.Complete(context.Background(), "", nil)
	assert.True(t, errors.Is(err, faults.ErrGatewayUnavailable))
}

func TestNewGateway_Defaults(t *testing.T) {
	gw := NewGateway(new(mockProvider), Config{})
	assert.Equal(t, "llama3.1", gw.Model())
	assert.Equal(t, DefaultTimeout, gw.timeout)
	assert.Equal(t, "mock", gw.Provider())
}

func chatCompletionHandler(t *testing.T, content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "llama3.1",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": %q}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`, content)
	}
}

func TestOpenAIProvider_AgainstCompatibleServer(t *testing.T) {
	srv := httptest.NewServer(chatCompletionHandler(t, `{"tool":"calculator","operation":"evaluate","arguments":{"expression":"17*3+2"}}`))
	defer srv.Close()

	provider, err := NewProvider(Config{Provider: ProviderOllama, BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, provider.Provider())

	gw := NewGateway(provider, Config{Timeout: 5 * time.Second})
	text, err := gw.Complete(context.Background(), "contract", []Message{UserMessage("What is 17 times 3 plus 2?")})
	require.NoError(t, err)
	assert.Contains(t, text, `"expression":"17*3+2"`)
}

// captureBody records the decoded JSON body of every request before handing
// it to next.
func captureBody(t *testing.T, bodies chan<- map[string]interface{}, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var body map[string]interface{}
		assert.NoError(t, json.Unmarshal(raw, &body))
		bodies <- body
		next(w, r)
	}
}

func TestOpenAIProvider_SendsZeroTemperature(t *testing.T) {
	bodies := make(chan map[string]interface{}, 1)
	srv := httptest.NewServer(captureBody(t, bodies, chatCompletionHandler(t, "ok")))
	defer srv.Close()

	gw := NewGateway(NewOpenAIProvider(ProviderOllama, "ollama", srv.URL+"/"), Config{Timeout: 5 * time.Second, Temperature: 0})
	_, err := gw.Complete(context.Background(), "contract", []Message{UserMessage("hi")})
	require.NoError(t, err)

	body := <-bodies
	temperature, ok := body["temperature"]
	require.True(t, ok, "temperature missing from request body")
	assert.Equal(t, 0.0, temperature)
}

func TestOpenAIProvider_SendsConfiguredTemperature(t *testing.T) {
	bodies := make(chan map[string]interface{}, 1)
	srv := httptest.NewServer(captureBody(t, bodies, chatCompletionHandler(t, "ok")))
	defer srv.Close()

	gw := NewGateway(NewOpenAIProvider(ProviderOpenAI, "test-key", srv.URL+"/"), Config{Timeout: 5 * time.Second, Temperature: 0.7})
	_, err := gw.Complete(context.Background(), "", []Message{UserMessage("hi")})
	require.NoError(t, err)

	assert.Equal(t, 0.7, (<-bodies)["temperature"])
}

func TestAnthropicProvider_SendsZeroTemperature(t *testing.T) {
	bodies := make(chan map[string]interface{}, 1)
	srv := httptest.NewServer(captureBody(t, bodies, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "ok"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 1}
		}`))
	}))
	defer srv.Close()

	gw := NewGateway(NewAnthropicProvider("test-key", srv.URL+"/"), Config{Timeout: 5 * time.Second})
	text, err := gw.Complete(context.Background(), "contract", []Message{UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	body := <-bodies
	temperature, ok := body["temperature"]
	require.True(t, ok, "temperature missing from request body")
	assert.Equal(t, 0.0, temperature)
}

func TestOpenAIProvider_ServerErrorIsUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"model not loaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	gw := NewGateway(NewOpenAIProvider(ProviderOpenAI, "test-key", srv.URL+"/"), Config{Timeout: 5 * time.Second})
	_, err := gw.Complete(context.Background(), "", []Message{UserMessage("hi")})

	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrGatewayUnavailable), "got %v", err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenAIProvider_SlowServerIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	gw := NewGateway(NewOpenAIProvider(ProviderOllama, "ollama", srv.URL+"/"), Config{Timeout: 50 * time.Millisecond})
	_, err := gw.Complete(context.Background(), "", []Message{UserMessage("hi")})

	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrGatewayTimeout), "got %v", err)
}

func TestOpenAIProvider_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	gw := NewGateway(NewOpenAIProvider(ProviderOllama, "ollama", url+"/"), Config{Timeout: 2 * time.Second})
	_, err := gw.Complete(context.Background(), "", []Message{UserMessage("hi")})

	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrGatewayUnavailable), "got %v", err)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, p.Provider())

	p, err = NewProvider(Config{Provider: "Anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, p.Provider())

	_, err = NewProvider(Config{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewProvider(Config{Provider: "gemini"})
	assert.Error(t, err)
}
