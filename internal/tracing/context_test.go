package tracing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	if id1 == "" {
		t.Error("NewTraceID returned empty string")
	}

	if id1 == id2 {
		t.Error("NewTraceID returned duplicate IDs")
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithClientID(ctx, "client-1")

	tc := FromContext(ctx)
	if tc.TraceID != "trace-1" {
		t.Errorf("Expected trace ID trace-1, got %s", tc.TraceID)
	}
	if tc.RequestID != "req-1" {
		t.Errorf("Expected request ID req-1, got %s", tc.RequestID)
	}
	if tc.ClientID != "client-1" {
		t.Errorf("Expected client ID client-1, got %s", tc.ClientID)
	}
}

func TestGetFromEmptyContext(t *testing.T) {
	ctx := context.Background()

	if GetTraceID(ctx) != "" || GetRequestID(ctx) != "" || GetClientID(ctx) != "" {
		t.Error("Expected empty values from empty context")
	}
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	traceID := GetTraceID(ctx)
	if traceID == "" {
		t.Fatal("EnsureTraceID did not set a trace ID")
	}

	if got := GetTraceID(EnsureTraceID(ctx)); got != traceID {
		t.Errorf("EnsureTraceID replaced existing trace ID %s with %s", traceID, got)
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTraceID(context.Background(), "trace-xyz")
	ctx = WithClientID(ctx, "client-abc")

	logger := LoggerFromContext(ctx, base)
	logger.Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"trace_id":"trace-xyz"`) {
		t.Errorf("Expected trace_id in log output, got %s", out)
	}
	if !strings.Contains(out, `"client_id":"client-abc"`) {
		t.Errorf("Expected client_id in log output, got %s", out)
	}
	if strings.Contains(out, "request_id") {
		t.Errorf("Did not expect request_id in log output, got %s", out)
	}
}

func TestStartSpan(t *testing.T) {
	if err := InitOpenTelemetry("mathroute-test"); err != nil {
		t.Fatalf("InitOpenTelemetry failed: %v", err)
	}

	ctx, span := StartSpan(context.Background(), "test.span")
	if GetTraceID(ctx) == "" {
		t.Error("StartSpan did not store a trace ID")
	}
	EndSpan(span, errors.New("boom"))

	ctx = WithTraceID(context.Background(), "fixed")
	ctx, span = StartSpan(ctx, "test.span")
	if GetTraceID(ctx) != "fixed" {
		t.Errorf("StartSpan replaced existing trace ID, got %s", GetTraceID(ctx))
	}
	EndSpan(span, nil)
}
