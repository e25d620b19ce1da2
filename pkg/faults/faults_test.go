package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Is(t *testing.T) {
	t.Run("matches sentinel of same kind", func(t *testing.T) {
		err := New(MissingArgument, "value", "argument is required")
		assert.True(t, errors.Is(err, ErrMissingArgument))
		assert.False(t, errors.Is(err, ErrTypeMismatch))
	})

	t.Run("validation kinds match routing failed", func(t *testing.T) {
		for _, kind := range []Kind{NoJSONFound, SchemaViolation, UnknownOperation, MissingArgument, TypeMismatch} {
			assert.True(t, errors.Is(New(kind, "", "x"), ErrRoutingFailed), kind)
		}
	})

	t.Run("execution and transport kinds do not match routing failed", func(t *testing.T) {
		for _, kind := range []Kind{GatewayTimeout, GatewayUnavailable, UnsafeExpression, UnsupportedConversion, InvalidDomain} {
			assert.False(t, errors.Is(New(kind, "", "x"), ErrRoutingFailed), kind)
		}
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("round 1: %w", New(GatewayTimeout, "", "deadline"))
		assert.True(t, errors.Is(err, ErrGatewayTimeout))
		assert.Equal(t, GatewayTimeout, KindOf(err))
	})
}

func TestError_Error(t *testing.T) {
	err := New(TypeMismatch, "value", "expected number, got %s", "bool")
	assert.Equal(t, "TypeMismatch (value): expected number, got bool", err.Error())

	cause := errors.New("connection refused")
	wrapped := Wrap(GatewayUnavailable, cause, "completion service unreachable")
	assert.Equal(t, "GatewayUnavailable: completion service unreachable: connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))

	fe, ok := As(New(InvalidDomain, "a", "negative"))
	require.True(t, ok)
	assert.Equal(t, "a", fe.Field)
}

func TestKind_Layer(t *testing.T) {
	assert.Equal(t, LayerTransport, GatewayTimeout.Layer())
	assert.Equal(t, LayerValidation, NoJSONFound.Layer())
	assert.Equal(t, LayerExecution, UnsafeExpression.Layer())
}
