package completion

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/mathroute/internal/tracing"
	"github.com/harun/mathroute/pkg/faults"
)

// DefaultTimeout bounds a completion call when none is configured.
const DefaultTimeout = 60 * time.Second

// Completer is the contract the pipeline depends on.
type Completer interface {
	Complete(ctx context.Context, systemContract string, messages []Message) (string, error)
	Provider() string
}

// Gateway sends one conversation to a provider under a time budget and
// classifies failures into the transport fault kinds.
type Gateway struct {
	provider    Provider
	model       string
	timeout     time.Duration
	temperature float64
	maxTokens   int
}

// NewGateway creates a gateway around provider. Zero values in cfg fall
// back to DefaultModel and DefaultTimeout.
func NewGateway(provider Provider, cfg Config) *Gateway {
	model := cfg.Model
	if model == "" {
		model = DefaultModel(provider.Provider())
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		provider:    provider,
		model:       model,
		timeout:     timeout,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Provider returns the underlying provider name
func (g *Gateway) Provider() string {
	return g.provider.Provider()
}

// Model returns the model sent with every request
func (g *Gateway) Model() string {
	return g.model
}

// Complete returns the raw completion text.
func (g *Gateway) Complete(ctx context.Context, systemContract string, messages []Message) (string, error) {
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	temperature := g.temperature

	start := time.Now()
	text, err := g.provider.Call(callCtx, Request{
		Model:        g.model,
		SystemPrompt: systemContract,
		Messages:     messages,
		Temperature:  &temperature,
		MaxTokens:    g.maxTokens,
	})
	elapsed := time.Since(start)

	if err != nil {
		ferr := classify(callCtx, err)
		logger.Warn().
			Err(err).
			Str("provider", g.provider.Provider()).
			Str("kind", string(ferr.Kind)).
			Dur("duration", elapsed).
			Msg("Completion call failed")
		return "", ferr
	}

	if strings.TrimSpace(text) == "" {
		logger.Warn().Str("provider", g.provider.Provider()).Msg("Completion returned no text")
		return "", faults.New(faults.GatewayUnavailable, "", "completion service returned an empty reply")
	}

	logger.Debug().
		Str("provider", g.provider.Provider()).
		Str("model", g.model).
		Int("chars", len(text)).
		Dur("duration", elapsed).
		Msg("Completion received")

	return text, nil
}

func classify(callCtx context.Context, err error) *faults.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return faults.Wrap(faults.GatewayTimeout, err, "completion service did not answer in time")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return faults.Wrap(faults.GatewayTimeout, err, "completion service did not answer in time")
	}

	return faults.Wrap(faults.GatewayUnavailable, err, "completion service unavailable")
}
