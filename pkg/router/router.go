// Package router dispatches validated instructions to the engine registered
// for their (tool, operation) pair.
package router

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harun/mathroute/internal/observability"
	"github.com/harun/mathroute/internal/tracing"
	"github.com/harun/mathroute/pkg/faults"
	"github.com/harun/mathroute/pkg/instruction"
	"github.com/harun/mathroute/pkg/registry"
)

// Router executes instructions against an injected registry. It holds no
// mutable state and is safe for concurrent use.
type Router struct {
	registry *registry.Registry
}

// New creates a router over reg
func New(reg *registry.Registry) *Router {
	return &Router{registry: reg}
}

// Registry returns the registry the router dispatches to
func (r *Router) Registry() *registry.Registry {
	return r.registry
}

// Execute runs the engine behind inst. Failures, including engine panics,
// are reported in the result; Execute never returns an error.
func (r *Router) Execute(ctx context.Context, inst *instruction.Instruction) ExecutionResult {
	if inst == nil {
		return failed("", "", faults.New(faults.RoutingFailed, "", "no instruction to execute"))
	}
	if inst.IsClarify() {
		return failed(inst.Tool(), "", faults.New(faults.RoutingFailed, "tool", "clarify instructions do not execute"))
	}

	ctx, span := tracing.StartSpan(ctx, "router.execute",
		attribute.String("tool", inst.Tool()),
		attribute.String("operation", inst.Operation()),
	)
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	result := r.execute(inst)

	observability.RecordEngineExecution(result.Tool, result.Operation, result.Duration, result.OK())

	if result.OK() {
		logger.Debug().
			Str("tool", result.Tool).
			Str("operation", result.Operation).
			Dur("duration", result.Duration).
			Msg("Engine executed")
		tracing.EndSpan(span, nil)
	} else {
		logger.Info().
			Str("tool", result.Tool).
			Str("operation", result.Operation).
			Str("kind", string(result.ErrorKind)).
			Str("detail", result.ErrorDetail).
			Dur("duration", result.Duration).
			Msg("Engine rejected input")
		tracing.EndSpan(span, result.err)
	}

	return result
}

func (r *Router) execute(inst *instruction.Instruction) ExecutionResult {
	tool, operation := inst.Tool(), inst.Operation()

	op, ok := r.registry.Lookup(tool, operation)
	if !ok {
		return failed(tool, operation, faults.New(faults.UnknownOperation, "operation", "operation not registered: %s.%s", tool, operation))
	}

	args := inst.Arguments()
	if err := r.registry.ValidateArguments(tool, operation, args); err != nil {
		return failed(op.Tool, op.Name, faults.Wrap(faults.TypeMismatch, err, "arguments do not match %s", op.Key()))
	}

	start := time.Now()
	value, err := invoke(op, args)
	elapsed := time.Since(start)

	if err == nil {
		if f, isFloat := value.(float64); isFloat && (math.IsNaN(f) || math.IsInf(f, 0)) {
			err = faults.New(faults.InvalidDomain, "", "%s produced a non-finite result", op.Key())
		}
	}

	if err != nil {
		fe, ok := faults.As(err)
		if !ok {
			fe = faults.Wrap(faults.InvalidDomain, err, "%s failed", op.Key())
		}
		res := failed(op.Tool, op.Name, fe)
		res.Duration = elapsed
		return res
	}

	return ExecutionResult{
		Value:     value,
		Tool:      op.Tool,
		Operation: op.Name,
		Status:    StatusOK,
		Duration:  elapsed,
	}
}

func invoke(op registry.Operation, args registry.Args) (value interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("operation", op.Key()).
				Interface("panic", rec).
				Msg("Engine panicked")
			value = nil
			err = faults.Wrap(faults.InvalidDomain, fmt.Errorf("panic: %v", rec), "%s failed", op.Key())
		}
	}()
	return op.Func(args)
}
