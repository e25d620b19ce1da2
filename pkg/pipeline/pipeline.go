package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harun/mathroute/internal/observability"
	"github.com/harun/mathroute/internal/tracing"
	"github.com/harun/mathroute/pkg/completion"
	"github.com/harun/mathroute/pkg/contract"
	"github.com/harun/mathroute/pkg/faults"
	"github.com/harun/mathroute/pkg/instruction"
	"github.com/harun/mathroute/pkg/registry"
	"github.com/harun/mathroute/pkg/router"
)

// Completion rounds, used as metric labels
const (
	roundRoute   = "1"
	roundSummary = "2"
)

// RepairPolicy controls re-prompting after a rejected reply. MaxAttempts is
// the number of extra routing rounds; zero disables repair. Transport
// failures are never repaired.
type RepairPolicy struct {
	MaxAttempts int `json:"max_attempts" mapstructure:"max_attempts"`
}

// Handler is implemented by Pipeline and consumed by the server and CLI.
type Handler interface {
	HandleQuery(ctx context.Context, text string) Outcome
}

// Config holds pipeline dependencies
type Config struct {
	Completer      completion.Completer
	Registry       *registry.Registry
	Repair         RepairPolicy
	DisableSummary bool
	Logger         *zerolog.Logger
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	completer      completion.Completer
	parser         *instruction.Parser
	router         *router.Router
	systemPrompt   string
	repair         RepairPolicy
	disableSummary bool
	logger         zerolog.Logger
}

// New creates a pipeline. The routing contract is rendered once from the
// registry.
func New(cfg Config) (*Pipeline, error) {
	observability.EnsureRegistered()

	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Repair.MaxAttempts < 0 {
		return nil, fmt.Errorf("repair attempts cannot be negative")
	}

	parser, err := instruction.NewParser(cfg.Registry)
	if err != nil {
		return nil, err
	}

	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Pipeline{
		completer:      cfg.Completer,
		parser:         parser,
		router:         router.New(cfg.Registry),
		systemPrompt:   contract.SystemPrompt(cfg.Registry),
		repair:         cfg.Repair,
		disableSummary: cfg.DisableSummary,
		logger:         logger,
	}, nil
}

// SystemPrompt returns the rendered routing contract
func (p *Pipeline) SystemPrompt() string {
	return p.systemPrompt
}

// Registry returns the registry the pipeline routes to
func (p *Pipeline) Registry() *registry.Registry {
	return p.router.Registry()
}

// HandleQuery answers one natural-language query.
func (p *Pipeline) HandleQuery(ctx context.Context, text string) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = tracing.EnsureTraceID(ctx)
	ctx, span := tracing.StartSpan(ctx, "pipeline.handle")
	logger := tracing.LoggerFromContext(ctx, p.logger)

	start := time.Now()
	outcome := Outcome{
		Query:   text,
		TraceID: tracing.GetTraceID(ctx),
	}

	p.handle(ctx, logger, &outcome)

	outcome.Duration = time.Since(start)

	kind := ""
	if outcome.Error != nil {
		kind = string(outcome.Error.Kind)
		tracing.EndSpan(span, outcome.Error)
	} else {
		tracing.EndSpan(span, nil)
	}
	observability.RecordQuery(outcome.Status(), kind, outcome.Duration)
	p.audit(ctx, outcome)

	logger.Info().
		Str("status", outcome.Status()).
		Str("kind", kind).
		Int("attempts", outcome.Attempts).
		Dur("duration", outcome.Duration).
		Msg("Query handled")

	return outcome
}

func (p *Pipeline) handle(ctx context.Context, logger zerolog.Logger, outcome *Outcome) {
	if strings.TrimSpace(outcome.Query) == "" {
		outcome.Clarification = instruction.FallbackQuestion
		return
	}

	inst, ferr := p.route(ctx, logger, outcome)
	if ferr != nil {
		outcome.Error = ferr
		return
	}
	outcome.Instruction = inst

	if inst.IsClarify() {
		outcome.Clarification = inst.Question()
		return
	}

	result := p.router.Execute(ctx, inst)
	outcome.Result = &result
	if !result.OK() {
		outcome.Error = result.Err()
		return
	}

	outcome.Summary, outcome.SummaryDegraded = p.summarize(ctx, logger, outcome.Query, inst, result)
}

// route runs the routing round, re-prompting under the repair policy.
func (p *Pipeline) route(ctx context.Context, logger zerolog.Logger, outcome *Outcome) (*instruction.Instruction, *faults.Error) {
	messages := []completion.Message{completion.UserMessage(outcome.Query)}

	for {
		outcome.Attempts++

		reply, err := p.complete(ctx, "completion.round1", roundRoute, p.systemPrompt, messages)
		if err != nil {
			return nil, asFault(err)
		}

		inst, err := p.parse(ctx, reply)
		if err == nil {
			return inst, nil
		}

		if outcome.Attempts > p.repair.MaxAttempts {
			return nil, asFault(err)
		}

		logger.Debug().
			Err(err).
			Int("attempt", outcome.Attempts).
			Msg("Reply rejected, re-prompting")
		messages = append(messages, contract.RepairMessages(reply, err)...)
	}
}

func (p *Pipeline) parse(ctx context.Context, reply string) (*instruction.Instruction, error) {
	_, span := tracing.StartSpan(ctx, "instruction.parse")
	inst, err := p.parser.Parse(reply)
	if inst != nil {
		span.SetAttributes(attribute.String("instruction", inst.Key()))
	}
	tracing.EndSpan(span, err)
	return inst, err
}

func (p *Pipeline) complete(ctx context.Context, spanName, round, system string, messages []completion.Message) (string, error) {
	ctx, span := tracing.StartSpan(ctx, spanName, attribute.String("provider", p.completer.Provider()))

	start := time.Now()
	reply, err := p.completer.Complete(ctx, system, messages)
	observability.RecordCompletion(p.completer.Provider(), round, time.Since(start), err == nil)

	tracing.EndSpan(span, err)
	return reply, err
}

// summarize phrases the result; any failure degrades to the deterministic
// fallback.
func (p *Pipeline) summarize(ctx context.Context, logger zerolog.Logger, query string, inst *instruction.Instruction, result router.ExecutionResult) (string, bool) {
	if p.disableSummary {
		return result.Fallback(), false
	}

	reply, err := p.complete(ctx, "completion.round2", roundSummary, contract.SummaryPrompt, contract.SummaryMessages(query, describe(inst, result)))
	if err != nil {
		logger.Warn().Err(err).Msg("Summary failed, using fallback")
		return result.Fallback(), true
	}

	summary := strings.TrimSpace(reply)
	if summary == "" {
		return result.Fallback(), true
	}
	return summary, false
}

// describe renders "tool.operation(arg=value, ...) = value" for the summary
// round.
func describe(inst *instruction.Instruction, result router.ExecutionResult) string {
	args := inst.Arguments()
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+router.FormatValue(args[name]))
	}
	return fmt.Sprintf("%s(%s) = %s", inst.Key(), strings.Join(parts, ", "), result.Text())
}

func (p *Pipeline) audit(ctx context.Context, outcome Outcome) {
	target := "none"
	if outcome.Instruction != nil {
		target = outcome.Instruction.Key()
	}

	actor := tracing.GetClientID(ctx)
	if actor == "" {
		actor = "local"
	}

	metadata := map[string]interface{}{
		"attempts": outcome.Attempts,
	}
	if outcome.Error != nil {
		metadata["kind"] = string(outcome.Error.Kind)
	}
	if outcome.Result != nil && outcome.Result.OK() {
		metadata["value"] = outcome.Result.Text()
	}

	observability.RecordQueryAudit(ctx, actor, target, outcome.Status(), outcome.TraceID, metadata)
}

func asFault(err error) *faults.Error {
	if fe, ok := faults.As(err); ok {
		return fe
	}
	return faults.Wrap(faults.GatewayUnavailable, err, "completion failed")
}
