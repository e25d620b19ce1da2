package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/mathroute/internal/config"
	"github.com/harun/mathroute/internal/logger"
	"github.com/harun/mathroute/internal/observability"
	"github.com/harun/mathroute/internal/tracing"
	"github.com/harun/mathroute/pkg/completion"
	"github.com/harun/mathroute/pkg/pipeline"
	"github.com/harun/mathroute/pkg/registry"
	"github.com/harun/mathroute/pkg/tools"
	"github.com/rs/zerolog"
)

// newCompleter builds the completion gateway for a config. Tests replace it.
var newCompleter = func(cfg completion.Config) (completion.Completer, error) {
	provider, err := completion.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return completion.NewGateway(provider, cfg), nil
}

// app is everything a command needs, built in dependency order:
// config, logger, audit, tracing, registry, completer, pipeline.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	registry *registry.Registry
	pipeline *pipeline.Pipeline
	closers  []func()
}

// loadConfig loads and validates the config, applying --log-level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildRegistry applies the configured tool policy to the built-in engines.
func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	policy := cfg.Tools
	policy.Validate()
	return tools.DefaultRegistry(&policy)
}

// bootstrap wires the full runtime. withPipeline=false stops after the
// registry, for commands that never call a model.
func bootstrap(withPipeline bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = lg
	a.closers = append(a.closers, func() { _ = lg.Close() })

	if cfg.Logging.AuditFile != "" {
		if err := observability.InitAuditLogger(cfg.Logging.AuditFile); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		a.closers = append(a.closers, func() { _ = observability.GetAuditLogger().Close() })
	}

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.closers = append(a.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tracing.ShutdownOpenTelemetry(ctx)
		})
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry = reg

	if !withPipeline {
		return a, nil
	}

	completer, err := newCompleter(cfg.Completion)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create completion provider: %w", err)
	}

	zl := lg.Zerolog()
	p, err := pipeline.New(pipeline.Config{
		Completer:      completer,
		Registry:       reg,
		Repair:         pipeline.RepairPolicy{MaxAttempts: cfg.Pipeline.RepairAttempts},
		DisableSummary: !cfg.Pipeline.Summarize,
		Logger:         &zl,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline = p

	zl.Debug().
		Str("provider", completer.Provider()).
		Int("operations", reg.Len()).
		Int("repair_attempts", cfg.Pipeline.RepairAttempts).
		Msg("Runtime ready")

	return a, nil
}

func (a *app) logger() zerolog.Logger {
	return a.log.Zerolog()
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
