package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harun/mathroute/pkg/completion"
)

// MaxRepairAttempts caps pipeline.repair_attempts; each attempt is another
// paid model round.
const MaxRepairAttempts = 5

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateProvider checks the provider name and its credential.
func (v *Validator) ValidateProvider(cfg completion.Config) error {
	switch strings.ToLower(cfg.Provider) {
	case "", completion.ProviderOllama:
		return nil
	case completion.ProviderOpenAI, completion.ProviderAnthropic:
		if cfg.APIKey == "" {
			return fmt.Errorf("completion.api_key is required for provider %s", cfg.Provider)
		}
		return nil
	default:
		return fmt.Errorf("invalid completion.provider: %s (must be one of: %s, %s, %s)",
			cfg.Provider, completion.ProviderOllama, completion.ProviderOpenAI, completion.ProviderAnthropic)
	}
}

// ValidateTemperature validates the sampling temperature for a provider
func (v *Validator) ValidateTemperature(provider string, temp float64) error {
	limit := 2.0
	if strings.EqualFold(provider, completion.ProviderAnthropic) {
		limit = 1.0
	}
	if temp < 0 || temp > limit {
		return fmt.Errorf("completion.temperature must be between 0 and %g, got %g", limit, temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value; 0 means provider default.
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("completion.max_tokens must be >= 0, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("completion.max_tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if strings.EqualFold(level, valid) {
			return nil
		}
	}
	return fmt.Errorf("invalid logging.level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidatePort validates a listen port; 0 picks a free port.
func (v *Validator) ValidatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", port)
	}
	return nil
}

// ValidatePattern validates a tools.allow or tools.deny entry
func (v *Validator) ValidatePattern(pattern string) error {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return fmt.Errorf("tool pattern cannot be empty")
	}
	if strings.Count(p, ".") > 1 {
		return fmt.Errorf("invalid tool pattern %q (use *, tool, tool.* or tool.operation)", pattern)
	}
	if strings.Contains(p, "*") && p != "*" && !strings.HasSuffix(p, ".*") {
		return fmt.Errorf("invalid tool pattern %q (use *, tool, tool.* or tool.operation)", pattern)
	}
	return nil
}

// ValidateConfig returns every problem found in cfg
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(v.ValidateProvider(cfg.Completion))
	add(v.ValidateTemperature(cfg.Completion.Provider, cfg.Completion.Temperature))
	add(v.ValidateMaxTokens(cfg.Completion.MaxTokens))
	if cfg.Completion.Timeout < 0 {
		add(fmt.Errorf("completion.timeout must be >= 0"))
	}

	if cfg.Pipeline.RepairAttempts < 0 || cfg.Pipeline.RepairAttempts > MaxRepairAttempts {
		add(fmt.Errorf("pipeline.repair_attempts must be between 0 and %d, got %d", MaxRepairAttempts, cfg.Pipeline.RepairAttempts))
	}

	for _, p := range cfg.Tools.Allow {
		add(v.ValidatePattern(p))
	}
	for _, p := range cfg.Tools.Deny {
		add(v.ValidatePattern(p))
	}

	add(v.ValidatePort(cfg.Server.Port))
	if cfg.Server.RequestsPerMinute < 0 {
		add(fmt.Errorf("server.requests_per_minute must be >= 0"))
	}
	if cfg.Server.MaxConcurrent < 0 {
		add(fmt.Errorf("server.max_concurrent must be >= 0"))
	}

	add(v.ValidateLogLevel(cfg.Logging.Level))
	if cfg.Logging.MaxSizeMB < 0 {
		add(fmt.Errorf("logging.max_size_mb must be >= 0"))
	}

	if cfg.Tracing.Enabled && strings.TrimSpace(cfg.Tracing.ServiceName) == "" {
		add(fmt.Errorf("tracing.service_name is required when tracing is enabled"))
	}

	return errs
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}
