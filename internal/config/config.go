package config

import (
	"time"

	"github.com/harun/mathroute/pkg/completion"
	"github.com/harun/mathroute/pkg/registry"
	"gopkg.in/yaml.v3"
)

// Config is the complete mathroute configuration
type Config struct {
	Completion completion.Config `json:"completion" yaml:"completion" mapstructure:"completion"`
	Pipeline   PipelineConfig    `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Tools      registry.Policy   `json:"tools" yaml:"tools" mapstructure:"tools"`
	Server     ServerConfig      `json:"server" yaml:"server" mapstructure:"server"`
	Logging    LoggingConfig     `json:"logging" yaml:"logging" mapstructure:"logging"`
	Tracing    TracingConfig     `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
}

// PipelineConfig tunes query handling
type PipelineConfig struct {
	// Summarize runs the second completion round. When false the fallback
	// "<tool>.<operation> = <value>" line is the answer.
	Summarize bool `json:"summarize" yaml:"summarize" mapstructure:"summarize"`

	// RepairAttempts is the number of extra routing rounds after a rejected
	// reply. 0 disables repair.
	RepairAttempts int `json:"repair_attempts" yaml:"repair_attempts" mapstructure:"repair_attempts"`
}

// ServerConfig holds JSON-RPC server configuration
type ServerConfig struct {
	Host              string `json:"host" yaml:"host" mapstructure:"host"`
	Port              int    `json:"port" yaml:"port" mapstructure:"port"`
	SharedSecret      string `json:"shared_secret" yaml:"shared_secret" mapstructure:"shared_secret"`
	RequestsPerMinute int    `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	MaxConcurrent     int    `json:"max_concurrent" yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" yaml:"level" mapstructure:"level"`
	File      string `json:"file" yaml:"file" mapstructure:"file"`
	Console   bool   `json:"console" yaml:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" yaml:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" yaml:"redaction" mapstructure:"redaction"`
	MaxSizeMB int    `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxAge    int    `json:"max_age" yaml:"max_age" mapstructure:"max_age"` // days
	Compress  bool   `json:"compress" yaml:"compress" mapstructure:"compress"`
	AuditFile string `json:"audit_file" yaml:"audit_file" mapstructure:"audit_file"`
}

// TracingConfig controls the OpenTelemetry tracer provider
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
}

// DefaultConfig returns a config with default values. The default provider
// is a local Ollama server, so no credentials are needed out of the box.
func DefaultConfig() *Config {
	return &Config{
		Completion: completion.Config{
			Provider:    completion.ProviderOllama,
			Model:       completion.DefaultModel(completion.ProviderOllama),
			BaseURL:     completion.DefaultOllamaBaseURL,
			Timeout:     completion.DefaultTimeout,
			Temperature: 0,
			MaxTokens:   1024,
		},
		Pipeline: PipelineConfig{
			Summarize:      true,
			RepairAttempts: 0,
		},
		Tools: registry.Policy{
			Allow: []string{"*"},
			Deny:  []string{},
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              7420,
			RequestsPerMinute: 60,
			MaxConcurrent:     4,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
			MaxSizeMB: 50,
			MaxAge:    7,
			Compress:  true,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "mathroute",
		},
	}
}

// Redacted returns a copy with credentials masked, for display.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Tools.Allow = append([]string(nil), c.Tools.Allow...)
	cp.Tools.Deny = append([]string(nil), c.Tools.Deny...)
	if cp.Completion.APIKey != "" {
		cp.Completion.APIKey = "********"
	}
	if cp.Server.SharedSecret != "" {
		cp.Server.SharedSecret = "********"
	}
	return &cp
}

// String renders the redacted config as YAML
func (c *Config) String() string {
	data, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// CompletionTimeout returns the per-round timeout, defaulting when unset.
func (c *Config) CompletionTimeout() time.Duration {
	if c.Completion.Timeout <= 0 {
		return completion.DefaultTimeout
	}
	return c.Completion.Timeout
}
