package config

import (
	"testing"
	"time"

	"github.com/harun/mathroute/pkg/completion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, completion.ProviderOllama, cfg.Completion.Provider)
	assert.Equal(t, "llama3.1", cfg.Completion.Model)
	assert.Equal(t, completion.DefaultOllamaBaseURL, cfg.Completion.BaseURL)
	assert.Equal(t, completion.DefaultTimeout, cfg.Completion.Timeout)
	assert.True(t, cfg.Pipeline.Summarize)
	assert.Equal(t, 0, cfg.Pipeline.RepairAttempts)
	assert.Equal(t, []string{"*"}, cfg.Tools.Allow)
	assert.Equal(t, 7420, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Tracing.Enabled)

	assert.NoError(t, cfg.Validate())
}

func TestConfigRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Completion.APIKey = "sk-live-key"
	cfg.Server.SharedSecret = "hunter2"

	out := cfg.String()
	assert.NotContains(t, out, "sk-live-key")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "provider: ollama")

	// original untouched
	assert.Equal(t, "sk-live-key", cfg.Completion.APIKey)

	red := cfg.Redacted()
	red.Tools.Allow[0] = "calculator"
	assert.Equal(t, "*", cfg.Tools.Allow[0])
}

func TestCompletionTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Completion.Timeout = 0
	assert.Equal(t, completion.DefaultTimeout, cfg.CompletionTimeout())

	cfg.Completion.Timeout = 5 * time.Second
	assert.Equal(t, 5*time.Second, cfg.CompletionTimeout())
}
