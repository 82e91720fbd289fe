package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10.0, cfg.Server.RateLimit)
	assert.Empty(t, cfg.Server.APIToken)

	assert.Equal(t, 100, cfg.Parser.BatchLimit)
	assert.Equal(t, 8, cfg.Parser.Concurrency)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "experiment-designer", cfg.Tracing.ServiceName)
}

func TestGetReturnsDefaultIfNotLoaded(t *testing.T) {
	globalConfig = nil
	configOnce = sync.Once{}

	cfg := Get()
	require.NotNil(t, cfg)
	assert.Same(t, cfg, Get())
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  rate_limit: 2.5
parser:
  batch_limit: 10
logging:
  level: debug
tracing:
  enabled: true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Equal(t, 20, cfg.Server.RateBurst, "unset keys keep their defaults")
	assert.Equal(t, 10, cfg.Parser.BatchLimit)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoadWithMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadWithBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not, a, map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"EXPDESIGN_PORT":          "7000",
		"EXPDESIGN_RATE_LIMIT":    "0",
		"EXPDESIGN_API_TOKEN":     "secret",
		"EXPDESIGN_BATCH_LIMIT":   "oops",
		"EXPDESIGN_CONCURRENCY":   "2",
		"EXPDESIGN_PARSE_TIMEOUT": "5s",
		"EXPDESIGN_LOG_LEVEL":     "warn",
		"EXPDESIGN_TRACING":       "true",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 0.0, cfg.Server.RateLimit)
	assert.Equal(t, "secret", cfg.Server.APIToken)
	assert.Equal(t, 100, cfg.Parser.BatchLimit, "malformed values are ignored")
	assert.Equal(t, 2, cfg.Parser.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Parser.Timeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Tracing.Enabled)
	assert.True(t, cfg.Logging.EnableFile)
}

func TestApplyEnvLambda(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string {
		if k == "AWS_LAMBDA_FUNCTION_NAME" {
			return "experiment-designer"
		}
		return ""
	})
	assert.False(t, cfg.Logging.EnableFile)
	assert.False(t, cfg.Logging.EnableColor)
}

func TestParseSecret(t *testing.T) {
	assert.Equal(t, "abc", ParseSecret(`{"EXPDESIGN_API_TOKEN":"abc"}`).APIToken)
	assert.Equal(t, "plain-token", ParseSecret(" plain-token\n").APIToken)
}

func TestIsLambda(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	assert.False(t, IsLambda())
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "fn")
	assert.True(t, IsLambda())
}
