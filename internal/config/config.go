// Package config provides centralized configuration management
// for the Experiment Designer. It supports loading from YAML files,
// environment variables, and AWS Secrets Manager (for Lambda).
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "EXPDESIGN_"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Parser  ParserConfig  `yaml:"parser"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimit       float64       `yaml:"rate_limit"` // requests per second per client IP, 0 disables
	RateBurst       int           `yaml:"rate_burst"`
	APIToken        string        `yaml:"api_token"` // bearer token for /api routes, empty disables auth
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// ParserConfig holds parsing pipeline settings
type ParserConfig struct {
	BatchLimit  int           `yaml:"batch_limit"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	EnableFile  bool   `yaml:"enable_file"`
	EnableJSON  bool   `yaml:"enable_json"`
	EnableColor bool   `yaml:"enable_color"`
	LogDir      string `yaml:"log_dir"`
	MaxSizeMB   int    `yaml:"max_size_mb"`
	MaxBackups  int    `yaml:"max_backups"`
	MaxAgeDays  int    `yaml:"max_age_days"`
	Compress    bool   `yaml:"compress"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Pretty      bool   `yaml:"pretty"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       10,
			RateBurst:       20,
			MaxBodyBytes:    1 << 20,
		},
		Parser: ParserConfig{
			BatchLimit:  100,
			Concurrency: 8,
			Timeout:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:       "info",
			EnableFile:  true,
			EnableJSON:  true,
			EnableColor: true,
			LogDir:      "logs",
			MaxSizeMB:   100,
			MaxBackups:  3,
			MaxAgeDays:  7,
			Compress:    true,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "experiment-designer",
		},
	}
}

// Get returns the global configuration (singleton)
func Get() *Config {
	configOnce.Do(func() {
		cfg := load()
		configMu.Lock()
		globalConfig = cfg
		configMu.Unlock()
	})
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg := load()
	configOnce.Do(func() {})
	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

// Set replaces the global configuration, used by the CLI --config flag
func Set(cfg *Config) {
	configOnce.Do(func() {})
	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
}

func load() *Config {
	cfg := DefaultConfig()
	for _, path := range searchPaths() {
		if err := cfg.LoadFile(path); err == nil {
			break
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if IsLambda() {
		loadSecretsFromSecretsManager(cfg)
		// explicit env still wins over the secret
		if token := os.Getenv(EnvPrefix + "API_TOKEN"); token != "" {
			cfg.Server.APIToken = token
		}
	}
	return cfg
}

func searchPaths() []string {
	return []string{
		"config.yaml",
		"config.yml",
		filepath.Join(getExecutableDir(), "config.yaml"),
		filepath.Join(getExecutableDir(), "config.yml"),
	}
}

// Load returns defaults overlaid with the YAML file at path and the environment
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.LoadFile(path); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies EXPDESIGN_* overrides read through getenv. Malformed
// values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	env := func(name string) string {
		return strings.TrimSpace(getenv(EnvPrefix + name))
	}

	if v := env("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if v := env("RATE_LIMIT"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil && r >= 0 {
			c.Server.RateLimit = r
		}
	}
	if v := env("API_TOKEN"); v != "" {
		c.Server.APIToken = v
	}
	if v := env("BATCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Parser.BatchLimit = n
		}
	}
	if v := env("CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Parser.Concurrency = n
		}
	}
	if v := env("PARSE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Parser.Timeout = d
		}
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := env("LOG_DIR"); v != "" {
		c.Logging.LogDir = v
	}
	if v := env("TRACING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Tracing.Enabled = b
		}
	}

	// Lambda has a read-only filesystem outside /tmp and CloudWatch captures stdout
	if getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		c.Logging.EnableFile = false
		c.Logging.EnableColor = false
	}
}

// SecretsManagerPayload represents the secret structure in AWS Secrets Manager
type SecretsManagerPayload struct {
	APIToken string `json:"EXPDESIGN_API_TOKEN"`
}

// loadSecretsFromSecretsManager loads the API token from AWS Secrets Manager.
// This is only called when running in Lambda.
func loadSecretsFromSecretsManager(cfg *Config) {
	secretName := os.Getenv(EnvPrefix + "SECRET_NAME")
	if secretName == "" {
		secretName = "experiment-designer/api-token"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		// API auth stays as configured
		return
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil || result.SecretString == nil {
		return
	}

	if token := ParseSecret(*result.SecretString).APIToken; token != "" {
		cfg.Server.APIToken = token
	}
}

// ParseSecret decodes a secret string. Plain strings are taken as the token itself.
func ParseSecret(secret string) SecretsManagerPayload {
	var payload SecretsManagerPayload
	if err := json.Unmarshal([]byte(secret), &payload); err == nil {
		return payload
	}
	return SecretsManagerPayload{APIToken: strings.TrimSpace(secret)}
}

// getExecutableDir returns the directory containing the executable
func getExecutableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// IsLambda returns true if running in AWS Lambda
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}
