// Package config loads reelsmith's YAML configuration, applies defaults,
// and overlays the environment for secrets. A missing config file is not
// an error: everything runs on defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	convctx "reelsmith/internal/context"
	"reelsmith/internal/resilience"
)

// EnvAPIKey is the environment variable that overrides the completion
// provider API key. Secrets never live in the YAML file.
const EnvAPIKey = "REELSMITH_API_KEY"

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig           `yaml:"server"`
	LLM        LLMConfig              `yaml:"llm"`
	Context    convctx.TrackerConfig  `yaml:"context"`
	Compressor convctx.CompressorConfig `yaml:"compressor"`
	Session    SessionConfig          `yaml:"session"`
	Pricing    PricingConfig          `yaml:"pricing"`
	Styles     StylesConfig           `yaml:"styles"`
	Resilience ResilienceConfig       `yaml:"resilience"`
	Logging    LoggingConfig          `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownSeconds int    `yaml:"shutdown_seconds"`
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxTokens      int    `yaml:"max_tokens"`
}

// SessionConfig selects and configures the session store backend.
type SessionConfig struct {
	Backend string `yaml:"backend"` // "memory" or "sqlite"
	Path    string `yaml:"path"`    // sqlite file path
}

// PricingConfig points at an optional on-disk pricing catalog.
type PricingConfig struct {
	CatalogPath string `yaml:"catalog_path"`
	Watch       bool   `yaml:"watch"`
}

// StylesConfig configures the style-recommendation client.
type StylesConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ResilienceConfig holds retry and circuit-breaker tuning.
type ResilienceConfig struct {
	MaxRetries        int     `yaml:"max_retries"`
	BaseDelayMS       int     `yaml:"base_delay_ms"`
	MaxDelayMS        int     `yaml:"max_delay_ms"`
	Jitter            float64 `yaml:"jitter"`
	FailureThreshold  int     `yaml:"failure_threshold"`
	ResetSeconds      int     `yaml:"reset_seconds"`
	HalfOpenSuccesses int     `yaml:"half_open_successes"`
}

// LoggingConfig selects log verbosity and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownSeconds: 10,
		},
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 60,
			MaxTokens:      1024,
		},
		Context:    convctx.DefaultTrackerConfig(),
		Compressor: convctx.DefaultCompressorConfig(),
		Session: SessionConfig{
			Backend: "memory",
			Path:    "reelsmith.db",
		},
		Styles: StylesConfig{
			TimeoutSeconds: 10,
		},
		Resilience: ResilienceConfig{
			MaxRetries:        3,
			BaseDelayMS:       1000,
			MaxDelayMS:        32000,
			Jitter:            0.25,
			FailureThreshold:  5,
			ResetSeconds:      60,
			HalfOpenSuccesses: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the config file at path, overlays it on the defaults, and
// applies environment overrides. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.LLM.APIKey = key
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Session.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	if c.Resilience.Jitter < 0 || c.Resilience.Jitter > 1 {
		return fmt.Errorf("resilience jitter must be in [0,1], got %v", c.Resilience.Jitter)
	}
	return nil
}

// RetryConfig converts the resilience section into retry settings.
func (c *Config) RetryConfig() resilience.RetryConfig {
	r := resilience.DefaultRetryConfig()
	if c.Resilience.MaxRetries > 0 {
		r.MaxRetries = c.Resilience.MaxRetries
	}
	if c.Resilience.BaseDelayMS > 0 {
		r.BaseDelay = time.Duration(c.Resilience.BaseDelayMS) * time.Millisecond
	}
	if c.Resilience.MaxDelayMS > 0 {
		r.MaxDelay = time.Duration(c.Resilience.MaxDelayMS) * time.Millisecond
	}
	if c.Resilience.Jitter > 0 {
		r.Jitter = c.Resilience.Jitter
	}
	return r
}

// BreakerConfig converts the resilience section into breaker settings.
func (c *Config) BreakerConfig() resilience.BreakerConfig {
	b := resilience.DefaultBreakerConfig()
	if c.Resilience.FailureThreshold > 0 {
		b.FailureThreshold = c.Resilience.FailureThreshold
	}
	if c.Resilience.ResetSeconds > 0 {
		b.ResetTimeout = time.Duration(c.Resilience.ResetSeconds) * time.Second
	}
	if c.Resilience.HalfOpenSuccesses > 0 {
		b.HalfOpenAttempts = c.Resilience.HalfOpenSuccesses
	}
	return b
}

// LLMTimeout returns the completion timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// StylesTimeout returns the style client timeout as a duration.
func (c *Config) StylesTimeout() time.Duration {
	return time.Duration(c.Styles.TimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the server drain window as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSeconds) * time.Second
}
