// Package config loads client configuration from a TOML file and
// environment variables.
//
// Priority: env vars > TOML file > defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"

	"github.com/Ratio1/docstore_sdk_go/internal/httpx"
)

// Runtime modes.
const (
	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"
)

const (
	EnvConfig     = "DOCSTORE_CONFIG"
	EnvMode       = "DOCSTORE_RUNTIME_MODE"
	EnvURL        = "DOCSTORE_API_URL"
	EnvMockSeed   = "DOCSTORE_MOCK_SEED"
	EnvTimeout    = "DOCSTORE_TIMEOUT"
	EnvMaxRetries = "DOCSTORE_MAX_RETRIES"
	EnvLogLevel   = "LOGGING_LEVEL"
	EnvLogFormat  = "LOGGING_FORMAT"
)

// Config holds all client settings.
type Config struct {
	Mode    string        `toml:"mode"`
	Server  ServerConfig  `toml:"server"`
	Retry   RetryConfig   `toml:"retry"`
	Logging LoggingConfig `toml:"logging"`
	Mock    MockConfig    `toml:"mock"`
}

// ServerConfig points the HTTP backend at the store.
type ServerConfig struct {
	URL     string   `toml:"url"` // base URL including any prefix, e.g. http://127.0.0.1:8098/jiak
	Timeout Duration `toml:"timeout"`
}

// RetryConfig mirrors httpx.RetryPolicy.
type RetryConfig struct {
	MaxRetries int      `toml:"max_retries"`
	BaseDelay  Duration `toml:"base_delay"`
	MaxDelay   Duration `toml:"max_delay"`
	Jitter     float64  `toml:"jitter"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
	Format string `toml:"format"` // "json" or "console"
}

// MockConfig configures the in-memory backend.
type MockConfig struct {
	Seed string `toml:"seed"` // path to a devseed JSON file
}

// Duration is a time.Duration that can be unmarshaled from TOML strings.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Default returns a Config with all default values.
func Default() *Config {
	return &Config{
		Mode: ModeAuto,
		Server: ServerConfig{
			Timeout: Duration(10 * time.Second),
		},
		Retry: RetryConfig{
			MaxRetries: httpx.DefaultRetryPolicy.MaxRetries,
			BaseDelay:  Duration(httpx.DefaultRetryPolicy.BaseDelay),
			MaxDelay:   Duration(httpx.DefaultRetryPolicy.MaxDelay),
			Jitter:     httpx.DefaultRetryPolicy.Jitter,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return cfg, nil
}

// FromEnv loads the file named by DOCSTORE_CONFIG, if any, applies the
// environment overrides and validates the result.
func FromEnv() (*Config, error) {
	cfg, err := Load(os.Getenv(EnvConfig))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies environment variable overrides.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvMode)); v != "" {
		c.Mode = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvURL)); v != "" {
		c.Server.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMockSeed)); v != "" {
		c.Mock.Seed = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvTimeout, err)
		}
		c.Server.Timeout = Duration(d)
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxRetries)); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvMaxRetries, err)
		}
		c.Retry.MaxRetries = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	return nil
}

// Validate normalises the mode and checks that HTTP mode has a usable URL.
func (c *Config) Validate() error {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	switch c.Mode {
	case ModeAuto, ModeMock:
	case ModeHTTP:
		if strings.TrimSpace(c.Server.URL) == "" {
			return fmt.Errorf("config: HTTP mode requires %s or server.url", EnvURL)
		}
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}
	if c.Server.URL != "" {
		u, err := url.Parse(c.Server.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: server url %q must be absolute", c.Server.URL)
		}
	}
	if c.Retry.MaxRetries < 0 {
		return errors.New("config: retry.max_retries must not be negative")
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		return errors.New("config: retry.jitter must be within [0, 1]")
	}
	return nil
}

// RetryPolicy converts the retry section for httpx.
func (c *Config) RetryPolicy() httpx.RetryPolicy {
	return httpx.RetryPolicy{
		MaxRetries: c.Retry.MaxRetries,
		BaseDelay:  c.Retry.BaseDelay.Duration(),
		MaxDelay:   c.Retry.MaxDelay.Duration(),
		Jitter:     c.Retry.Jitter,
	}
}
