package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

// Built-in run constants. Each can be overridden through the environment.
const (
	DefaultBaseURL       = "http://localhost:5000/api/v1"
	DefaultEmail         = "user@example.com"
	DefaultPassword      = "password123"
	DefaultWrongPassword = "wrongpassword"
	DefaultFakeID        = "fake-id-12345"
	DefaultLogLevel      = "warn"
)

// Environment variable names.
const (
	EnvBaseURL       = "HARNESS_BASE_URL"
	EnvEmail         = "HARNESS_EMAIL"
	EnvPassword      = "HARNESS_PASSWORD"
	EnvWrongPassword = "HARNESS_WRONG_PASSWORD"
	EnvFakeID        = "HARNESS_FAKE_ID"
	EnvFailFast      = "HARNESS_FAIL_FAST"
	EnvNoColor       = "HARNESS_NO_COLOR"
	EnvLogLevel      = "HARNESS_LOG_LEVEL"
)

// ErrInvalidConfig is wrapped by every validation error from Load and FromLookup.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds everything a harness run reads before the first request.
type Config struct {
	BaseURL       string
	Email         string
	Password      string
	WrongPassword string
	FakeID        string
	FailFast      bool
	NoColor       bool
	LogLevel      zapcore.Level

	// EnvFileLoaded reports whether a .env file was found and applied.
	EnvFileLoaded bool
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:       DefaultBaseURL,
		Email:         DefaultEmail,
		Password:      DefaultPassword,
		WrongPassword: DefaultWrongPassword,
		FakeID:        DefaultFakeID,
		LogLevel:      zapcore.WarnLevel,
	}
}

// Load applies the optional .env file at envPath to the process environment and
// then builds the configuration from it. A missing .env file is not an error.
func Load(envPath string) (*Config, error) {
	loaded := true
	if err := godotenv.Load(envPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
		loaded = false
	}

	cfg, err := FromLookup(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	cfg.EnvFileLoaded = loaded
	return cfg, nil
}

// FromLookup builds the configuration from defaults overridden by lookup.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvBaseURL, &cfg.BaseURL)
	str(EnvEmail, &cfg.Email)
	str(EnvPassword, &cfg.Password)
	str(EnvWrongPassword, &cfg.WrongPassword)
	str(EnvFakeID, &cfg.FakeID)

	var err error
	if cfg.FailFast, err = boolVar(lookup, EnvFailFast); err != nil {
		return nil, err
	}
	if cfg.NoColor, err = boolVar(lookup, EnvNoColor); err != nil {
		return nil, err
	}

	level := DefaultLogLevel
	str(EnvLogLevel, &level)
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvLogLevel, level, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base URL %q must be an absolute http(s) URL", ErrInvalidConfig, c.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base URL scheme %q not supported", ErrInvalidConfig, u.Scheme)
	}
	if c.Password == c.WrongPassword {
		return fmt.Errorf("%w: wrong password must differ from the real password", ErrInvalidConfig)
	}
	return nil
}

func boolVar(lookup func(string) (string, bool), key string) (bool, error) {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, key, v)
	}
	return b, nil
}
