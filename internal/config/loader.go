// Package config holds the harness run configuration and the reference server's
// seed data.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedUser is an account the reference server accepts at login.
type SeedUser struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Seed represents the seed.yaml structure
type Seed struct {
	Users []SeedUser `yaml:"users"`
}

// Loader reads seed files for the reference server
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new seed loader
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadSeed reads the seed file at path. An empty path selects the built-in seed.
func (l *Loader) LoadSeed(path string) (*Seed, error) {
	if path == "" {
		l.logger.Debug("Using built-in seed")
		return ParseSeed(defaultSeed)
	}

	l.logger.Debug("Loading seed", zap.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed: %w", err)
	}

	seed, err := ParseSeed(data)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Seed loaded successfully",
		zap.String("path", path),
		zap.Int("users", len(seed.Users)))
	return seed, nil
}

// DefaultSeed returns the built-in seed.
func DefaultSeed() *Seed {
	seed, err := ParseSeed(defaultSeed)
	if err != nil {
		panic(fmt.Sprintf("built-in seed is invalid: %v", err))
	}
	return seed
}

// ParseSeed decodes and validates seed YAML.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate requires at least one user and unique, complete accounts.
func (s *Seed) Validate() error {
	if len(s.Users) == 0 {
		return fmt.Errorf("%w: seed has no users", ErrInvalidConfig)
	}

	ids := make(map[string]bool)
	emails := make(map[string]bool)
	for i, u := range s.Users {
		if u.ID == "" || u.Email == "" || u.Password == "" {
			return fmt.Errorf("%w: seed user %d needs id, email and password", ErrInvalidConfig, i)
		}
		email := strings.ToLower(u.Email)
		if ids[u.ID] {
			return fmt.Errorf("%w: duplicate seed user id %q", ErrInvalidConfig, u.ID)
		}
		if emails[email] {
			return fmt.Errorf("%w: duplicate seed user email %q", ErrInvalidConfig, u.Email)
		}
		ids[u.ID] = true
		emails[email] = true
	}
	return nil
}
