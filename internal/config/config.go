// Package config loads the service configuration shared by the serve and
// mcp commands. Command line flags override what the file says.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aretw0/merits/internal/validator"
	"gopkg.in/yaml.v3"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config is the root configuration structure.
type Config struct {
	Addr     string `yaml:"addr" validate:"required,hostname_port"`
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	// FamilyDirs are loaded after the built-in families and override them by name.
	FamilyDirs []string    `yaml:"family_dirs" validate:"dive,required"`
	Store      StoreConfig `yaml:"store"`
	// LineSeparator follows every written segment.
	LineSeparator string `yaml:"line_separator"`
}

// StoreConfig selects where row ID sequences live.
type StoreConfig struct {
	Kind    string        `yaml:"kind" validate:"oneof=memory file redis"`
	Dir     string        `yaml:"dir" validate:"required_if=Kind file"`
	Redis   RedisConfig   `yaml:"redis"`
	LockTTL time.Duration `yaml:"lock_ttl" validate:"gte=0"`
}

// RedisConfig holds the connection of the redis store.
type RedisConfig struct {
	Addr     string        `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr:          "127.0.0.1:8080",
		LogLevel:      "info",
		LineSeparator: "\n",
		Store: StoreConfig{
			Kind:    StoreMemory,
			Dir:     ".merits/sequences",
			LockTTL: 30 * time.Second,
			Redis:   RedisConfig{Addr: "127.0.0.1:6379", Prefix: "merits:"},
		},
	}
}

// Parse decodes data over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the constraints of every field.
func (c Config) Validate() error {
	if err := validator.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
