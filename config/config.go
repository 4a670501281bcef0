// Package config loads docbench settings from the environment. Command
// line flags override these values.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/weiihann/docbench/layout"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds defaults for every subcommand.
type Config struct {
	Host           string        `env:"DOCBENCH_HOST,default=localhost" validate:"required,hostname_rfc1123|ip"`
	NormalizedDB   string        `env:"DOCBENCH_NORMALIZED_DB,default=MP2Norm" validate:"required,excludesall=/. $"`
	EmbeddedDB     string        `env:"DOCBENCH_EMBEDDED_DB,default=MP2Embd" validate:"required,excludesall=/. $"`
	MessagesPath   string        `env:"DOCBENCH_MESSAGES,default=messages.json" validate:"required"`
	SendersPath    string        `env:"DOCBENCH_SENDERS,default=senders.json" validate:"required"`
	BatchSize      int           `env:"DOCBENCH_BATCH_SIZE,default=5000" validate:"min=1"`
	QueryTimeout   time.Duration `env:"DOCBENCH_QUERY_TIMEOUT,default=2m" validate:"gt=0"`
	ConnectTimeout time.Duration `env:"DOCBENCH_CONNECT_TIMEOUT,default=5s" validate:"gt=0"`
	LogLevel       string        `env:"DOCBENCH_LOG_LEVEL,default=info" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// Load reads an optional .env file from the working directory, then the
// process environment, and validates the result.
func Load() (Config, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks field constraints. It is exported so flag overrides
// can be re-checked.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// Databases returns the per-layout database names.
func (c Config) Databases() layout.Databases {
	return layout.Databases{
		Normalized: c.NormalizedDB,
		Embedded:   c.EmbeddedDB,
	}
}

// Level parses LogLevel into a slog level.
func (c Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}

	return lvl
}
