// Package config loads engine tuning from defaults, an optional TOML file
// and LAMBDA_LOGS_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/logs"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "LAMBDA_LOGS_"

type Config struct {
	PollMinInterval time.Duration `koanf:"poll_min_interval" validate:"gt=0"`
	PollMaxInterval time.Duration `koanf:"poll_max_interval" validate:"gtefield=PollMinInterval"`
	PollMultiplier  float64       `koanf:"poll_multiplier" validate:"gte=1"`
	Overlap         time.Duration `koanf:"overlap" validate:"gte=0"`
	MaxSpan         time.Duration `koanf:"max_span" validate:"gte=0"`
	PageLimit       int32         `koanf:"page_limit" validate:"gte=0,lte=10000"`

	RetryMaxAttempts int           `koanf:"retry_max_attempts" validate:"gte=1"`
	RetryBaseDelay   time.Duration `koanf:"retry_base_delay" validate:"gte=0"`
	RetryMaxDelay    time.Duration `koanf:"retry_max_delay" validate:"gtefield=RetryBaseDelay"`

	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int           `koanf:"burst" validate:"gte=1"`
	MergeWindow       time.Duration `koanf:"merge_window" validate:"gte=0"`

	LogLevel  string `koanf:"log_level" validate:"oneof=trace debug info warn error disabled"`
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`
}

// Default returns the built-in configuration.
func Default() Config {
	e := logs.DefaultConfig()
	return Config{
		PollMinInterval:   e.PollMinInterval,
		PollMaxInterval:   e.PollMaxInterval,
		PollMultiplier:    e.PollMultiplier,
		Overlap:           e.Overlap,
		MaxSpan:           e.MaxSpan,
		PageLimit:         e.PageLimit,
		RetryMaxAttempts:  e.RetryMaxAttempts,
		RetryBaseDelay:    e.RetryBaseDelay,
		RetryMaxDelay:     e.RetryMaxDelay,
		RequestsPerSecond: 5,
		Burst:             5,
		MergeWindow:       2 * time.Second,
		LogLevel:          "warn",
		LogFormat:         "text",
	}
}

// Load builds the configuration. path may be empty to skip the file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("could not load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Engine returns the tuning consumed by logs.Fetcher.
func (c *Config) Engine() logs.Config {
	return logs.Config{
		Overlap:          c.Overlap,
		MaxSpan:          c.MaxSpan,
		PageLimit:        c.PageLimit,
		PollMinInterval:  c.PollMinInterval,
		PollMaxInterval:  c.PollMaxInterval,
		PollMultiplier:   c.PollMultiplier,
		RetryMaxAttempts: c.RetryMaxAttempts,
		RetryBaseDelay:   c.RetryBaseDelay,
		RetryMaxDelay:    c.RetryMaxDelay,
	}
}
