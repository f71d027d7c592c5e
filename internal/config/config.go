// Package config loads the looper configuration from the environment.
//
// Variables are prefixed with LOOPER_ and may come from a .env file:
//
//	LOOPER_TASK_NAME=heartbeat
//	LOOPER_PERIOD=1s
//	LOOPER_CATCH_UP=false
//	LOOPER_HTTP_ADDR=:8080
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const envPrefix = "LOOPER_"

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into Config
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidConfig is returned when a parsed Config fails validation
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds the settings of one looper process.
type Config struct {
	TaskName        string        `env:"TASK_NAME" envDefault:"looper" validate:"required"`
	Period          time.Duration `env:"PERIOD" envDefault:"1s" validate:"gt=0"`
	RoutineDuration time.Duration `env:"ROUTINE_DURATION" envDefault:"0s" validate:"gte=0"`
	CatchUp         bool          `env:"CATCH_UP" envDefault:"true"`
	StartPaused     bool          `env:"START_PAUSED" envDefault:"false"`
	HistorySize     int           `env:"HISTORY_SIZE" envDefault:"100" validate:"gt=0,lte=100000"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`

	HTTPAddr         string        `env:"HTTP_ADDR" envDefault:":8080" validate:"required,hostname_port"`
	MetricsNamespace string        `env:"METRICS_NAMESPACE" envDefault:"periodic" validate:"required,alphanum"`
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"5s" validate:"gt=0"`
}

// Load reads .env files and the process environment into a validated Config.
//
// Without files, a .env in the working directory is loaded if present.
// Explicit files must exist. Variables already set in the environment win
// over values from files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		// The default .env file is optional
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against its struct tags.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}
