package internal

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	BackendBadger   = "badger"
	BackendPostgres = "postgres"

	SoundBell   = "bell"
	SoundSilent = "silent"
)

type Config struct {
	StoreBackend         string        `env:"STORE_BACKEND,default=badger" validate:"oneof=badger postgres"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH" validate:"required_if=StoreBackend badger"`
	DatabaseURL          string        `env:"DATABASE_URL" validate:"required_if=StoreBackend postgres"`
	Migrate              bool          `env:"MIGRATE,default=false"`
	LimitMessages        *int          `env:"LIMIT_MESSAGES" validate:"omitempty,gt=0"`
	ChannelBufferSize    int           `env:"CHANNEL_BUFFER_SIZE,default=256" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=2s" validate:"gt=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s" validate:"gt=0"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=80" validate:"gt=0,lte=100"`
	GCInterval           time.Duration `env:"GC_INTERVAL,default=5m" validate:"gt=0"`
	Sound                string        `env:"SOUND,default=bell" validate:"oneof=bell silent"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
}

var validate = validator.New()

// Validate checks the values that go-env cannot express with tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
