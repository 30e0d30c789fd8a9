package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("LOG_LEVEL", "INFO")
	t.Setenv("BADGER_FILEPATH", t.TempDir())

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.NoError(config.Validate())
	req.Equal(BackendBadger, config.StoreBackend)
	req.Equal(256, config.ChannelBufferSize)
	req.Equal(2*time.Second, config.RestartInterval)
	req.Equal(SoundBell, config.Sound)
	req.Nil(config.LimitMessages)
}

func TestConfig_Postgres_Needs_Database_URL(t *testing.T) {
	req := require.New(t)
	t.Setenv("LOG_LEVEL", "INFO")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("LIMIT_MESSAGES", "50")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)
	req.Equal(50, *config.LimitMessages)
	req.Error(config.Validate())

	config.DatabaseURL = "postgres://chat@localhost:5432/chat"
	req.NoError(config.Validate())
}

func TestConfig_Rejects_Unknown_Values(t *testing.T) {
	req := require.New(t)
	config := Config{
		StoreBackend:         "mysql",
		ChannelBufferSize:    1,
		RestartInterval:      time.Second,
		MetricInterval:       time.Second,
		LowCapacityThreshold: 80,
		GCInterval:           time.Second,
		Sound:                SoundSilent,
		LogLevel:             "INFO",
	}

	req.Error(config.Validate())
}
