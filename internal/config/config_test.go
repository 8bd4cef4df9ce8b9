package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no config file present

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "ivr_data.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://api.exotel.com", cfg.Exotel.BaseURL)
	assert.Equal(t, 100, cfg.Exotel.PageSize)
	assert.InDelta(t, 5.0, cfg.Exotel.RateLimitRPS, 0.01)
	assert.Equal(t, 10, cfg.Report.TopPaths)
	assert.Equal(t, 7, cfg.Report.SampleDays)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("IVR_STORE_DRIVER", "postgres")
	t.Setenv("IVR_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestExotelConfigured(t *testing.T) {
	assert.False(t, ExotelConfig{}.Configured())
	assert.False(t, ExotelConfig{SID: "acct", APIKey: "k"}.Configured())
	assert.True(t, ExotelConfig{SID: "acct", APIKey: "k", APIToken: "t"}.Configured())
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "shout", Format: "json"})
	require.Error(t, err)
}
