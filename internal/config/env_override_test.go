package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("PETSHOP_API_URL replaces base url", func(t *testing.T) {
		t.Setenv("PETSHOP_API_URL", "http://shop:9000/api")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://shop:9000/api", cfg.API.BaseURL)
	})

	t.Run("PETSHOP_DB replaces database path", func(t *testing.T) {
		t.Setenv("PETSHOP_DB", "/tmp/state.db")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/state.db", cfg.Storage.DatabasePath)
	})

	t.Run("PETSHOP_DEBUG enables debug logging", func(t *testing.T) {
		t.Setenv("PETSHOP_DEBUG", "true")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.True(t, cfg.Logging.DebugMode)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("empty env leaves config alone", func(t *testing.T) {
		t.Setenv("PETSHOP_API_URL", "")
		t.Setenv("PETSHOP_DB", "")
		t.Setenv("PETSHOP_DEBUG", "")

		cfg := DefaultConfig()
		before := *cfg
		cfg.applyEnvOverrides()

		assert.Equal(t, before.API, cfg.API)
		assert.Equal(t, before.Storage, cfg.Storage)
	})
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	require.False(t, lc.IsCategoryEnabled("cart"), "disabled outside debug mode")

	lc.DebugMode = true
	assert.True(t, lc.IsCategoryEnabled("cart"))

	lc.Categories = map[string]bool{"cart": false}
	assert.False(t, lc.IsCategoryEnabled("cart"))
	assert.True(t, lc.IsCategoryEnabled("api"), "unspecified categories default on")
}
