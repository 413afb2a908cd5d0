package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_DefaultValues tests that hardcoded defaults are applied correctly.
func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "quotebook", cfg.App.Name)
	assert.Equal(t, "dev", cfg.App.Version)
	assert.Equal(t, "local", cfg.App.Environment)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.True(t, cfg.Store.AutoMigrate)
	assert.False(t, cfg.Cache.Enabled)

	require.NoError(t, cfg.Validate())
}

// TestLoad_DurationParsing tests that duration strings are parsed correctly.
func TestLoad_DurationParsing(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 25*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Store.ConnMaxLifetime)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.CircuitBreaker.Timeout)
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_LOG_LEVEL", "trace")
	t.Setenv("APP_STORE_DRIVER", "sqlite")
	t.Setenv("APP_STORE_DSN", "file:quotes.db")
	t.Setenv("APP_STORE_AUTO__MIGRATE", "false")
	t.Setenv("APP_CACHE_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "trace", cfg.Log.Level)
	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "file:quotes.db", cfg.Store.DSN)
	assert.False(t, cfg.Store.AutoMigrate)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoad_NonExistentProfile(t *testing.T) {
	cfg, err := Load("nonexistent")
	require.NoError(t, err)

	assert.Equal(t, "quotebook", cfg.App.Name)
}

func TestLoadFrom_ProfileOverridesBase(t *testing.T) {
	dir := t.TempDir()

	base := "store:\n  driver: sqlite\n  dsn: file:base.db\ncache:\n  ttl: 1m\n"
	profile := "store:\n  dsn: file:profile.db\n"

	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(base), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qa.yaml"), []byte(profile), 0o600))

	cfg, err := LoadFrom(dir, "qa")
	require.NoError(t, err)

	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "file:profile.db", cfg.Store.DSN)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("store: [unclosed"), 0o600))

	_, err := LoadFrom(dir, "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "base.yaml")
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"APP_SERVER_PORT":                    "server.port",
		"APP_STORE_DSN":                      "store.dsn",
		"APP_STORE_AUTO__MIGRATE":            "store.auto_migrate",
		"APP_CACHE_CIRCUIT__BREAKER_TIMEOUT": "cache.circuit_breaker.timeout",
		"APP_LOG_FILE_MAX__SIZE":             "log.file.max_size",
	}

	for in, expected := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, expected, envKey(in))
		})
	}
}

func TestDefaults(t *testing.T) {
	d := defaults()

	assert.Equal(t, "quotebook", d["app.name"])
	assert.Equal(t, DefaultServerPort, d["server.port"])
	assert.Equal(t, StoreDriverMemory, d["store.driver"])
	assert.Equal(t, DefaultStoreMaxOpenConns, d["store.max_open_conns"])
	assert.Equal(t, "quotebook:", d["cache.key_prefix"])
	assert.Equal(t, DefaultCacheCircuitMaxFailures, d["cache.circuit_breaker.max_failures"])
}
