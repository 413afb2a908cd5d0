package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a fully valid configuration for testing.
func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "quotebook",
			Version:     "1.0.0",
			Environment: "local",
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  25 * time.Second,
			MaxRequestSize:  1048576,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Driver: StoreDriverMemory,
		},
	}
}

// expectInvalid asserts that cfg fails validation mentioning field.
func expectInvalid(t *testing.T, cfg *Config, field string) {
	t.Helper()

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), field)
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_AppConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"missing name", func(a *AppConfig) { a.Name = "" }, "app.name"},
		{"missing version", func(a *AppConfig) { a.Version = "" }, "app.version"},
		{"missing environment", func(a *AppConfig) { a.Environment = "" }, "app.environment"},
		{"invalid environment", func(a *AppConfig) { a.Environment = "staging" }, "must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg.App)

			expectInvalid(t, cfg, tt.field)
		})
	}
}

func TestConfig_Validate_ServerConfig(t *testing.T) {
	ports := []struct {
		port    int
		wantErr bool
	}{
		{1, false},
		{8080, false},
		{65535, false},
		{0, true},
		{-1, true},
		{65536, true},
	}

	for _, tt := range ports {
		t.Run(fmt.Sprintf("port_%d", tt.port), func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Port = tt.port

			if tt.wantErr {
				expectInvalid(t, cfg, "server.port")
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}

	t.Run("read timeout minimum", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.ReadTimeout = 500 * time.Millisecond

		expectInvalid(t, cfg, "server.read_timeout")
	})

	t.Run("request timeout may be disabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.RequestTimeout = 0

		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_Validate_LogConfig(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		t.Run("level "+level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Log.Level = level

			assert.NoError(t, cfg.Validate())
		})
	}

	for _, format := range []string{"json", "text", "pretty"} {
		t.Run("format "+format, func(t *testing.T) {
			cfg := validConfig()
			cfg.Log.Format = format

			assert.NoError(t, cfg.Validate())
		})
	}

	t.Run("invalid level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.Level = "DEBUG"

		expectInvalid(t, cfg, "log.level")
	})

	t.Run("invalid format", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.Format = "xml"

		expectInvalid(t, cfg, "log.format")
	})

	t.Run("file path required when enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.File.Enabled = true

		expectInvalid(t, cfg, "log.file.path")
	})

	t.Run("file max size bounds", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.File.Enabled = true
		cfg.Log.File.Path = "/var/log/quotebook.log"
		cfg.Log.File.MaxSizeMB = 1025

		expectInvalid(t, cfg, "log.file.max_size")
	})
}

func TestConfig_Validate_TelemetryConfig(t *testing.T) {
	t.Run("endpoint required when enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.ServiceName = "quotebook"

		expectInvalid(t, cfg, "telemetry.endpoint")
	})

	t.Run("endpoint must be a url", func(t *testing.T) {
		cfg := validConfig()
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.Endpoint = "not-a-url"
		cfg.Telemetry.ServiceName = "quotebook"

		expectInvalid(t, cfg, "telemetry.endpoint")
	})

	t.Run("sampling rate above one", func(t *testing.T) {
		cfg := validConfig()
		cfg.Telemetry.SamplingRate = 1.1

		expectInvalid(t, cfg, "telemetry.sampling_rate")
	})
}

func TestConfig_Validate_StoreConfig(t *testing.T) {
	tests := []struct {
		name    string
		store   StoreConfig
		wantErr string
	}{
		{
			name:  "memory without dsn",
			store: StoreConfig{Driver: StoreDriverMemory},
		},
		{
			name:  "postgres with dsn",
			store: StoreConfig{Driver: StoreDriverPostgres, DSN: "postgres://quotes@localhost:5432/quotes"},
		},
		{
			name:  "sqlite with dsn",
			store: StoreConfig{Driver: StoreDriverSQLite, DSN: "file:quotes.db"},
		},
		{
			name:    "postgres without dsn",
			store:   StoreConfig{Driver: StoreDriverPostgres},
			wantErr: "store.dsn",
		},
		{
			name:    "unknown driver",
			store:   StoreConfig{Driver: "mysql", DSN: "x"},
			wantErr: "store.driver",
		},
		{
			name:    "missing driver",
			store:   StoreConfig{},
			wantErr: "store.driver",
		},
		{
			name:    "negative pool size",
			store:   StoreConfig{Driver: StoreDriverMemory, MaxOpenConns: -1},
			wantErr: "store.max_open_conns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Store = tt.store

			if tt.wantErr != "" {
				expectInvalid(t, cfg, tt.wantErr)
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestConfig_Validate_CacheConfig(t *testing.T) {
	t.Run("disabled cache needs nothing", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cache = CacheConfig{}

		assert.NoError(t, cfg.Validate())
	})

	t.Run("addr required when enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cache = CacheConfig{Enabled: true}

		expectInvalid(t, cfg, "cache.addr")
	})

	t.Run("db index bounds", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cache = CacheConfig{Enabled: true, Addr: "localhost:6379", DB: 16}

		expectInvalid(t, cfg, "cache.db")
	})

	t.Run("breaker needs failures when enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Cache = CacheConfig{
			Enabled:        true,
			Addr:           "localhost:6379",
			CircuitBreaker: CircuitBreakerConfig{Enabled: true},
		}

		expectInvalid(t, cfg, "cache.circuit_breaker.max_failures")
	})
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: "invalid"},
	}

	err := cfg.Validate()
	require.Error(t, err)

	errStr := err.Error()
	assert.Contains(t, errStr, "app.name")
	assert.Contains(t, errStr, "app.version")
	assert.Contains(t, errStr, "store is required")
}

func TestConfig_Validate_CrossField(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "request timeout must leave room to write the 504",
			mutate:  func(c *Config) { c.Server.RequestTimeout = c.Server.WriteTimeout },
			wantErr: "server.request_timeout (30s) must be shorter than server.write_timeout (30s)",
		},
		{
			name:    "idle pool larger than open pool",
			mutate:  func(c *Config) { c.Store.MaxOpenConns, c.Store.MaxIdleConns = 4, 8 },
			wantErr: "store.max_idle_conns (8) must not exceed store.max_open_conns (4)",
		},
		{
			name:   "unbounded open pool",
			mutate: func(c *Config) { c.Store.MaxOpenConns, c.Store.MaxIdleConns = 0, 8 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			if tt.wantErr == "" {
				assert.NoError(t, cfg.Validate())
				return
			}

			expectInvalid(t, cfg, tt.wantErr)
		})
	}
}

func TestConfig_Validate_ErrorType(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Log.Level = "loud"

	var verr *ValidationError
	require.ErrorAs(t, cfg.Validate(), &verr)
	assert.ElementsMatch(t, []string{
		"server.port is required",
		"log.level must be one of: trace debug info warn error",
	}, verr.Problems)
}

func TestFieldPath(t *testing.T) {
	tests := map[string]string{
		"Config.server.port":                       "server.port",
		"Config.store.dsn":                         "store.dsn",
		"Config.cache.circuit_breaker.max_failures": "cache.circuit_breaker.max_failures",
		"Config":                                   "Config",
	}

	for namespace, want := range tests {
		t.Run(namespace, func(t *testing.T) {
			assert.Equal(t, want, fieldPath(namespace))
		})
	}
}
