package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sdispatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
routes:
  - path: /health
    handler: health
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodySize)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sdispatch", cfg.Metrics.Namespace)
	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, "health", cfg.Routes[0].Handler)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
debug: true
logging:
  level: WARN
  format: console
server:
  address: ":9000"
  admin_address: ":9001"
  timeout: 5s
  max_body_size: 2048
  shutdown_timeout: 10s
metrics:
  enabled: true
  namespace: api
middlewares:
  - name: trace
  - name: throttling
    args:
      rate: 10
      duration: 1m
      mode: block
  - name: cors
    args:
      origins: ["https://example.com"]
routes:
  - path: /health
    handler: health
  - path: /api
    routes:
      - path: /echo
        handler: echo
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, ":9001", cfg.Server.AdminAddress)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, int64(2048), cfg.Server.MaxBodySize)
	assert.True(t, cfg.Metrics.Enabled)

	require.Len(t, cfg.Middlewares, 3)
	assert.Equal(t, "throttling", cfg.Middlewares[1].Name)
	assert.Equal(t, "1m", cfg.Middlewares[1].Args["duration"])

	require.Len(t, cfg.Routes, 2)
	require.Len(t, cfg.Routes[1].Routes, 1)
	assert.Equal(t, "/echo", cfg.Routes[1].Routes[0].Path)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":8080"
`)
	t.Setenv("SDISPATCH_SERVER_ADDRESS", ":7070")
	t.Setenv("SDISPATCH_SERVER_TIMEOUT", "3s")
	t.Setenv("SDISPATCH_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, 3*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Empty(t, cfg.Routes)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "routes: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			Routes: []RouteConfig{{Path: "/health", Handler: "health"}},
		}
		ApplyDefaults(cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad log level", func(cfg *Config) { cfg.Logging.Level = "loud" }, "Level"},
		{"bad log format", func(cfg *Config) { cfg.Logging.Format = "xml" }, "Format"},
		{"negative shutdown timeout", func(cfg *Config) { cfg.Server.ShutdownTimeout = -time.Second }, "ShutdownTimeout"},
		{"negative timeout disables", func(cfg *Config) { cfg.Server.Timeout = -time.Second }, ""},
		{"middleware without name", func(cfg *Config) {
			cfg.Middlewares = []MiddlewareConfig{{}}
		}, "Name"},
		{"path without slash", func(cfg *Config) { cfg.Routes[0].Path = "health" }, "Path"},
		{"leaf without handler", func(cfg *Config) {
			cfg.Routes = append(cfg.Routes, RouteConfig{Path: "/nothing"})
		}, "must name a handler"},
		{"duplicate flattened path", func(cfg *Config) {
			cfg.Routes = append(cfg.Routes,
				RouteConfig{Path: "/api/users", Handler: "users"},
				RouteConfig{Path: "/api", Routes: []RouteConfig{{Path: "/users", Handler: "users"}}},
			)
		}, "duplicate route \"/api/users\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyDefaults_Debug(t *testing.T) {
	cfg := &Config{Debug: true}
	ApplyDefaults(cfg)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "warn", Format: "json"}, false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = NewLogger(LoggingConfig{Level: "loud"}, false)
	assert.Error(t, err)
}
