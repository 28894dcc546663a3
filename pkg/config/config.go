// Package config loads SDispatch settings and turns them into a router configuration.
//
// Settings come from a YAML file (or any format viper understands) and from
// SDISPATCH_ environment variables. Middlewares and handlers are referenced by
// name and resolved through a Registry, so the settings file never names Go
// code directly.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level SDispatch configuration.
type Config struct {
	// Debug enables development logging
	Debug bool `mapstructure:"debug"`

	// Logging controls the zap logger
	Logging LoggingConfig `mapstructure:"logging"`

	// Server controls the public and admin listeners
	Server ServerConfig `mapstructure:"server"`

	// Metrics controls the Prometheus monitor
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Middlewares is the ordered global middleware chain
	Middlewares []MiddlewareConfig `mapstructure:"middlewares" validate:"dive"`

	// Routes is the route tree. Groups concatenate their path with their children's.
	Routes []RouteConfig `mapstructure:"routes" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`

	// Format is the encoder: json or console
	Format string `mapstructure:"format" validate:"required,oneof=json console"`
}

// ServerConfig contains the listener settings.
type ServerConfig struct {
	// Address is the listen address of the public server
	Address string `mapstructure:"address" validate:"required"`

	// AdminAddress is the listen address of the admin server (metrics, routes).
	// Empty disables the admin server.
	AdminAddress string `mapstructure:"admin_address"`

	// Timeout is the deadline applied to every request.
	// 0 selects the 30s default and a negative value disables the deadline.
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxBodySize is the request body limit in bytes.
	// 0 selects the 1 MiB default and a negative value disables the limit.
	MaxBodySize int64 `mapstructure:"max_body_size"`

	// ShutdownTimeout is the maximum time to wait for in-flight requests on shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// MetricsConfig controls the Prometheus monitor.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// MiddlewareConfig references a registered middleware factory and its arguments.
type MiddlewareConfig struct {
	// Name of the registered middleware factory
	Name string `mapstructure:"name" validate:"required"`

	// Args are decoded by the factory into its own configuration type
	Args map[string]any `mapstructure:"args"`
}

// RouteConfig binds a path to a registered handler.
// A route with children is a group; it may also name a handler for its own path.
type RouteConfig struct {
	Path    string        `mapstructure:"path" validate:"required,startswith=/"`
	Handler string        `mapstructure:"handler"`
	Routes  []RouteConfig `mapstructure:"routes" validate:"dive"`
}

// envKeys are the settings that can be overridden from the environment.
// Example: SDISPATCH_SERVER_ADDRESS=:9000
var envKeys = []string{
	"debug",
	"logging.level",
	"logging.format",
	"server.address",
	"server.admin_address",
	"server.timeout",
	"server.max_body_size",
	"server.shutdown_timeout",
	"metrics.enabled",
	"metrics.namespace",
}

// Load loads configuration from file and environment variables.
//
// An empty configPath looks for sdispatch.yaml in the working directory and
// falls back to defaults when it does not exist. An explicit path must exist.
// Defaults are applied and the result is validated before it is returned.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	if err := setupViper(v, configPath); err != nil {
		return nil, err
	}

	// Read configuration file if it exists
	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) error {
	v.SetEnvPrefix("SDISPATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("sdispatch")
		v.SetConfigType("yaml")
	}
	return nil
}

// readConfigFile reads the configuration file if it exists.
// Only the default location may be absent.
func readConfigFile(v *viper.Viper, configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
