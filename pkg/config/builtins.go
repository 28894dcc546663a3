package config

import (
	"time"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/Suhaibinator/SDispatch/pkg/middleware"
	"go.uber.org/zap"
)

// Dependencies are the shared services handed to built-in middleware factories.
type Dependencies struct {
	// Logger is passed to middlewares that log. Nil disables their logging.
	Logger *zap.Logger

	// ThrottleStore backs every throttling middleware. When nil, each
	// throttling middleware gets its own in-memory store.
	ThrottleStore middleware.Store
}

// User is the principal type of the bearer_auth middleware.
type User struct {
	Name string
}

// RegisterBuiltins registers the built-in middlewares:
//
//	trace        assigns a trace ID (no arguments)
//	client_ip    stores the client IP (middleware.IPConfig)
//	logging      logs each request (middleware.LoggingConfig)
//	cors         sets CORS headers (middleware.CORSConfig)
//	throttling   limits the request rate (middleware.ThrottlingConfig)
//	bearer_auth  requires a static bearer token (tokens: token -> user name)
func RegisterBuiltins(reg *Registry, deps Dependencies) error {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	builtins := []struct {
		name    string
		factory MiddlewareFactory
	}{
		{"trace", func(args Args) (common.Middleware, error) {
			if err := args.Decode(&struct{}{}); err != nil {
				return nil, err
			}
			return middleware.NewTrace(), nil
		}},
		{"client_ip", func(args Args) (common.Middleware, error) {
			cfg := middleware.DefaultIPConfig()
			if err := args.Decode(cfg); err != nil {
				return nil, err
			}
			return middleware.NewClientIP(cfg), nil
		}},
		{"logging", func(args Args) (common.Middleware, error) {
			var cfg middleware.LoggingConfig
			if err := args.Decode(&cfg); err != nil {
				return nil, err
			}
			return middleware.NewLoggingWithConfig(logger, cfg), nil
		}},
		{"cors", func(args Args) (common.Middleware, error) {
			var cfg middleware.CORSConfig
			if err := args.Decode(&cfg); err != nil {
				return nil, err
			}
			return middleware.NewCORS(cfg), nil
		}},
		{"throttling", func(args Args) (common.Middleware, error) {
			cfg := middleware.ThrottlingConfig{Duration: time.Minute}
			if err := args.Decode(&cfg); err != nil {
				return nil, err
			}
			return middleware.NewThrottling(cfg, deps.ThrottleStore, logger), nil
		}},
		{"bearer_auth", func(args Args) (common.Middleware, error) {
			var cfg struct {
				Tokens map[string]string `mapstructure:"tokens" validate:"required,min=1"`
			}
			if err := args.Decode(&cfg); err != nil {
				return nil, err
			}
			users := make(map[string]*User, len(cfg.Tokens))
			for token, name := range cfg.Tokens {
				users[token] = &User{Name: name}
			}
			return middleware.NewAuthentication(middleware.StaticTokens(users), logger), nil
		}},
	}

	for _, b := range builtins {
		if err := reg.RegisterMiddleware(b.name, b.factory); err != nil {
			return err
		}
	}
	return nil
}
