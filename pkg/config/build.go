package config

import (
	"fmt"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/Suhaibinator/SDispatch/pkg/metrics"
	"github.com/Suhaibinator/SDispatch/pkg/router"
	"go.uber.org/zap"
)

// ConfigurationError reports a configuration entry that cannot be turned into
// a working router. Startup must stop when one is returned.
type ConfigurationError struct {
	Field  string // Location of the entry, e.g. "middlewares[2]"
	Reason string // What is wrong with it
	Err    error  // Underlying error, if any
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error at %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error at %s: %s", e.Field, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// BuildRouterConfig resolves the middleware and handler names of cfg against
// reg and returns the resulting router configuration.
// Any unresolvable entry yields a *ConfigurationError.
func BuildRouterConfig(cfg *Config, reg *Registry, logger *zap.Logger, monitor *metrics.Monitor) (router.RouterConfig, error) {
	middlewares := make([]common.Middleware, 0, len(cfg.Middlewares))
	for i, mc := range cfg.Middlewares {
		field := fmt.Sprintf("middlewares[%d]", i)

		factory, ok := reg.Middleware(mc.Name)
		if !ok {
			return router.RouterConfig{}, &ConfigurationError{Field: field, Reason: fmt.Sprintf("unknown middleware %q", mc.Name)}
		}
		mw, err := factory(Args(mc.Args))
		if err != nil {
			return router.RouterConfig{}, &ConfigurationError{Field: field, Reason: fmt.Sprintf("cannot construct middleware %q", mc.Name), Err: err}
		}
		if mw == nil {
			return router.RouterConfig{}, &ConfigurationError{Field: field, Reason: fmt.Sprintf("middleware %q constructed nothing", mc.Name)}
		}
		middlewares = append(middlewares, mw)
	}

	routes, subRouters, err := buildRoutes("routes", cfg.Routes, reg)
	if err != nil {
		return router.RouterConfig{}, err
	}

	return router.RouterConfig{
		Logger:            logger,
		Middlewares:       middlewares,
		Routes:            routes,
		SubRouters:        subRouters,
		GlobalTimeout:     max(cfg.Server.Timeout, 0),
		GlobalMaxBodySize: max(cfg.Server.MaxBodySize, 0),
		Monitor:           monitor,
		EnableTraceID:     true,
	}, nil
}

// buildRoutes converts a route tree into leaf routes and sub-routers.
// A group that names a handler serves its own path as an empty child route.
func buildRoutes(field string, routes []RouteConfig, reg *Registry) ([]router.RouteConfig, []router.SubRouterConfig, error) {
	var leaves []router.RouteConfig
	var groups []router.SubRouterConfig

	for i, rc := range routes {
		at := fmt.Sprintf("%s[%d]", field, i)

		var handler common.Handler
		if rc.Handler != "" {
			h, ok := reg.Handler(rc.Handler)
			if !ok {
				return nil, nil, &ConfigurationError{Field: at, Reason: fmt.Sprintf("unknown handler %q", rc.Handler)}
			}
			handler = h
		}

		if len(rc.Routes) == 0 {
			if handler == nil {
				return nil, nil, &ConfigurationError{Field: at, Reason: fmt.Sprintf("route %q has no handler", rc.Path)}
			}
			leaves = append(leaves, router.RouteConfig{Path: rc.Path, Handler: handler})
			continue
		}

		children, nested, err := buildRoutes(at+".routes", rc.Routes, reg)
		if err != nil {
			return nil, nil, err
		}
		if handler != nil {
			children = append([]router.RouteConfig{{Path: "", Handler: handler}}, children...)
		}
		groups = append(groups, router.SubRouterConfig{
			PathPrefix: rc.Path,
			Routes:     children,
			SubRouters: nested,
		})
	}
	return leaves, groups, nil
}
