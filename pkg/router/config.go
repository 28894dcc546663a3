// Package router provides the request dispatcher of the SDispatch framework.
// It resolves exact paths, runs the middleware chain around the handler,
// translates errors into responses and emits exactly one response per request.
package router

import (
	"time"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/Suhaibinator/SDispatch/pkg/metrics"
	"go.uber.org/zap"
)

// RouterConfig defines the global configuration for the router.
// It is read once by NewRouter; later changes to the value have no effect.
type RouterConfig struct {
	Logger            *zap.Logger         // Logger for all router operations
	Middlewares       []common.Middleware // Global middlewares, in registration order
	Routes            []RouteConfig       // Top-level routes
	SubRouters        []SubRouterConfig   // Route groups with a common path prefix
	GlobalTimeout     time.Duration       // Deadline for each request, 0 for none
	GlobalMaxBodySize int64               // Maximum request body size in bytes, 0 for no limit
	Monitor           *metrics.Monitor    // Monitor that receives one signal per request (optional)
	EnableTraceID     bool                // Add the trace ID to the router's log fields
}

// SubRouterConfig defines a group of routes sharing a path prefix.
// Nested sub-routers concatenate their prefixes.
type SubRouterConfig struct {
	PathPrefix string            // Common path prefix for all routes in this sub-router
	Routes     []RouteConfig     // Routes in this sub-router
	SubRouters []SubRouterConfig // Nested sub-routers
}

// RouteConfig binds an exact path to a handler.
type RouteConfig struct {
	Path    string         // Route path (prefixed with the sub-router path prefix if applicable)
	Handler common.Handler // Handler for the path; nil is rejected at construction
}

// Middleware is an alias for common.Middleware.
type Middleware = common.Middleware
