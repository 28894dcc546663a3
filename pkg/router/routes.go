package router

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/Suhaibinator/SDispatch/pkg/common"
)

// ErrInvalidRoute is wrapped by every route registration failure.
var ErrInvalidRoute = errors.New("invalid route")

// RouteTable maps exact request paths to handlers.
// It is filled during construction and only read afterwards, so lookups need no locking.
type RouteTable struct {
	routes map[string]common.Handler
}

// NewRouteTable creates an empty route table.
func NewRouteTable() *RouteTable {
	return &RouteTable{routes: make(map[string]common.Handler)}
}

// Register binds path to handler.
// A nil handler or an already registered path is rejected.
func (t *RouteTable) Register(path string, handler common.Handler) error {
	if handler == nil {
		return fmt.Errorf("%w: %q has no handler", ErrInvalidRoute, path)
	}
	if _, exists := t.routes[path]; exists {
		return fmt.Errorf("%w: %q is already registered", ErrInvalidRoute, path)
	}
	t.routes[path] = handler
	return nil
}

// Resolve returns the handler registered for exactly path.
// Prefixes, suffixes and trailing slashes never match.
func (t *RouteTable) Resolve(path string) (common.Handler, bool) {
	h, ok := t.routes[path]
	return h, ok
}

// Paths returns the registered paths in sorted order.
func (t *RouteTable) Paths() []string {
	return slices.Sorted(maps.Keys(t.routes))
}

// Len returns the number of registered paths.
func (t *RouteTable) Len() int {
	return len(t.routes)
}

// registerSubRouter registers all routes in a sub-router.
// The prefix of every enclosing sub-router is prepended to each route path.
func (t *RouteTable) registerSubRouter(prefix string, sr SubRouterConfig) error {
	prefix += sr.PathPrefix
	for _, route := range sr.Routes {
		if err := t.Register(prefix+route.Path, route.Handler); err != nil {
			return err
		}
	}
	for _, nested := range sr.SubRouters {
		if err := t.registerSubRouter(prefix, nested); err != nil {
			return err
		}
	}
	return nil
}
