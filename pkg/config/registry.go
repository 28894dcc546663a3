package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/mitchellh/mapstructure"
)

var (
	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrInvalidRegistration is returned for an empty name or a nil value.
	ErrInvalidRegistration = errors.New("invalid registration")
)

// MiddlewareFactory constructs a middleware from its configured arguments.
type MiddlewareFactory func(args Args) (common.Middleware, error)

// Args are the constructor arguments of a configured middleware.
type Args map[string]any

// Decode decodes the arguments into out and validates the result.
// Duration strings such as "1m" are accepted for time.Duration fields.
// Unknown keys are an error.
func (a Args) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused: true,
		Result:      out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(map[string]any(a)); err != nil {
		return fmt.Errorf("failed to decode arguments: %w", err)
	}
	return validateValue(out)
}

// Registry maps configuration names to middleware factories and handlers.
// It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	middlewares map[string]MiddlewareFactory
	handlers    map[string]common.Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		middlewares: make(map[string]MiddlewareFactory),
		handlers:    make(map[string]common.Handler),
	}
}

// RegisterMiddleware registers a middleware factory under name.
func (r *Registry) RegisterMiddleware(name string, factory MiddlewareFactory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("%w: middleware %q", ErrInvalidRegistration, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.middlewares[name]; exists {
		return fmt.Errorf("middleware %q: %w", name, ErrAlreadyRegistered)
	}
	r.middlewares[name] = factory
	return nil
}

// RegisterHandler registers a request handler under name.
func (r *Registry) RegisterHandler(name string, handler common.Handler) error {
	if name == "" || handler == nil {
		return fmt.Errorf("%w: handler %q", ErrInvalidRegistration, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler %q: %w", name, ErrAlreadyRegistered)
	}
	r.handlers[name] = handler
	return nil
}

// Middleware returns the factory registered under name.
func (r *Registry) Middleware(name string) (MiddlewareFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.middlewares[name]
	return f, ok
}

// Handler returns the handler registered under name.
func (r *Registry) Handler(name string) (common.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// MiddlewareNames returns the registered middleware names in sorted order.
func (r *Registry) MiddlewareNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.middlewares))
}

// HandlerNames returns the registered handler names in sorted order.
func (r *Registry) HandlerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.handlers))
}
