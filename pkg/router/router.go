package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/Suhaibinator/SDispatch/pkg/metrics"
	"go.uber.org/zap"
)

// ErrInvalidMiddleware is returned by NewRouter for a nil middleware.
var ErrInvalidMiddleware = errors.New("invalid middleware")

// Scope describes an inbound request as delivered by the transport.
type Scope struct {
	Method     string
	Path       string
	RemoteAddr string
	Header     http.Header
}

// ReceiveFunc reads the complete request body from the transport.
type ReceiveFunc func(ctx context.Context) ([]byte, error)

// SendFunc writes a complete response to the transport.
type SendFunc func(ctx context.Context, status int, body []byte, header http.Header) error

// Router dispatches requests to the handlers of an exact-path route table.
// Every request passes the global middleware chain and produces exactly one
// response, whatever its handler or middlewares do.
// It implements http.Handler and is safe for concurrent use.
type Router struct {
	config     RouterConfig
	logger     *zap.Logger
	routes     *RouteTable
	chain      common.MiddlewareChain
	wg         sync.WaitGroup
	shutdown   bool
	shutdownMu sync.RWMutex
}

// NewRouter creates a new Router with the given configuration.
// The route table and the middleware chain are fully built before it returns.
// A nil handler, a duplicate path or a nil middleware fails construction.
func NewRouter(config RouterConfig) (*Router, error) {
	// Set up the logger
	logger := config.Logger
	if logger == nil {
		// Create a default logger if none is provided
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			// Fallback to a no-op logger if we can't create a production logger
			logger = zap.NewNop()
		}
	}

	for i, mw := range config.Middlewares {
		if mw == nil {
			return nil, fmt.Errorf("%w: middleware %d is nil", ErrInvalidMiddleware, i)
		}
	}

	routes := NewRouteTable()
	for _, route := range config.Routes {
		if err := routes.Register(route.Path, route.Handler); err != nil {
			return nil, err
		}
	}

	// Register routes from sub-routers
	for _, sr := range config.SubRouters {
		if err := routes.registerSubRouter("", sr); err != nil {
			return nil, err
		}
	}

	r := &Router{
		config: config,
		logger: logger,
		routes: routes,
		chain:  common.NewMiddlewareChain(config.Middlewares...),
	}

	logger.Info("Router initialized",
		zap.Int("routes", routes.Len()),
		zap.Int("middlewares", r.chain.Len()),
		zap.Duration("timeout", config.GlobalTimeout),
		zap.Int64("max_body_size", config.GlobalMaxBodySize),
	)
	return r, nil
}

// Routes returns the registered paths in sorted order.
func (r *Router) Routes() []string {
	return r.routes.Paths()
}

// Dispatch serves a single request from any transport.
// It reads the body with receive, runs the request through the middleware
// chain and the resolved handler, and calls send exactly once. It returns the
// request's monitoring signal, which is always closed on return.
func (r *Router) Dispatch(ctx context.Context, scope Scope, receive ReceiveFunc, send SendFunc) *metrics.Signal {
	signal := r.config.Monitor.Open(scope.Method, scope.Path, scope.RemoteAddr)

	r.shutdownMu.RLock()
	if r.shutdown {
		r.shutdownMu.RUnlock()
		r.emit(ctx, send, serviceUnavailable(), signal, false)
		return signal
	}
	r.wg.Add(1)
	r.shutdownMu.RUnlock()
	defer r.wg.Done()

	// Apply timeout
	if r.config.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.GlobalTimeout)
		defer cancel()
	}

	body, err := receive(ctx)
	if err != nil {
		r.logger.Warn("Failed to read request body",
			zap.Error(err),
			zap.String("method", scope.Method),
			zap.String("path", scope.Path),
		)
		r.emit(ctx, send, TranslateError(bodyError(err)), signal, false)
		return signal
	}

	req := common.NewRequest(ctx, scope.Method, scope.Path, scope.RemoteAddr, scope.Header, body)

	handler, ok := r.routes.Resolve(req.Path())
	if !ok {
		resp := notFound()
		resp.Request = req
		r.emit(ctx, send, resp, signal, true)
		return signal
	}

	resp, isException := r.handle(req, handler)
	r.emit(ctx, send, resp, signal, isException)
	return signal
}

// handle runs the before pass, the handler and the after pass for a resolved request.
// The second result reports whether the request ended on a fatal path.
func (r *Router) handle(req *common.Request, handler common.Handler) (*common.Response, bool) {
	req, completed, err := r.chain.Before(req)
	if err != nil {
		appErr, ok := r.classify("Unhandled error in before hook", req, err)
		if !ok {
			return r.fatal(req), true
		}
		resp := TranslateError(appErr)
		resp.Request = req
		return r.after(resp, completed)
	}

	resp, err := r.callHandler(req, handler)
	if err != nil {
		appErr, ok := r.classify("Unhandled error in handler", req, err)
		if !ok {
			return r.fatal(req), true
		}
		resp = TranslateError(appErr)
	} else if resp == nil {
		r.logger.Error("Handler returned no response", r.logFields(req)...)
		return r.fatal(req), true
	}

	resp.Request = req
	return r.after(resp, r.chain.Len())
}

// classify maps a before hook or handler error to its application error.
// An expired deadline is a 408. It returns false, after logging, for errors
// that end the request with a 500.
func (r *Router) classify(msg string, req *common.Request, err error) (*common.AppError, bool) {
	if appErr, ok := common.AsAppError(err); ok {
		return appErr, true
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errRequestTimeout, true
	case errors.Is(err, context.Canceled):
		r.logger.Warn("Request canceled", r.logFields(req, zap.Error(err))...)
	default:
		r.logUnhandled(msg, req, err)
	}
	return nil, false
}

// after unwinds the first completed middlewares in reverse order.
// Application errors are translated in place and any other failure becomes a
// 500; either way the remaining hooks still run.
func (r *Router) after(resp *common.Response, completed int) (*common.Response, bool) {
	req := resp.Request
	isException := false
	resp = r.chain.After(resp, completed, func(_ common.Middleware, err error) *common.Response {
		if appErr, ok := common.AsAppError(err); ok {
			return TranslateError(appErr)
		}
		r.logUnhandled("Unhandled error in after hook", req, err)
		isException = true
		return internalError()
	})
	return resp, isException
}

// callHandler invokes the handler, enforcing the request deadline when one is configured.
// A handler that outlives the deadline keeps running, but its result is discarded.
func (r *Router) callHandler(req *common.Request, handler common.Handler) (*common.Response, error) {
	if r.config.GlobalTimeout <= 0 {
		return common.CallHandler(handler, req)
	}

	type result struct {
		resp *common.Response
		err  error
	}

	// Use a buffered channel so an abandoned handler never blocks
	done := make(chan result, 1)
	go func() {
		resp, err := common.CallHandler(handler, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		return res.resp, res.err
	case <-req.Context().Done():
		err := req.Context().Err()
		if errors.Is(err, context.DeadlineExceeded) {
			r.logger.Error("Request timed out", r.logFields(req,
				zap.Duration("timeout", r.config.GlobalTimeout),
				zap.String("client_ip", req.RemoteAddr()),
			)...)
		}
		return nil, err
	}
}

// fatal builds the 500 response for a request that failed outside the application error path.
func (r *Router) fatal(req *common.Request) *common.Response {
	resp := internalError()
	resp.Request = req
	return resp
}

// logUnhandled logs err at error level, with the stack when it was a panic.
// The error text is logged only, never sent to the client.
func (r *Router) logUnhandled(msg string, req *common.Request, err error) {
	fields := r.logFields(req, zap.Error(err))
	var panicErr *common.PanicError
	if errors.As(err, &panicErr) {
		fields = append(fields, zap.ByteString("stack", panicErr.Stack))
	}
	r.logger.Error(msg, fields...)
}

// ServeHTTP implements the http.Handler interface.
// The body is read through http.MaxBytesReader when GlobalMaxBodySize is set.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	scope := Scope{
		Method:     req.Method,
		Path:       req.URL.Path,
		RemoteAddr: req.RemoteAddr,
		Header:     req.Header,
	}

	receive := func(context.Context) ([]byte, error) {
		if req.Body == nil {
			return nil, nil
		}
		body := req.Body
		// Apply body size limit
		if r.config.GlobalMaxBodySize > 0 {
			body = http.MaxBytesReader(w, body, r.config.GlobalMaxBodySize)
		}
		return io.ReadAll(body)
	}

	send := func(_ context.Context, status int, body []byte, header http.Header) error {
		for key, values := range header {
			w.Header()[key] = values
		}
		w.WriteHeader(status)
		if len(body) == 0 {
			return nil
		}
		_, err := w.Write(body)
		return err
	}

	r.Dispatch(req.Context(), scope, receive, send)
}

// Shutdown gracefully shuts down the router.
// It stops accepting new requests and waits for existing requests to complete.
// Requests arriving after Shutdown receive 503 Service Unavailable.
// If the context is canceled before all requests complete, it returns the context's error.
func (r *Router) Shutdown(ctx context.Context) error {
	// Mark the router as shutting down
	r.shutdownMu.Lock()
	r.shutdown = true
	r.shutdownMu.Unlock()

	// Create a channel to signal when all requests are done
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	// Wait for all requests to finish or for the context to be canceled
	select {
	case <-done:
		r.logger.Info("Router shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
