package common

import "slices"

// MiddlewareChain is an immutable, ordered sequence of middlewares.
// It is built once at startup and shared by every request.
type MiddlewareChain struct {
	middlewares []Middleware
}

// NewMiddlewareChain creates a new middleware chain.
// The input slice is copied, so later changes to it do not affect the chain.
func NewMiddlewareChain(middlewares ...Middleware) MiddlewareChain {
	return MiddlewareChain{middlewares: slices.Clone(middlewares)}
}

// Append returns a new chain with middlewares added to the end
func (c MiddlewareChain) Append(middlewares ...Middleware) MiddlewareChain {
	result := make([]Middleware, 0, len(c.middlewares)+len(middlewares))
	result = append(result, c.middlewares...)
	result = append(result, middlewares...)
	return MiddlewareChain{middlewares: result}
}

// Prepend returns a new chain with middlewares added to the beginning
func (c MiddlewareChain) Prepend(middlewares ...Middleware) MiddlewareChain {
	result := make([]Middleware, 0, len(c.middlewares)+len(middlewares))
	result = append(result, middlewares...)
	result = append(result, c.middlewares...)
	return MiddlewareChain{middlewares: result}
}

// Len returns the number of middlewares in the chain
func (c MiddlewareChain) Len() int {
	return len(c.middlewares)
}

// Middlewares returns a copy of the chain in registration order
func (c MiddlewareChain) Middlewares() []Middleware {
	return slices.Clone(c.middlewares)
}

// Before runs the before hooks in registration order.
// Each hook receives the request returned by the previous one. It stops at the
// first error and returns it together with the number of hooks that completed,
// so the caller can unwind only those. A panicking hook is reported as an error.
func (c MiddlewareChain) Before(req *Request) (*Request, int, error) {
	for i, mw := range c.middlewares {
		next, err := callBefore(mw, req)
		if err != nil {
			return req, i, err
		}
		if next != nil {
			req = next
		}
	}
	return req, len(c.middlewares), nil
}

// After runs the after hooks of the first completed middlewares in reverse order.
// The shared sequence is iterated backwards, never reversed in place.
// An error from a hook does not stop the pass: onError converts it into the
// response handed to the next hook.
func (c MiddlewareChain) After(resp *Response, completed int, onError func(mw Middleware, err error) *Response) *Response {
	completed = min(max(completed, 0), len(c.middlewares))
	for _, mw := range slices.Backward(c.middlewares[:completed]) {
		next, err := callAfter(mw, resp)
		switch {
		case err != nil:
			if replaced := onError(mw, err); replaced != nil {
				if replaced.Request == nil {
					replaced.Request = resp.Request
				}
				resp = replaced
			}
		case next != nil:
			if next.Request == nil {
				next.Request = resp.Request
			}
			resp = next
		}
	}
	return resp
}

