package common

import (
	"fmt"
	"runtime/debug"
)

// PanicError reports a panic raised inside a hook or handler.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// CallHandler invokes h and converts a panic into a *PanicError.
func CallHandler(h Handler, req *Request) (resp *Response, err error) {
	defer recoverInto(&err)
	return h(req)
}

func callBefore(mw Middleware, req *Request) (next *Request, err error) {
	defer recoverInto(&err)
	return mw.Before(req)
}

func callAfter(mw Middleware, resp *Response) (next *Response, err error) {
	defer recoverInto(&err)
	return mw.After(resp)
}

// recoverInto must be deferred directly so that recover sees the panic.
func recoverInto(err *error) {
	if rec := recover(); rec != nil {
		*err = &PanicError{Value: rec, Stack: debug.Stack()}
	}
}
