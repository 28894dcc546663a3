// Package common provides shared types and utilities used across the SDispatch framework.
package common

import (
	"context"
	"encoding/json"
	"maps"
	"mime"
	"net/http"
)

// Request is the inbound request as seen by middlewares and handlers.
// It is immutable after construction: derivation methods such as WithContext
// return a new Request and leave the receiver untouched.
type Request struct {
	ctx        context.Context
	method     string
	path       string
	remoteAddr string
	header     http.Header
	body       []byte
	data       any
}

// NewRequest creates a Request from the transport event and the raw body bytes.
// If the Content-Type is JSON and the body decodes cleanly, the decoded value
// is available through Data.
func NewRequest(ctx context.Context, method, path, remoteAddr string, header http.Header, body []byte) *Request {
	if ctx == nil {
		ctx = context.Background()
	}
	if header == nil {
		header = make(http.Header)
	} else {
		header = header.Clone()
	}

	req := &Request{
		ctx:        ctx,
		method:     method,
		path:       path,
		remoteAddr: remoteAddr,
		header:     header,
		body:       body,
	}

	if len(body) > 0 && isJSON(header.Get("Content-Type")) {
		var data any
		if err := json.Unmarshal(body, &data); err == nil {
			req.data = data
		}
	}

	return req
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

// Context returns the request's context. It is never nil.
func (r *Request) Context() context.Context {
	return r.ctx
}

// Method returns the request method.
func (r *Request) Method() string {
	return r.method
}

// Path returns the request path exactly as received from the transport.
func (r *Request) Path() string {
	return r.path
}

// RemoteAddr returns the network address of the peer.
func (r *Request) RemoteAddr() string {
	return r.remoteAddr
}

// Header returns a copy of the request headers.
func (r *Request) Header() http.Header {
	return r.header.Clone()
}

// HeaderValue returns the first value of the named header.
func (r *Request) HeaderValue(key string) string {
	return r.header.Get(key)
}

// Body returns a copy of the raw request body.
func (r *Request) Body() []byte {
	if r.body == nil {
		return nil
	}
	b := make([]byte, len(r.body))
	copy(b, r.body)
	return b
}

// Data returns the parsed JSON body, or nil if the body is empty or not JSON.
// The result is a deep copy, so callers may modify it freely.
func (r *Request) Data() any {
	return cloneJSON(r.data)
}

// cloneJSON copies the maps and slices produced by json.Unmarshal into any.
func cloneJSON(v any) any {
	switch v := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = cloneJSON(e)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, e := range v {
			s[i] = cloneJSON(e)
		}
		return s
	default:
		return v
	}
}

// Decode unmarshals the raw body as JSON into v.
// It returns a 400 AppError if the body cannot be decoded.
func (r *Request) Decode(v any) error {
	if len(r.body) == 0 {
		return NewAppError(http.StatusBadRequest, "Request body is empty.")
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		return NewAppError(http.StatusBadRequest, "Invalid JSON body.")
	}
	return nil
}

// WithContext returns a shallow copy of r with its context changed to ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic("nil context")
	}
	r2 := *r
	r2.ctx = ctx
	return &r2
}

// WithValue returns a copy of r whose context carries val under key.
func (r *Request) WithValue(key, val any) *Request {
	return r.WithContext(context.WithValue(r.ctx, key, val))
}

// Response is the outbound response produced by a handler or by error translation.
// Unlike Request it is mutable, and after hooks may also replace it outright.
type Response struct {
	StatusCode int         // HTTP status code
	Data       any         // Structured payload, serialized by the emitter
	Header     http.Header // Extra response headers

	// Request is the request that produced this response.
	// The dispatcher sets it before the after pass.
	Request *Request
}

// NewResponse creates a Response with the given status code and payload.
func NewResponse(statusCode int, data any) *Response {
	return &Response{
		StatusCode: statusCode,
		Data:       data,
		Header:     make(http.Header),
	}
}

// Merge merges fields into the response payload.
// Map payloads gain the new keys, overwriting existing ones. A nil payload
// becomes a new map. Any other payload is wrapped as {"data": <payload>}
// before merging.
// The payload is replaced by a new map; a map returned by a handler is never
// written to, since handlers may share it between requests.
func (resp *Response) Merge(fields map[string]any) {
	var merged map[string]any
	switch data := resp.Data.(type) {
	case nil:
		merged = make(map[string]any, len(fields))
	case map[string]any:
		merged = make(map[string]any, len(data)+len(fields))
		maps.Copy(merged, data)
	case map[string]string:
		merged = make(map[string]any, len(data)+len(fields))
		for k, v := range data {
			merged[k] = v
		}
	default:
		merged = map[string]any{"data": data}
	}
	for k, v := range fields {
		merged[k] = v
	}
	resp.Data = merged
}

// SetHeader sets a response header, allocating the header map if needed.
func (resp *Response) SetHeader(key, value string) {
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Header.Set(key, value)
}

// Handler handles a request and returns its response.
// It may return an *AppError to produce a specific response; any other
// error is treated as fatal for the request and surfaces as a 500.
type Handler func(req *Request) (*Response, error)

// Middleware intercepts requests before the handler and responses after it.
// Before hooks run in registration order and may replace the request.
// After hooks run in reverse registration order and may replace the response.
// Returning a nil value from either hook leaves the input unchanged.
type Middleware interface {
	Before(req *Request) (*Request, error)
	After(resp *Response) (*Response, error)
}

// Base is a pass-through Middleware meant to be embedded by middlewares
// that only need one of the two hooks.
type Base struct{}

// Before returns the request unchanged.
func (Base) Before(req *Request) (*Request, error) {
	return req, nil
}

// After returns the response unchanged.
func (Base) After(resp *Response) (*Response, error) {
	return resp, nil
}

// Funcs adapts a pair of plain functions to the Middleware interface.
// A nil function behaves as a pass-through.
type Funcs struct {
	BeforeFunc func(req *Request) (*Request, error)
	AfterFunc  func(resp *Response) (*Response, error)
}

// Before calls BeforeFunc if set.
func (f Funcs) Before(req *Request) (*Request, error) {
	if f.BeforeFunc == nil {
		return req, nil
	}
	return f.BeforeFunc(req)
}

// After calls AfterFunc if set.
func (f Funcs) After(resp *Response) (*Response, error) {
	if f.AfterFunc == nil {
		return resp, nil
	}
	return f.AfterFunc(resp)
}
