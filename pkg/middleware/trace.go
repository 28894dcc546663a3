package middleware

import (
	"context"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/google/uuid"
)

// TraceIDHeader is the header used to propagate the trace ID.
const TraceIDHeader = "X-Request-ID"

type traceIDKey struct{}

// TraceIDKey is the key used to store the trace ID in the request context
var TraceIDKey = traceIDKey{}

// Trace is a middleware that assigns a unique trace ID to each request
// and echoes it back in the X-Request-ID response header.
// An incoming X-Request-ID header is reused when present.
type Trace struct{}

// NewTrace creates a Trace middleware.
func NewTrace() *Trace {
	return &Trace{}
}

// Before adds the trace ID to the request context.
func (t *Trace) Before(req *common.Request) (*common.Request, error) {
	traceID := req.HeaderValue(TraceIDHeader)
	if traceID == "" {
		traceID = uuid.New().String()
	}
	return req.WithValue(TraceIDKey, traceID), nil
}

// After sets the trace ID response header.
func (t *Trace) After(resp *common.Response) (*common.Response, error) {
	if resp.Request != nil {
		if traceID := GetTraceID(resp.Request); traceID != "" {
			resp.SetHeader(TraceIDHeader, traceID)
		}
	}
	return resp, nil
}

// GetTraceID extracts the trace ID from the request context.
// Returns an empty string if no trace ID is found.
func GetTraceID(req *common.Request) string {
	if req == nil {
		return ""
	}
	return GetTraceIDFromContext(req.Context())
}

// GetTraceIDFromContext extracts the trace ID from a context.
// Returns an empty string if no trace ID is found.
func GetTraceIDFromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}
