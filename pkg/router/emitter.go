package router

import (
	"context"
	"net/http"

	"github.com/Suhaibinator/SDispatch/pkg/codec"
	"github.com/Suhaibinator/SDispatch/pkg/common"
	"github.com/Suhaibinator/SDispatch/pkg/metrics"
	"github.com/Suhaibinator/SDispatch/pkg/middleware"
	"go.uber.org/zap"
)

// fallbackBody is sent when a response payload cannot be encoded.
var fallbackBody = []byte(`{"detail":"Internal Server Error"}`)

// emit encodes resp, hands it to send and closes the monitoring signal.
// It is the only place a response leaves the dispatcher. A status outside
// 100..599 is replaced by the 500 fallback.
func (r *Router) emit(ctx context.Context, send SendFunc, resp *common.Response, signal *metrics.Signal, isException bool) {
	status := resp.StatusCode
	header := resp.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}

	var body []byte
	switch {
	case status < 100 || status > 599:
		r.logger.Error("Invalid response status", r.logFields(resp.Request, zap.Int("status", status))...)
		status = http.StatusInternalServerError
		isException = true
		body = fallbackBody
		header.Set("Content-Type", codec.NewJSONCodec().ContentType())
	case resp.Data != nil:
		c := codec.ForData(resp.Data)
		encoded, err := c.Encode(resp.Data)
		if err != nil {
			r.logger.Error("Failed to encode response", r.logFields(resp.Request, zap.Error(err), zap.Int("status", status))...)
			status = http.StatusInternalServerError
			isException = true
			encoded = fallbackBody
			c = codec.NewJSONCodec()
		}
		body = encoded
		header.Set("Content-Type", c.ContentType())
	}

	if err := send(ctx, status, body, header); err != nil {
		r.logger.Warn("Failed to send response", r.logFields(resp.Request, zap.Error(err), zap.Int("status", status))...)
	}
	signal.Close(status, isException)
}

// logFields builds the common log fields for req, with the trace ID first when enabled.
func (r *Router) logFields(req *common.Request, fields ...zap.Field) []zap.Field {
	if req == nil {
		return fields
	}
	base := []zap.Field{
		zap.String("method", req.Method()),
		zap.String("path", req.Path()),
	}
	if r.config.EnableTraceID {
		if traceID := middleware.GetTraceID(req); traceID != "" {
			base = append([]zap.Field{zap.String("trace_id", traceID)}, base...)
		}
	}
	return append(base, fields...)
}
