// Package middleware provides a collection of before/after interceptors for the SDispatch framework.
package middleware

import (
	"strings"
	"time"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"go.uber.org/zap"
)

// Use the Middleware type from the common package
type Middleware = common.Middleware

type startTimeKey struct{}

// Logging is a middleware that logs requests
type Logging struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

// LoggingConfig defines configuration for the Logging middleware
type LoggingConfig struct {
	// Requests taking longer than SlowThreshold are logged at warn level.
	// Zero means one second.
	SlowThreshold time.Duration `mapstructure:"slow_threshold" validate:"gte=0"`
}

// NewLogging creates a Logging middleware.
// Requests slower than one second are reported as slow.
func NewLogging(logger *zap.Logger) *Logging {
	return NewLoggingWithConfig(logger, LoggingConfig{})
}

// NewLoggingWithConfig creates a Logging middleware with the given configuration.
func NewLoggingWithConfig(logger *zap.Logger, config LoggingConfig) *Logging {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SlowThreshold <= 0 {
		config.SlowThreshold = time.Second
	}
	return &Logging{logger: logger, slowThreshold: config.SlowThreshold}
}

// Before records the start time of the request.
func (l *Logging) Before(req *common.Request) (*common.Request, error) {
	return req.WithValue(startTimeKey{}, time.Now()), nil
}

// After logs the request at a level chosen by status code and duration.
func (l *Logging) After(resp *common.Response) (*common.Response, error) {
	req := resp.Request
	if req == nil {
		return resp, nil
	}

	var duration time.Duration
	if start, ok := req.Context().Value(startTimeKey{}).(time.Time); ok {
		duration = time.Since(start)
	}

	fields := []zap.Field{
		zap.String("method", req.Method()),
		zap.String("path", req.Path()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
	}
	if traceID := GetTraceID(req); traceID != "" {
		fields = append([]zap.Field{zap.String("trace_id", traceID)}, fields...)
	}

	// Use appropriate log level based on status code and duration
	switch {
	case resp.StatusCode >= 500:
		l.logger.Error("Server error", append(fields, zap.String("remote_addr", req.RemoteAddr()))...)
	case resp.StatusCode >= 400:
		l.logger.Warn("Client error", fields...)
	case duration > l.slowThreshold:
		l.logger.Warn("Slow request", fields...)
	default:
		// Normal requests at Debug level to avoid log spam
		l.logger.Debug("Request", fields...)
	}
	return resp, nil
}

// CORSConfig defines the CORS headers added to every response.
type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
	Methods []string `mapstructure:"methods"`
	Headers []string `mapstructure:"headers"`
}

// CORS is a middleware that adds CORS headers to the response
type CORS struct {
	common.Base
	config CORSConfig
}

// NewCORS creates a CORS middleware.
func NewCORS(config CORSConfig) *CORS {
	return &CORS{config: config}
}

// After sets the Access-Control-* headers.
func (c *CORS) After(resp *common.Response) (*common.Response, error) {
	if len(c.config.Origins) > 0 {
		resp.SetHeader("Access-Control-Allow-Origin", strings.Join(c.config.Origins, ", "))
	}
	if len(c.config.Methods) > 0 {
		resp.SetHeader("Access-Control-Allow-Methods", strings.Join(c.config.Methods, ", "))
	}
	if len(c.config.Headers) > 0 {
		resp.SetHeader("Access-Control-Allow-Headers", strings.Join(c.config.Headers, ", "))
	}
	return resp, nil
}
