// Package metrics provides the per-request monitoring signal for SDispatch.
// Signals are backed by Prometheus collectors and an optional zap logger.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MonitorConfig defines the configuration for a Monitor.
type MonitorConfig struct {
	Registerer prometheus.Registerer // Registry to register collectors with (defaults to prometheus.DefaultRegisterer)
	Namespace  string                // Namespace for metrics
	Subsystem  string                // Subsystem for metrics
	Logger     *zap.Logger           // Logger for the per-request monitoring line (optional)
	Buckets    []float64             // Latency histogram buckets (defaults to prometheus.DefBuckets)
}

// Monitor opens one Signal per request and records it when the signal is closed.
type Monitor struct {
	logger     *zap.Logger
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	exceptions *prometheus.CounterVec
	inFlight   prometheus.Gauge
}

// NewMonitor creates a Monitor and registers its collectors.
// Collectors that are already registered with an identical description are reused,
// so several monitors may share a registry.
func NewMonitor(config MonitorConfig) (*Monitor, error) {
	reg := config.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := config.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "requests_total",
		Help:      "Total number of dispatched requests",
	}, []string{"method", "status"})

	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "request_latency_seconds",
		Help:      "Request latency in seconds",
		Buckets:   buckets,
	}, []string{"method"})

	exceptions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "request_exceptions_total",
		Help:      "Total number of requests that ended on a fatal path (no route, unhandled error)",
	}, []string{"status"})

	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "requests_in_flight",
		Help:      "Number of requests currently being dispatched",
	})

	m := &Monitor{logger: logger}
	var err error
	if m.requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if m.latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if m.exceptions, err = register(reg, exceptions); err != nil {
		return nil, err
	}
	if m.inFlight, err = register(reg, inFlight); err != nil {
		return nil, err
	}
	return m, nil
}

// register registers c, returning the existing collector if an equal one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Open opens a monitoring signal for a request.
// It is safe to call on a nil Monitor; the signal then only tracks its own state.
func (m *Monitor) Open(method, path, remoteAddr string) *Signal {
	s := &Signal{
		monitor:    m,
		method:     method,
		path:       path,
		remoteAddr: remoteAddr,
		start:      time.Now(),
	}
	if m != nil {
		m.inFlight.Inc()
	}
	return s
}

// Signal is the monitoring handle of a single request.
// It is opened before routing and closed exactly once when the response is emitted.
type Signal struct {
	monitor    *Monitor
	method     string
	path       string
	remoteAddr string
	start      time.Time

	once      sync.Once
	mu        sync.Mutex
	closed    bool
	status    int
	exception bool
	duration  time.Duration
}

// Close records the outcome of the request.
// Only the first call has an effect; later calls are ignored.
func (s *Signal) Close(statusCode int, isException bool) {
	s.once.Do(func() {
		duration := time.Since(s.start)

		s.mu.Lock()
		s.closed = true
		s.status = statusCode
		s.exception = isException
		s.duration = duration
		s.mu.Unlock()

		m := s.monitor
		if m == nil {
			return
		}

		status := strconv.Itoa(statusCode)
		m.inFlight.Dec()
		m.requests.WithLabelValues(s.method, status).Inc()
		m.latency.WithLabelValues(s.method).Observe(duration.Seconds())
		if isException {
			m.exceptions.WithLabelValues(status).Inc()
		}

		m.logger.Info("Request monitored",
			zap.String("method", s.method),
			zap.String("path", s.path),
			zap.String("remote_addr", s.remoteAddr),
			zap.Int("status", statusCode),
			zap.Duration("duration", duration),
			zap.Bool("exception", isException),
		)
	})
}

// Closed reports whether Close has been called.
func (s *Signal) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Status returns the status code recorded by Close, or 0 if the signal is still open.
func (s *Signal) Status() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Exception reports whether the request ended on a fatal path.
func (s *Signal) Exception() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exception
}

// Duration returns the time between Open and Close.
func (s *Signal) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// Handler returns an HTTP handler exposing the metrics of gatherer.
// A nil gatherer exposes the default registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
