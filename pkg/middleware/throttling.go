package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Suhaibinator/SDispatch/pkg/common"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

// ThrottleMode defines how the Throttling middleware treats admitted requests.
type ThrottleMode string

const (
	// ThrottleBlock rejects requests over the limit with 429 Too Many Requests.
	ThrottleBlock ThrottleMode = "block"

	// ThrottleWait also rejects requests over the limit, and additionally paces
	// admitted requests evenly across the window.
	// The wait ends early with the request context's error once the context
	// is done.
	ThrottleWait ThrottleMode = "wait"
)

// ErrThrottled is the error returned when a client exceeds its rate.
var ErrThrottled = common.NewAppError(http.StatusTooManyRequests, "Too Many Requests")

// Clock is the time source used by the Throttling middleware.
// It matches the clock accepted by go.uber.org/ratelimit.
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// ThrottlingConfig defines configuration for throttling
type ThrottlingConfig struct {
	// Maximum number of requests allowed per client in each window
	Rate int `mapstructure:"rate" validate:"gt=0"`

	// Length of the fixed window (e.g., 1 minute, 1 hour)
	Duration time.Duration `mapstructure:"duration" validate:"gt=0"`

	// Mode is "block" (default) or "wait"
	Mode ThrottleMode `mapstructure:"mode" validate:"omitempty,oneof=block wait"`

	// Unique identifier for this throttle bucket.
	// Middlewares sharing a BucketName and Store share their counters.
	BucketName string `mapstructure:"bucket"`

	// Custom key extractor. Defaults to the client IP.
	KeyExtractor func(*common.Request) (string, error) `mapstructure:"-"`

	// Clock overrides the time source (for tests).
	Clock Clock `mapstructure:"-"`
}

// Store is the counter storage behind the Throttling middleware.
// Implementations must be safe under concurrent increments from many
// in-flight requests.
type Store interface {
	// Increment adds one to the counter of key in the given window and returns
	// the new count. The counter may be discarded once ttl has elapsed after
	// the window start.
	Increment(key string, window time.Time, ttl time.Duration) int
}

type windowCount struct {
	window  time.Time
	expires time.Time
	count   int
}

// MemoryStore is an in-process Store guarded by a mutex.
type MemoryStore struct {
	mu        sync.Mutex
	counts    map[string]*windowCount
	lastSweep time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]*windowCount)}
}

// Increment implements Store.
func (s *MemoryStore) Increment(key string, window time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Expired windows are dropped at most once per window start
	if !window.Equal(s.lastSweep) {
		for k, c := range s.counts {
			if !c.expires.After(window) {
				delete(s.counts, k)
			}
		}
		s.lastSweep = window
	}

	c, ok := s.counts[key]
	if !ok || !c.window.Equal(window) {
		c = &windowCount{window: window, expires: window.Add(ttl)}
		s.counts[key] = c
	}
	c.count++
	return c.count
}

// Len returns the number of live counters.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counts)
}

type throttleStateKey struct{}

type throttleState struct {
	limit     int
	remaining int
	reset     time.Time
}

// pacer is the wait mode limiter of one client key.
type pacer struct {
	limiter    ratelimit.Limiter
	lastWindow atomic.Int64 // UnixNano of the last window the key was seen in
}

// Throttling is a middleware that enforces a per-client request rate.
type Throttling struct {
	config    ThrottlingConfig
	store     Store
	logger    *zap.Logger
	clock     Clock
	limiters  sync.Map // map[string]*pacer
	lastSweep atomic.Int64
	mu        sync.Mutex
}

// NewThrottling creates a Throttling middleware.
// A nil store gets a fresh MemoryStore.
func NewThrottling(config ThrottlingConfig, store Store, logger *zap.Logger) *Throttling {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Mode == "" {
		config.Mode = ThrottleBlock
	}
	if config.Rate <= 0 {
		config.Rate = 1
	}
	if config.Duration <= 0 {
		config.Duration = time.Second
	}
	clock := config.Clock
	if clock == nil {
		clock = realClock{}
	}
	return &Throttling{config: config, store: store, logger: logger, clock: clock}
}

// getLimiter gets or creates the pacing limiter for the given key and marks
// it as used in window.
func (t *Throttling) getLimiter(key string, window time.Time) ratelimit.Limiter {
	p := t.getPacer(key)
	p.lastWindow.Store(window.UnixNano())
	return p.limiter
}

func (t *Throttling) getPacer(key string) *pacer {
	if p, ok := t.limiters.Load(key); ok {
		return p.(*pacer)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check after acquiring lock
	if p, ok := t.limiters.Load(key); ok {
		return p.(*pacer)
	}

	p := &pacer{limiter: ratelimit.New(t.config.Rate, ratelimit.Per(t.config.Duration), ratelimit.WithClock(t.clock))}
	t.limiters.Store(key, p)
	return p
}

// sweepLimiters drops the limiters of keys not seen in the current or the
// previous window. It runs at most once per window start.
func (t *Throttling) sweepLimiters(window time.Time) {
	start := window.UnixNano()
	if t.lastSweep.Swap(start) == start {
		return
	}
	cutoff := window.Add(-t.config.Duration).UnixNano()
	t.limiters.Range(func(key, value any) bool {
		if value.(*pacer).lastWindow.Load() < cutoff {
			t.limiters.CompareAndDelete(key, value)
		}
		return true
	})
}

// wait paces the request through the key's limiter, giving up when ctx is done.
// An abandoned wait still takes its slot from the limiter.
func (t *Throttling) wait(ctx context.Context, key string, window time.Time) error {
	t.sweepLimiters(window)
	limiter := t.getLimiter(key, window)
	if ctx.Done() == nil {
		limiter.Take()
		return nil
	}

	done := make(chan struct{})
	go func() {
		limiter.Take()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}


// key extracts the client key based on the configured extractor
func (t *Throttling) key(req *common.Request) (string, error) {
	if t.config.KeyExtractor != nil {
		return t.config.KeyExtractor(req)
	}
	if ip := ClientIPFrom(req); ip != "" {
		return ip, nil
	}
	return cleanIP(req.RemoteAddr()), nil
}

// Before counts the request and rejects it with 429 once the client exceeds its rate.
func (t *Throttling) Before(req *common.Request) (*common.Request, error) {
	key, err := t.key(req)
	if err != nil {
		t.logger.Error("Failed to extract throttle key",
			zap.Error(err),
			zap.String("method", req.Method()),
			zap.String("path", req.Path()),
		)
		return nil, err
	}

	// Combine bucket name and key to create a unique identifier
	bucketKey := t.config.BucketName + ":" + key

	now := t.clock.Now()
	window := now.Truncate(t.config.Duration)
	count := t.store.Increment(bucketKey, window, t.config.Duration)
	state := throttleState{
		limit:     t.config.Rate,
		remaining: max(t.config.Rate-count, 0),
		reset:     window.Add(t.config.Duration),
	}

	if count > t.config.Rate {
		retryAfter := int64(state.reset.Sub(now).Seconds()) + 1
		t.logger.Warn("Rate limit exceeded",
			zap.String("method", req.Method()),
			zap.String("path", req.Path()),
			zap.String("key", key),
			zap.Int("limit", t.config.Rate),
			zap.Int("count", count),
		)
		return nil, ErrThrottled.
			WithHeader("Retry-After", strconv.FormatInt(retryAfter, 10)).
			WithHeader("X-RateLimit-Limit", strconv.Itoa(state.limit)).
			WithHeader("X-RateLimit-Remaining", "0").
			WithHeader("X-RateLimit-Reset", strconv.FormatInt(state.reset.Unix(), 10))
	}

	if t.config.Mode == ThrottleWait {
		if err := t.wait(req.Context(), bucketKey, window); err != nil {
			t.logger.Warn("Throttle wait abandoned",
				zap.Error(err),
				zap.String("method", req.Method()),
				zap.String("path", req.Path()),
				zap.String("key", key),
			)
			return nil, err
		}
	}

	return req.WithValue(throttleStateKey{}, state), nil
}

// After sets the rate limit headers on the response.
func (t *Throttling) After(resp *common.Response) (*common.Response, error) {
	if resp.Request == nil {
		return resp, nil
	}
	state, ok := resp.Request.Context().Value(throttleStateKey{}).(throttleState)
	if !ok {
		return resp, nil
	}
	resp.SetHeader("X-RateLimit-Limit", strconv.Itoa(state.limit))
	resp.SetHeader("X-RateLimit-Remaining", strconv.Itoa(state.remaining))
	resp.SetHeader("X-RateLimit-Reset", strconv.FormatInt(state.reset.Unix(), 10))
	return resp, nil
}
