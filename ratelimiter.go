package asyncprim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcveil/asyncprim/metrics"
)

// RateLimiterSettings bounds one key to maxRequests per window.
type RateLimiterSettings struct {
	MaxRequests int
	Window      time.Duration
}

// defaultRateLimiterSettings is the default budget applied to any key that
// has no explicit configuration: 5 requests per second.
var defaultRateLimiterSettings = RateLimiterSettings{MaxRequests: 5, Window: time.Second}

type rlWaiter struct {
	done chan struct{}
}

// RateLimiter applies a per-key sliding-window request budget with FIFO
// waiter queues. Follows a mutex-first discipline: no nested lock
// acquisition, and waking a resumed waiter always happens after the state
// mutex is released.
type RateLimiter struct {
	mu       sync.Mutex
	settings map[string]RateLimiterSettings
	requests map[string][]time.Time
	waiters  map[string][]*rlWaiter
	rejected map[string]int
	paused   atomic.Bool

	admitted metrics.Counter
	deniedMX metrics.Counter
}

// RateLimiterOption configures NewRateLimiter.
type RateLimiterOption func(*rlConfig)

type rlConfig struct {
	metrics metrics.Provider
}

// WithRateLimiterMetrics attaches a metrics.Provider recording
// admitted/rejected request counts.
func WithRateLimiterMetrics(p metrics.Provider) RateLimiterOption {
	return func(c *rlConfig) {
		if p != nil {
			c.metrics = p
		}
	}
}

// NewRateLimiter constructs an empty RateLimiter. Per-key settings default
// to defaultRateLimiterSettings on first use.
func NewRateLimiter(opts ...RateLimiterOption) *RateLimiter {
	cfg := rlConfig{metrics: metrics.NewNoopProvider()}
	for _, o := range opts {
		o(&cfg)
	}
	return &RateLimiter{
		settings: make(map[string]RateLimiterSettings),
		requests: make(map[string][]time.Time),
		waiters:  make(map[string][]*rlWaiter),
		rejected: make(map[string]int),
		admitted: cfg.metrics.Counter("asyncprim_ratelimiter_admitted_total"),
		deniedMX: cfg.metrics.Counter("asyncprim_ratelimiter_rejected_total"),
	}
}

// SetFunctionLimit configures key's budget. Fails with ErrInvalidArgument if
// max <= 0 or window <= 0.
func (r *RateLimiter) SetFunctionLimit(key string, max int, window time.Duration) error {
	if max <= 0 || window <= 0 {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	r.settings[key] = RateLimiterSettings{MaxRequests: max, Window: window}
	r.mu.Unlock()
	return nil
}

// SetFunctionLimits configures several keys at once. Fails (leaving nothing
// applied) if any entry is invalid.
func (r *RateLimiter) SetFunctionLimits(batch map[string]RateLimiterSettings) error {
	for _, s := range batch {
		if s.MaxRequests <= 0 || s.Window <= 0 {
			return ErrInvalidArgument
		}
	}
	r.mu.Lock()
	for key, s := range batch {
		r.settings[key] = s
	}
	r.mu.Unlock()
	return nil
}

func (r *RateLimiter) ensureSettingsLocked(key string) RateLimiterSettings {
	s, ok := r.settings[key]
	if !ok {
		s = defaultRateLimiterSettings
		r.settings[key] = s
	}
	return s
}

func (r *RateLimiter) cleanupLocked(key string, window time.Duration) {
	cutoff := time.Now().Add(-window)
	ts := r.requests[key]
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		r.requests[key] = append(ts[:0:0], ts[i:]...)
	}
}

// Acquire blocks the caller if key is over budget or the limiter is paused,
// enqueueing it FIFO. A caller that was enqueued always surfaces
// RateLimitExceeded(key) once resumed, even though resume grants it a
// request slot: wait-and-fail-after-enqueue.
func (r *RateLimiter) Acquire(key string) error {
	r.mu.Lock()
	settings := r.ensureSettingsLocked(key)
	r.cleanupLocked(key, settings.Window)

	if r.paused.Load() || len(r.requests[key]) >= settings.MaxRequests {
		w := &rlWaiter{done: make(chan struct{})}
		r.waiters[key] = append(r.waiters[key], w)
		r.rejected[key]++
		r.mu.Unlock()

		r.deniedMX.Add(1)
		<-w.done
		return RateLimitExceededError(key)
	}

	r.requests[key] = append(r.requests[key], time.Now())
	r.mu.Unlock()
	r.admitted.Add(1)
	return nil
}

// Pause suspends admission for every key; already-enqueued and new callers
// both block until Resume.
func (r *RateLimiter) Pause() { r.paused.Store(true) }

// Resume un-pauses the limiter and drains FIFO waiters per key while
// capacity allows, appending a request timestamp for each drained waiter
// before waking it. Wake-up happens after releasing the state mutex.
func (r *RateLimiter) Resume() {
	r.paused.Store(false)

	r.mu.Lock()
	var toWake []*rlWaiter
	for key, queue := range r.waiters {
		settings := r.ensureSettingsLocked(key)
		r.cleanupLocked(key, settings.Window)
		i := 0
		for i < len(queue) && len(r.requests[key]) < settings.MaxRequests {
			r.requests[key] = append(r.requests[key], time.Now())
			toWake = append(toWake, queue[i])
			i++
		}
		r.waiters[key] = append(queue[:0:0], queue[i:]...)
	}
	r.mu.Unlock()

	for _, w := range toWake {
		close(w.done)
	}
}

// GetRejectedRequests returns key's cumulative rejected count.
func (r *RateLimiter) GetRejectedRequests(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rejected[key]
}

// ResetFunction clears key's recorded requests and rejected count.
func (r *RateLimiter) ResetFunction(key string) {
	r.mu.Lock()
	delete(r.requests, key)
	delete(r.rejected, key)
	r.mu.Unlock()
}

// ResetAll clears every key's recorded requests and rejected counts.
func (r *RateLimiter) ResetAll() {
	r.mu.Lock()
	r.requests = make(map[string][]time.Time)
	r.rejected = make(map[string]int)
	r.mu.Unlock()
}

// GetStats reports key's current in-window request count, cumulative
// rejected count, and effective settings.
func (r *RateLimiter) GetStats(key string) (requests, rejectedCount int, limit RateLimiterSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	settings := r.ensureSettingsLocked(key)
	r.cleanupLocked(key, settings.Window)
	return len(r.requests[key]), r.rejected[key], settings
}
