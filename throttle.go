package asyncprim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Throttler invokes fn at most once per interval. Unlike Debouncer, which
// waits out quiet periods, Throttler bounds the invocation rate during
// continuous bursts: the leading call (if enabled) fires immediately, and at
// most one trailing call captures the last request made before the window
// closed. Scheduling is done through a Timer rather than a standalone
// mechanism.
type Throttler struct {
	fn       func()
	interval time.Duration
	leading  bool
	timer    *Timer

	callCount atomic.Int64

	mu           sync.Mutex
	lastInvoke   time.Time
	trailingID   uuid.UUID
	hasTrailing  bool
	trailingCall bool
}

// ThrottlerOption configures NewThrottler.
type ThrottlerOption func(*Throttler)

// WithThrottlerLeading enables the immediate leading-edge invocation
// (enabled by default — pass WithThrottlerNoLeading to disable it).
func WithThrottlerLeading() ThrottlerOption {
	return func(t *Throttler) { t.leading = true }
}

// WithThrottlerNoLeading disables the leading-edge invocation; only
// trailing calls fire.
func WithThrottlerNoLeading() ThrottlerOption {
	return func(t *Throttler) { t.leading = false }
}

// NewThrottler constructs a Throttler scheduled on timer, leading-edge enabled
// by default.
func NewThrottler(timer *Timer, fn func(), interval time.Duration, opts ...ThrottlerOption) *Throttler {
	th := &Throttler{fn: fn, interval: interval, leading: true, timer: timer}
	for _, o := range opts {
		o(th)
	}
	return th
}

// Call registers one invocation request.
func (th *Throttler) Call() {
	th.mu.Lock()
	now := time.Now()

	if th.lastInvoke.IsZero() || now.Sub(th.lastInvoke) >= th.interval {
		th.lastInvoke = now
		th.mu.Unlock()
		if th.leading {
			th.invoke()
		} else {
			th.scheduleTrailing()
		}
		return
	}

	th.trailingCall = true
	if !th.hasTrailing {
		remaining := th.interval - now.Sub(th.lastInvoke)
		id, _ := th.timer.SetInterval(func() { th.fireTrailing() }, maxDuration(remaining, time.Nanosecond), 1, PriorityNormal)
		th.trailingID = id
		th.hasTrailing = true
	}
	th.mu.Unlock()
}

func (th *Throttler) scheduleTrailing() {
	th.mu.Lock()
	th.trailingCall = true
	if !th.hasTrailing {
		id, _ := th.timer.SetInterval(func() { th.fireTrailing() }, maxDuration(th.interval, time.Nanosecond), 1, PriorityNormal)
		th.trailingID = id
		th.hasTrailing = true
	}
	th.mu.Unlock()
}

func (th *Throttler) fireTrailing() {
	th.mu.Lock()
	th.hasTrailing = false
	hadCall := th.trailingCall
	th.trailingCall = false
	if hadCall {
		th.lastInvoke = time.Now()
	}
	th.mu.Unlock()
	if hadCall {
		th.invoke()
	}
}

func (th *Throttler) invoke() {
	th.callCount.Add(1)
	safeRunTick(th.fn)
}

// Flush fires a pending trailing invocation immediately.
func (th *Throttler) Flush() {
	th.mu.Lock()
	id, had, hadCall := th.trailingID, th.hasTrailing, th.trailingCall
	th.hasTrailing = false
	th.trailingCall = false
	th.mu.Unlock()
	if had {
		th.timer.CancelTask(id)
		if hadCall {
			th.invoke()
		}
	}
}

// Cancel drops any pending trailing invocation without firing it.
func (th *Throttler) Cancel() {
	th.mu.Lock()
	id, had := th.trailingID, th.hasTrailing
	th.hasTrailing = false
	th.trailingCall = false
	th.mu.Unlock()
	if had {
		th.timer.CancelTask(id)
	}
}

// Reset drops any pending trailing invocation and resets the call counter
// and leading-edge window.
func (th *Throttler) Reset() {
	th.Cancel()
	th.mu.Lock()
	th.lastInvoke = time.Time{}
	th.mu.Unlock()
	th.callCount.Store(0)
}

// CallCount returns how many times fn has actually fired.
func (th *Throttler) CallCount() int64 { return th.callCount.Load() }
