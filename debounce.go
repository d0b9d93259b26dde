package asyncprim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Debouncer delays invoking fn until delay has elapsed since the last call,
// optionally firing immediately on the first call of a burst. Scheduling is
// done through a Timer rather than standing up a second mechanism.
type Debouncer struct {
	fn        func()
	delay     time.Duration
	leading   bool
	maxWait   time.Duration
	timer     *Timer
	callCount atomic.Int64

	mu           sync.Mutex
	pendingID    uuid.UUID
	hasPending   bool
	burstStartAt time.Time
	lastInvoke   time.Time
}

// DebouncerOption configures NewDebouncer.
type DebouncerOption func(*Debouncer)

// WithLeading makes the first call of a burst invoke fn immediately.
func WithLeading() DebouncerOption {
	return func(d *Debouncer) { d.leading = true }
}

// WithMaxWait caps how long a burst may keep re-arming the trailing timer
// before it is forced to fire.
func WithMaxWait(maxWait time.Duration) DebouncerOption {
	return func(d *Debouncer) { d.maxWait = maxWait }
}

// NewDebouncer constructs a Debouncer scheduled on t.
func NewDebouncer(t *Timer, fn func(), delay time.Duration, opts ...DebouncerOption) *Debouncer {
	d := &Debouncer{fn: fn, delay: delay, timer: t}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Call registers one invocation request.
func (d *Debouncer) Call() {
	d.mu.Lock()
	now := time.Now()

	if !d.hasPending {
		d.burstStartAt = now
		if d.leading {
			d.mu.Unlock()
			d.invoke()
			d.mu.Lock()
			d.lastInvoke = now
		}
	}

	wait := d.delay
	if d.maxWait > 0 {
		if elapsed := now.Sub(d.burstStartAt); elapsed+wait > d.maxWait {
			wait = d.maxWait - elapsed
			if wait < 0 {
				wait = 0
			}
		}
	}

	if d.hasPending {
		d.timer.CancelTask(d.pendingID)
	}
	id, _ := d.timer.SetInterval(func() { d.fire() }, maxDuration(wait, time.Nanosecond), 1, PriorityNormal)
	d.pendingID = id
	d.hasPending = true
	d.mu.Unlock()
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.hasPending = false
	d.mu.Unlock()
	d.invoke()
}

func (d *Debouncer) invoke() {
	d.callCount.Add(1)
	safeRunTick(d.fn)
}

// Flush fires any pending invocation immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	id, had := d.pendingID, d.hasPending
	d.hasPending = false
	d.mu.Unlock()
	if had {
		d.timer.CancelTask(id)
		d.invoke()
	}
}

// Cancel drops any pending invocation without firing it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	id, had := d.pendingID, d.hasPending
	d.hasPending = false
	d.mu.Unlock()
	if had {
		d.timer.CancelTask(id)
	}
}

// Reset drops any pending invocation and resets the call counter.
func (d *Debouncer) Reset() {
	d.Cancel()
	d.callCount.Store(0)
}

// CallCount returns how many times fn has actually fired.
func (d *Debouncer) CallCount() int64 { return d.callCount.Load() }

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

func safeRunTick(fn func()) {
	defer func() { _ = recover() }()
	fn()
}
