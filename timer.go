package asyncprim

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arcveil/asyncprim/metrics"
)

// Timer runs every scheduled task on a single dispatcher goroutine, so no
// two tasks ever execute concurrently within one Timer instance. Built on a
// (priority, deadline)-ordered heap, with panic recovery applied to both
// per-task functions and the tick callback: a recovered panic is discarded
// (a SetTimeout task instead rejects its Future with the panic).
type Timer struct {
	mu      sync.Mutex
	queue   timerHeap
	byID    map[uuid.UUID]*timerTask
	nextSeq int64

	paused  atomic.Bool
	stopped atomic.Bool
	wake    chan struct{}

	tickCallback atomic.Pointer[func()]

	tickDuration metrics.Histogram
}

// TimerOption configures NewTimer.
type TimerOption func(*timerConfig)

type timerConfig struct {
	metrics metrics.Provider
}

// WithTimerMetrics attaches a metrics.Provider recording tick duration.
func WithTimerMetrics(p metrics.Provider) TimerOption {
	return func(c *timerConfig) {
		if p != nil {
			c.metrics = p
		}
	}
}

// NewTimer constructs a Timer and starts its dispatcher goroutine.
func NewTimer(opts ...TimerOption) *Timer {
	cfg := timerConfig{metrics: metrics.NewNoopProvider()}
	for _, o := range opts {
		o(&cfg)
	}

	t := &Timer{
		byID:         make(map[uuid.UUID]*timerTask),
		wake:         make(chan struct{}, 1),
		tickDuration: cfg.metrics.Histogram("asyncprim_timer_tick_seconds", metrics.WithUnit("seconds")),
	}
	heap.Init(&t.queue)
	go t.dispatch()
	return t
}

func (t *Timer) notify() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// SetTimeout schedules a one-shot task (priority 0, one firing) and returns
// a Future resolved with fn's result.
func SetTimeout[R any](t *Timer, fn func() (R, error), delay time.Duration) Future[R] {
	p := NewPromise[R]()
	task := &timerTask{
		id:         uuid.New(),
		priority:   0,
		nextFireAt: time.Now().Add(delay),
		delay:      delay,
		remaining:  1,
	}
	task.fn = func() {
		result, err := safeInvokeRetry(fn)
		if err != nil {
			_ = p.Reject(err)
			return
		}
		_ = p.Resolve(result)
	}
	t.insert(task)
	return p.Future()
}

// SetInterval schedules fn to run every interval, repeatCount times
// (-1 = infinite), at priority, returning the task id for later
// cancellation. Validates interval > 0 and repeatCount >= -1.
func (t *Timer) SetInterval(fn func(), interval time.Duration, repeatCount int, priority Priority) (uuid.UUID, error) {
	if interval <= 0 || repeatCount < -1 {
		return uuid.Nil, ErrInvalidArgument
	}
	task := &timerTask{
		id:         uuid.New(),
		priority:   priority,
		nextFireAt: time.Now().Add(interval),
		delay:      interval,
		remaining:  repeatCount,
		fn:         fn,
	}
	t.insert(task)
	return task.id, nil
}

func (t *Timer) insert(task *timerTask) {
	t.mu.Lock()
	task.seq = t.nextSeq
	t.nextSeq++
	heap.Push(&t.queue, task)
	t.byID[task.id] = task
	t.mu.Unlock()
	t.notify()
}

// CancelTask cancels a single scheduled task, returning true iff it was
// still pending.
func (t *Timer) CancelTask(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&t.queue, task.index)
	delete(t.byID, id)
	return true
}

// CancelAllTasks empties the queue and wakes the dispatcher.
func (t *Timer) CancelAllTasks() {
	t.mu.Lock()
	t.queue = t.queue[:0]
	t.byID = make(map[uuid.UUID]*timerTask)
	t.mu.Unlock()
	t.notify()
}

// Pause suspends dispatch without dropping scheduled tasks.
func (t *Timer) Pause() { t.paused.Store(true) }

// Resume resumes dispatch.
func (t *Timer) Resume() {
	t.paused.Store(false)
	t.notify()
}

// Stop halts the dispatcher goroutine permanently.
func (t *Timer) Stop() {
	t.stopped.Store(true)
	t.notify()
}

// Wait blocks until the task queue is empty.
func (t *Timer) Wait() {
	for t.GetTaskCount() > 0 {
		time.Sleep(defaultQueueDrainPollInterval)
	}
}

// SetCallback registers a tick callback invoked after every task execution;
// a panicking callback is swallowed.
func (t *Timer) SetCallback(cb func()) {
	t.tickCallback.Store(&cb)
}

// GetTaskCount returns the number of pending tasks.
func (t *Timer) GetTaskCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

// Now returns the current time, an escape hatch for callers that want to
// timestamp against the Timer's own clock.
func (t *Timer) Now() time.Time { return time.Now() }

func (t *Timer) dispatch() {
	for !t.stopped.Load() {
		if t.paused.Load() {
			select {
			case <-t.wake:
			case <-time.After(defaultTimerPausePollInterval):
			}
			continue
		}

		task, wait, ok := t.popDue()
		if !ok {
			select {
			case <-t.wake:
			case <-time.After(wait):
			}
			continue
		}

		t.runTask(task)
	}
}

// popDue pops the highest-priority task among those whose nextFireAt has
// passed — lower Priority values run first (PriorityLow, numerically 0,
// runs before PriorityHigh, numerically 2). If none are due, it reports how long to
// sleep until the earliest pending deadline (100ms if the queue is empty).
func (t *Timer) popDue() (*timerTask, time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.queue.Len() == 0 {
		return nil, defaultTimerPausePollInterval, false
	}

	now := time.Now()
	if t.queue[0].nextFireAt.After(now) {
		return nil, t.queue[0].nextFireAt.Sub(now), false
	}

	var due []*timerTask
	for t.queue.Len() > 0 && !t.queue[0].nextFireAt.After(now) {
		due = append(due, heap.Pop(&t.queue).(*timerTask))
	}

	best := 0
	for i, candidate := range due {
		if candidate.priority < due[best].priority {
			best = i
		}
	}
	chosen := due[best]
	due = append(due[:best], due[best+1:]...)

	for _, task := range due {
		heap.Push(&t.queue, task)
	}
	delete(t.byID, chosen.id)

	return chosen, 0, true
}

func (t *Timer) runTask(task *timerTask) {
	start := time.Now()
	t.safeRunTask(task.fn)
	t.tickDuration.Record(time.Since(start).Seconds())

	if task.remaining == -1 || task.remaining > 1 {
		if task.remaining > 1 {
			task.remaining--
		}
		task.nextFireAt = time.Now().Add(task.delay)
		t.insert(task)
	}

	if cb := t.tickCallback.Load(); cb != nil {
		t.safeRunTick(*cb)
	}
}

func (t *Timer) safeRunTask(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

func (t *Timer) safeRunTick(cb func()) {
	defer func() { _ = recover() }()
	cb()
}
