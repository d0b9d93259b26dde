package asyncprim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arcveil/asyncprim/metrics"
	"github.com/arcveil/asyncprim/pool"
)

// workerContainer stores a Manager's workers. Two implementations are
// offered as a build option: the default lockFreeContainer (sync.Map,
// CAS-based LoadOrStore) and mutexContainer (an explicit sync.RWMutex,
// selected with WithMutexContainer). Both honor the same bounded-retry
// insertion contract.
type workerContainer[R any] interface {
	tryInsert(id uuid.UUID, w *AsyncWorker[R]) bool
	delete(id uuid.UUID)
	snapshot() []*AsyncWorker[R]
	size() int
}

type lockFreeContainer[R any] struct {
	m sync.Map // uuid.UUID -> *AsyncWorker[R]
	n atomic.Int64
}

func newLockFreeContainer[R any]() *lockFreeContainer[R] { return &lockFreeContainer[R]{} }

func (c *lockFreeContainer[R]) tryInsert(id uuid.UUID, w *AsyncWorker[R]) bool {
	if _, loaded := c.m.LoadOrStore(id, w); loaded {
		// uuid collision: astronomically unlikely, but the manager must
		// still report insertion failure rather than silently clobber an
		// existing tracked worker.
		return false
	}
	c.n.Add(1)
	return true
}

func (c *lockFreeContainer[R]) delete(id uuid.UUID) {
	if _, ok := c.m.LoadAndDelete(id); ok {
		c.n.Add(-1)
	}
}

func (c *lockFreeContainer[R]) snapshot() []*AsyncWorker[R] {
	out := make([]*AsyncWorker[R], 0, c.n.Load())
	c.m.Range(func(_, v any) bool {
		out = append(out, v.(*AsyncWorker[R]))
		return true
	})
	return out
}

func (c *lockFreeContainer[R]) size() int { return int(c.n.Load()) }

type mutexContainer[R any] struct {
	mu sync.RWMutex
	m  map[uuid.UUID]*AsyncWorker[R]
}

func newMutexContainer[R any]() *mutexContainer[R] {
	return &mutexContainer[R]{m: make(map[uuid.UUID]*AsyncWorker[R])}
}

// tryInsert uses TryLock so bounded-retry backoff in insertWithRetry has
// something genuine to retry against under writer contention.
func (c *mutexContainer[R]) tryInsert(id uuid.UUID, w *AsyncWorker[R]) bool {
	if !c.mu.TryLock() {
		return false
	}
	defer c.mu.Unlock()
	if _, exists := c.m[id]; exists {
		return false
	}
	c.m[id] = w
	return true
}

func (c *mutexContainer[R]) delete(id uuid.UUID) {
	c.mu.Lock()
	delete(c.m, id)
	c.mu.Unlock()
}

func (c *mutexContainer[R]) snapshot() []*AsyncWorker[R] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*AsyncWorker[R], 0, len(c.m))
	for _, w := range c.m {
		out = append(out, w)
	}
	return out
}

func (c *mutexContainer[R]) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// AsyncWorkerManager owns a container of AsyncWorkers sharing a result type
// R, optionally admission-gated by a pool.Pool for bounded concurrency.
type AsyncWorkerManager[R any] struct {
	workers    workerContainer[R]
	admission  pool.Pool // pool.NewDynamic when unbounded; never nil
	metrics    metrics.Provider
	active     metrics.UpDownCounter
	created    metrics.Counter
	insertFail metrics.Counter
}

// ManagerOption configures NewAsyncWorkerManager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	maxConcurrency int
	mutexContainer bool
	metrics        metrics.Provider
}

func defaultManagerConfig() managerConfig {
	return managerConfig{metrics: metrics.NewNoopProvider()}
}

// WithMaxConcurrency bounds how many workers may run at once; CreateWorker
// blocks until a slot is free once the bound is reached. n <= 0 means
// unbounded (the default).
func WithMaxConcurrency(n int) ManagerOption {
	return func(c *managerConfig) { c.maxConcurrency = n }
}

// WithMutexContainer selects the mutex-guarded worker container instead of
// the default lock-free one.
func WithMutexContainer() ManagerOption {
	return func(c *managerConfig) { c.mutexContainer = true }
}

// WithManagerMetrics attaches a metrics.Provider recording the number of
// tracked workers (created and not yet pruned, under
// asyncprim_manager_active_workers) and creation/insert-failure counts.
func WithManagerMetrics(p metrics.Provider) ManagerOption {
	return func(c *managerConfig) {
		if p != nil {
			c.metrics = p
		}
	}
}

// NewAsyncWorkerManager constructs an empty Manager.
func NewAsyncWorkerManager[R any](opts ...ManagerOption) *AsyncWorkerManager[R] {
	cfg := defaultManagerConfig()
	for _, o := range opts {
		o(&cfg)
	}

	var container workerContainer[R]
	if cfg.mutexContainer {
		container = newMutexContainer[R]()
	} else {
		container = newLockFreeContainer[R]()
	}

	var admission pool.Pool
	if cfg.maxConcurrency > 0 {
		admission = pool.NewFixed(uint(cfg.maxConcurrency), func() interface{} { return struct{}{} })
	} else {
		admission = pool.NewDynamic(func() interface{} { return struct{}{} })
	}

	return &AsyncWorkerManager[R]{
		workers:    container,
		admission:  admission,
		metrics:    cfg.metrics,
		active:     cfg.metrics.UpDownCounter("asyncprim_manager_active_workers", metrics.WithUnit("1")),
		created:    cfg.metrics.Counter("asyncprim_manager_workers_created_total"),
		insertFail: cfg.metrics.Counter("asyncprim_manager_insert_failures_total"),
	}
}

// CreateWorker constructs and starts a worker running fn, then inserts it
// into the container with bounded-retry insertion (up to 5 attempts with
// microsecond exponential backoff) before failing with ErrWorkerInsert.
// Blocks until an admission slot is available when WithMaxConcurrency was
// set; unbounded managers never block here.
func (m *AsyncWorkerManager[R]) CreateWorker(ctx context.Context, fn AsyncWorkerFunc[R]) (*AsyncWorker[R], error) {
	m.admission.Get()

	w := NewAsyncWorker[R]()
	if err := w.StartAsync(ctx, fn); err != nil {
		m.admission.Put(struct{}{})
		return nil, err
	}
	m.active.Add(1)
	m.created.Add(1)

	if !m.insertWithRetry(w) {
		m.insertFail.Add(1)
		w.Cancel()
		m.active.Add(-1)
		m.admission.Put(struct{}{})
		return nil, ErrWorkerInsert
	}

	go func() {
		w.WaitForCompletion()
		m.admission.Put(struct{}{})
	}()

	return w, nil
}

func (m *AsyncWorkerManager[R]) insertWithRetry(w *AsyncWorker[R]) bool {
	const maxAttempts = 5
	backoff := time.Microsecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if m.workers.tryInsert(w.ID(), w) {
			return true
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return false
}

// CancelAll cancels every tracked worker.
func (m *AsyncWorkerManager[R]) CancelAll() {
	for _, w := range m.workers.snapshot() {
		w.Cancel()
	}
}

// AllDone reports whether every tracked worker has reached a terminal state.
// Snapshots the container first so it never holds a lock across blocking
// calls.
func (m *AsyncWorkerManager[R]) AllDone() bool {
	for _, w := range m.workers.snapshot() {
		if !w.IsDone() {
			return false
		}
	}
	return true
}

// WaitForAll blocks until every tracked worker reaches a terminal state, or
// perTimeout elapses for an individual worker's GetResult (perTimeout <= 0
// blocks indefinitely per worker). Returns the first error observed, after
// having waited on all workers.
func (m *AsyncWorkerManager[R]) WaitForAll(perTimeout time.Duration) error {
	var firstErr error
	for _, w := range m.workers.snapshot() {
		_, err := w.GetResult(perTimeout)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// IsDone reports whether w has reached a terminal state.
func (m *AsyncWorkerManager[R]) IsDone(w *AsyncWorker[R]) bool { return w.IsDone() }

// Cancel cancels w.
func (m *AsyncWorkerManager[R]) Cancel(w *AsyncWorker[R]) { w.Cancel() }

// Size returns the number of tracked workers, including completed ones not
// yet pruned.
func (m *AsyncWorkerManager[R]) Size() int { return m.workers.size() }

// PruneCompletedWorkers removes Done/Failed/Cancelled entries and returns
// how many were removed.
func (m *AsyncWorkerManager[R]) PruneCompletedWorkers() int {
	pruned := 0
	for _, w := range m.workers.snapshot() {
		if w.IsDone() {
			m.workers.delete(w.ID())
			m.active.Add(-1)
			pruned++
		}
	}
	return pruned
}
