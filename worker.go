package asyncprim

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// WorkerState is the lifecycle state of an AsyncWorker.
type WorkerState int32

const (
	WorkerInitial WorkerState = iota
	WorkerRunning
	WorkerCompleted
	WorkerFailed
	WorkerCancelled
)

func (s WorkerState) String() string {
	switch s {
	case WorkerInitial:
		return "Initial"
	case WorkerRunning:
		return "Running"
	case WorkerCompleted:
		return "Completed"
	case WorkerFailed:
		return "Failed"
	case WorkerCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// AsyncWorkerFunc is the user callable launched by StartAsync. Callers close
// over any additional arguments needed beyond the context.
type AsyncWorkerFunc[R any] func(context.Context) (R, error)

// AsyncWorker launches a user function on a dedicated goroutine and tracks
// its lifecycle: a one-shot tracker, not a pooled/recycled executor.
type AsyncWorker[R any] struct {
	id            uuid.UUID
	state         atomic.Int32
	promise       *Promise[R]
	callback      atomic.Pointer[func(R)]
	callbackFired atomic.Bool
	timeout       atomic.Int64 // nanoseconds; 0 = none
	hint          atomic.Pointer[SchedulerHint]
	done          chan struct{}
}

// NewAsyncWorker constructs an AsyncWorker in the Initial state.
func NewAsyncWorker[R any]() *AsyncWorker[R] {
	return &AsyncWorker[R]{id: uuid.New(), promise: NewPromise[R](), done: make(chan struct{})}
}

// ID returns the worker's correlation id.
func (w *AsyncWorker[R]) ID() uuid.UUID { return w.id }

// State returns the current lifecycle state.
func (w *AsyncWorker[R]) State() WorkerState { return WorkerState(w.state.Load()) }

// StartAsync transitions Initial -> Running and launches fn on a new
// goroutine. Fails with ErrAlreadyStarted if the worker is not Initial.
func (w *AsyncWorker[R]) StartAsync(ctx context.Context, fn AsyncWorkerFunc[R]) error {
	if !w.state.CompareAndSwap(int32(WorkerInitial), int32(WorkerRunning)) {
		return ErrAlreadyStarted
	}

	go func() {
		defer close(w.done)

		applySchedulerHint(w.hint.Load())

		result, err := w.safeInvoke(ctx, fn)
		if err != nil {
			w.state.Store(int32(WorkerFailed))
			_ = w.promise.Reject(taskError(err, w.id))
			return
		}
		w.state.Store(int32(WorkerCompleted))
		_ = w.promise.Resolve(result)
	}()
	return nil
}

func (w *AsyncWorker[R]) safeInvoke(ctx context.Context, fn AsyncWorkerFunc[R]) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapPanic(r)
		}
	}()
	return fn(ctx)
}

// Future returns the Future observing this worker's result.
func (w *AsyncWorker[R]) Future() Future[R] { return w.promise.Future() }

// GetResult blocks until the worker reaches a terminal state. If timeout > 0
// and the worker is not ready within it, returns ErrTimeout without
// cancelling the worker — distinct from Future.WaitFor's auto-cancel.
func (w *AsyncWorker[R]) GetResult(timeout time.Duration) (R, error) {
	if timeout <= 0 {
		return w.promise.Future().Wait()
	}
	select {
	case <-w.done:
		return w.promise.Future().Wait()
	case <-time.After(timeout):
		var zero R
		return zero, ErrTimeout
	}
}

// Cancel waits for the running function to return if the worker is active
// (best-effort: no cooperative cancellation token is injected into fn), or
// immediately transitions an Initial worker straight to Cancelled. A worker
// that was Running when Cancel was called ends in the Cancelled state.
func (w *AsyncWorker[R]) Cancel() {
	if w.state.CompareAndSwap(int32(WorkerInitial), int32(WorkerCancelled)) {
		w.promise.Cancel()
		close(w.done)
		return
	}
	running := w.State() == WorkerRunning
	<-w.done
	if running {
		w.state.Store(int32(WorkerCancelled))
	}
}

// IsDone reports whether the worker reached any terminal state.
func (w *AsyncWorker[R]) IsDone() bool {
	switch w.State() {
	case WorkerCompleted, WorkerFailed, WorkerCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the worker is currently running.
func (w *AsyncWorker[R]) IsActive() bool { return w.State() == WorkerRunning }

// Validate returns false unless the worker completed with a Value; then it
// calls pred(result) once, swallowing a panic as false.
func (w *AsyncWorker[R]) Validate(pred func(R) bool) bool {
	if w.State() != WorkerCompleted {
		return false
	}
	v, ok := w.promise.slot.tryPeekValue()
	if !ok {
		return false
	}
	return safeBool(pred, v)
}

// SetCallback registers a callback delivered exactly once with the result,
// upon successful completion observed via WaitForCompletion. Fails with
// ErrInvalidArgument if cb is nil.
func (w *AsyncWorker[R]) SetCallback(cb func(R)) error {
	if cb == nil {
		return ErrInvalidArgument
	}
	w.callback.Store(&cb)
	return nil
}

// SetTimeout configures the deadline WaitForCompletion enforces. Fails with
// ErrInvalidArgument if d is negative.
func (w *AsyncWorker[R]) SetTimeout(d time.Duration) error {
	if d < 0 {
		return ErrInvalidArgument
	}
	w.timeout.Store(int64(d))
	return nil
}

// SetPriority updates the worker's opaque scheduler hint.
func (w *AsyncWorker[R]) SetPriority(p Priority) {
	h := w.currentHint()
	h.Priority = p
	w.hint.Store(h)
}

// SetPreferredCPU updates the worker's opaque scheduler hint.
func (w *AsyncWorker[R]) SetPreferredCPU(n int) {
	h := w.currentHint()
	h.PreferredCPU = n
	h.HasPreferred = true
	w.hint.Store(h)
}

func (w *AsyncWorker[R]) currentHint() *SchedulerHint {
	if h := w.hint.Load(); h != nil {
		cp := *h
		return &cp
	}
	return &SchedulerHint{}
}

// WaitForCompletion polls IsDone roughly every 10ms until the worker reaches
// a terminal state or its configured timeout elapses, then invokes the
// callback (if any and the worker Completed). On timeout it cancels the
// worker and returns ErrTimeout. Safe to call more than once (concurrently
// or sequentially, e.g. once by a manager's admission-release goroutine and
// once by the caller): the callback still fires exactly once.
func (w *AsyncWorker[R]) WaitForCompletion() error {
	var timeoutCh <-chan time.Time
	if d := time.Duration(w.timeout.Load()); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	ticker := time.NewTicker(defaultWorkerPollInterval)
	defer ticker.Stop()

	timedOut := false
loop:
	for {
		select {
		case <-w.done:
			break loop
		case <-timeoutCh:
			timedOut = true
			break loop
		case <-ticker.C:
			if w.IsDone() {
				break loop
			}
		}
	}

	if timedOut {
		w.Cancel()
		return ErrTimeout
	}

	if w.State() == WorkerCompleted && w.callbackFired.CompareAndSwap(false, true) {
		if cb := w.callback.Load(); cb != nil {
			if v, ok := w.promise.slot.tryPeekValue(); ok {
				safeRunWith(*cb, v)
			}
		}
	}
	return nil
}

func safeRunWith[R any](fn func(R), v R) {
	defer func() { _ = recover() }()
	fn(v)
}
