package asyncprim

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// PackagedTask wraps a one-shot callable together with its embedded Promise.
// Args is the argument bundle passed to Invoke; callers that need several
// values should pass a struct. The signature is carried as the single type
// parameter Args, so no dispatch-by-shape switch is needed.
type PackagedTask[Args, R any] struct {
	id        uuid.UUID
	fn        func(Args) (R, error)
	promise   *Promise[R]
	cancelled atomic.Bool
	invoked   atomic.Bool
}

// NewPackagedTask constructs a PackagedTask. Fails with ErrInvalidTask if fn
// is nil.
func NewPackagedTask[Args, R any](fn func(Args) (R, error)) (*PackagedTask[Args, R], error) {
	if fn == nil {
		return nil, ErrInvalidTask
	}
	return &PackagedTask[Args, R]{id: uuid.New(), fn: fn, promise: NewPromise[R]()}, nil
}

// ID returns the task's correlation id, used in tagged errors.
func (t *PackagedTask[Args, R]) ID() uuid.UUID { return t.id }

// Future returns the Future observing this task's result. Futures are
// freely shareable, so this may be called any number of times.
func (t *PackagedTask[Args, R]) Future() (Future[R], error) {
	if t == nil || t.fn == nil {
		return Future[R]{}, ErrInvalidTask
	}
	return t.promise.Future(), nil
}

// Valid reports whether the task still has a usable callable.
func (t *PackagedTask[Args, R]) Valid() bool { return t != nil && t.fn != nil }

// IsCancelled reports whether Cancel has been called.
func (t *PackagedTask[Args, R]) IsCancelled() bool { return t.cancelled.Load() }

// Cancel marks the task cancelled. Returns true iff this call performed the
// transition. A cancel issued after Invoke has no effect on the
// already-settled result.
func (t *PackagedTask[Args, R]) Cancel() bool {
	return t.cancelled.CompareAndSwap(false, true)
}

// Invoke runs the wrapped callable at most once across all callers. If the
// task was cancelled first, the embedded promise is completed with
// Error(Cancelled) instead of running fn.
func (t *PackagedTask[Args, R]) Invoke(args Args) {
	if !t.invoked.CompareAndSwap(false, true) {
		return
	}
	if t.cancelled.Load() {
		_ = t.promise.Reject(taskError(ErrCancelled, t.id))
		return
	}

	result, err := t.safeCall(args)
	if err != nil {
		_ = t.promise.Reject(taskError(err, t.id))
		return
	}
	_ = t.promise.Resolve(result)
}

func (t *PackagedTask[Args, R]) safeCall(args Args) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wrapPanic(r)
		}
	}()
	return t.fn(args)
}

// OnComplete registers a FIFO callback delivered with the resolved Value
// only (dropped silently on error/cancel); fanout never aborts on a
// panicking callback. Delegates to the embedded Promise's slot, which
// already implements exactly this contract.
func (t *PackagedTask[Args, R]) OnComplete(cb func(R)) {
	t.promise.OnComplete(cb)
}

// Validate returns false if the task has not completed with a Value yet;
// otherwise it calls pred(result) once, swallowing a panic as false.
func (t *PackagedTask[Args, R]) Validate(pred func(R) bool) bool {
	v, ok := t.promise.slot.tryPeekValue()
	if !ok {
		return false
	}
	return safeBool(pred, v)
}

func safeBool[R any](pred func(R) bool, v R) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return pred(v)
}
