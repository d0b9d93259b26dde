package asyncprim

import "runtime"

// Promise is the unique writer handle to a shared result slot. It is
// conceptually non-copyable: copy a *Promise[T] pointer, never the struct.
// Go has no destructors, so the "drop without completion -> BrokenPromise"
// contract is approximated with a best-effort GC finalizer: it fires
// eventually, not deterministically, which is the closest a
// garbage-collected runtime gets to an RAII guarantee.
type Promise[T any] struct {
	slot *sharedSlot[T]
}

// NewPromise constructs an unsettled Promise.
func NewPromise[T any]() *Promise[T] {
	p := &Promise[T]{slot: newSharedSlot[T]()}
	runtime.SetFinalizer(p, func(p *Promise[T]) {
		p.slot.breakIfPending()
	})
	return p
}

// Resolve transitions Empty -> Value. Returns ErrAlreadySettled if already
// completed, ErrCancelled if the slot was already cancelled.
func (p *Promise[T]) Resolve(v T) error {
	err := p.slot.resolve(v)
	if err == nil {
		runtime.SetFinalizer(p, nil)
	}
	return err
}

// Reject transitions Empty -> Error.
func (p *Promise[T]) Reject(err error) error {
	e := p.slot.reject(err)
	if e == nil {
		runtime.SetFinalizer(p, nil)
	}
	return e
}

// Cancel transitions the slot to Cancelled. Returns true iff this call
// performed the transition.
func (p *Promise[T]) Cancel() bool {
	ok := p.slot.cancel()
	if ok {
		runtime.SetFinalizer(p, nil)
	}
	return ok
}

// Future returns a Future observing the same slot. May be called any number
// of times; Futures are freely shareable.
func (p *Promise[T]) Future() Future[T] { return futureFromSlot(p.slot) }

// OnComplete is shorthand for p.Future().OnComplete(cb).
func (p *Promise[T]) OnComplete(cb func(T)) { p.Future().OnComplete(cb) }
