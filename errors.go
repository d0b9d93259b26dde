package asyncprim

import (
	"errors"
	"fmt"
)

// Namespace prefixes every sentinel error's message.
const Namespace = "asyncprim"

// Sentinel errors. Match against these with errors.Is; use ExtractKey/
// ExtractTaskID to recover correlation metadata from a returned error.
var (
	ErrInvalidArgument   = errors.New(Namespace + ": invalid argument")
	ErrInvalidFuture     = errors.New(Namespace + ": future has no backing slot")
	ErrInvalidTask       = errors.New(Namespace + ": packaged task is invalid or already consumed")
	ErrAlreadySettled    = errors.New(Namespace + ": promise already settled")
	ErrAlreadyStarted    = errors.New(Namespace + ": worker already started")
	ErrCancelled         = errors.New(Namespace + ": operation cancelled")
	ErrBrokenPromise     = errors.New(Namespace + ": promise dropped before completion")
	ErrTimeout           = errors.New(Namespace + ": deadline exceeded")
	ErrRateLimitExceeded = errors.New(Namespace + ": rate limit exceeded")
	ErrUserPanic         = errors.New(Namespace + ": user callable panicked")
	ErrWorkerInsert      = errors.New(Namespace + ": manager could not insert worker under contention")
)

// taggedError wraps a sentinel error kind with optional correlation
// metadata (a rate-limiter key or a task/worker id).
type taggedError struct {
	kind   error
	key    string
	hasKey bool
	taskID any
}

func (e *taggedError) Error() string {
	switch {
	case e.hasKey:
		return fmt.Sprintf("%s (key=%q)", e.kind.Error(), e.key)
	case e.taskID != nil:
		return fmt.Sprintf("%s (task=%v)", e.kind.Error(), e.taskID)
	default:
		return e.kind.Error()
	}
}

func (e *taggedError) Unwrap() error { return e.kind }

// Key returns the rate-limiter key carried by the error, if any.
func (e *taggedError) Key() (string, bool) { return e.key, e.hasKey }

// TaskID returns the task/worker id carried by the error, if any.
func (e *taggedError) TaskID() (any, bool) {
	if e.taskID == nil {
		return nil, false
	}
	return e.taskID, true
}

// RateLimitExceededError builds the error a rejected RateLimiter caller observes.
func RateLimitExceededError(key string) error {
	return &taggedError{kind: ErrRateLimitExceeded, key: key, hasKey: true}
}

// taskError tags err with a task/worker correlation id. Returns nil if err is nil.
func taskError(err error, id any) error {
	if err == nil {
		return nil
	}
	return &taggedError{kind: err, taskID: id}
}

// ExtractKey returns the rate-limiter key from err, if present.
func ExtractKey(err error) (string, bool) {
	var te *taggedError
	if errors.As(err, &te) {
		return te.Key()
	}
	return "", false
}

// ExtractTaskID returns the task/worker id from err, if present.
func ExtractTaskID(err error) (any, bool) {
	var te *taggedError
	if errors.As(err, &te) {
		return te.TaskID()
	}
	return nil, false
}

func wrapPanic(r any) error {
	return fmt.Errorf("%w: %v", ErrUserPanic, r)
}
