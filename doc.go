// Package asyncprim provides async primitives for launching, composing, and
// coordinating concurrent work: a Future/Promise pair, one-shot PackagedTask
// and AsyncWorker lifecycle trackers (plus AsyncWorkerManager for running
// many of them), a priority Timer, a per-key RateLimiter, Debouncer/
// Throttler call shapers, and an AsyncRetry driver.
//
// Constructors
// Every component with more than a couple of knobs follows the functional-
// options pattern (NewX(opts ...XOption)) with centralized defaults; simpler
// components take no options: NewPromise and NewAsyncWorker take no
// arguments, and NewPackagedTask takes only its callable.
//
// Errors
// Failures are represented as one of the sentinel errors declared in
// errors.go (ErrInvalidArgument, ErrTimeout, ErrCancelled, and so on),
// optionally wrapped with a correlation key or task id recoverable via
// ExtractKey/ExtractTaskID. Match with errors.Is/errors.As, not by type
// switch.
//
// Concurrency
// Shared state is mutex- or CAS-guarded internally; callbacks always run
// after the relevant internal lock has been released, so a callback may
// safely call back into the component that invoked it. No component in this
// package logs — diagnostic events (a panicking user callback, a timer tick
// callback that panics) are converted to errors or silently swallowed per
// each component's documented contract, never printed.
package asyncprim
