package pool

import "sync"

// NewDynamic is an unbounded pool backing AsyncWorkerManager when no
// max-concurrency limit is configured: a thin wrapper around sync.Pool, so
// admission never blocks and GC may reclaim idle entries under pressure.
func NewDynamic(newFn func() interface{}) Pool {
	return &sync.Pool{New: newFn}
}
