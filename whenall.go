package asyncprim

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// WhenAll completes when every input future completes. The result slice
// preserves input order. If any input errors, the output errors with the
// first observed error, ties broken by input index. If any input is
// cancelled, the output is cancelled too: cancellation takes precedence over
// a same-round error, being the stronger of the two signals.
//
// Each input future is awaited on its own golang.org/x/sync/errgroup
// goroutine; the group has no concurrency limit.
func WhenAll[T any](futures []Future[T]) Future[[]T] {
	p := NewPromise[[]T]()
	if len(futures) == 0 {
		_ = p.Resolve(nil)
		return p.Future()
	}

	results := make([]T, len(futures))

	var (
		mu           sync.Mutex
		firstErrIdx  = -1
		firstErr     error
		anyCancelled bool
	)

	var g errgroup.Group
	for i, f := range futures {
		i, f := i, f
		g.Go(func() error {
			v, err := f.Wait()
			mu.Lock()
			defer mu.Unlock()
			switch {
			case f.IsCancelled():
				anyCancelled = true
			case err != nil:
				if firstErrIdx == -1 || i < firstErrIdx {
					firstErrIdx = i
					firstErr = err
				}
			default:
				results[i] = v
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		switch {
		case anyCancelled:
			p.Cancel()
		case firstErr != nil:
			_ = p.Reject(firstErr)
		default:
			_ = p.Resolve(results)
		}
	}()

	return p.Future()
}
