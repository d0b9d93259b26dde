package asyncprim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ParallelProcess applies fn to each item concurrently, at most chunkSize at
// a time (chunkSize <= 0 means unbounded), and returns results in input
// order. The first error encountered cancels ctx for the remaining items via
// errgroup.WithContext.
func ParallelProcess[T, R any](
	ctx context.Context, items []T, fn func(context.Context, T) (R, error), chunkSize int,
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if chunkSize > 0 {
		g.SetLimit(chunkSize)
	}

	results := make([]R, len(items))
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
