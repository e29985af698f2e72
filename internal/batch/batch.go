// Package batch provides a bounded-concurrency combinator for fan-out work.
// Each item's failure is isolated to its own outcome; one slow or broken item
// never cancels the rest of the batch.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Outcome is the per-item result of a batch operation.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Map applies fn to every item with at most limit concurrent invocations and
// waits for the whole batch to settle. Outcomes are positionally aligned with
// items. A limit <= 0 means unbounded.
func Map[S, T any](ctx context.Context, items []S, limit int, fn func(context.Context, S) (T, error)) []Outcome[T] {
	outcomes := make([]Outcome[T], len(items))
	if len(items) == 0 {
		return outcomes
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			value, err := fn(ctx, item)
			outcomes[i] = Outcome[T]{Value: value, Err: err}
			// Errors live in the outcome; returning nil keeps the rest
			// of the batch running
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}
