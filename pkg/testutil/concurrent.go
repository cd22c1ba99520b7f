package testutil

import (
	"context"
	"errors"
	"sync"
)

// ConcurrentResult collects outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes int
	Failures  []error
}

// Count returns how many failures match target via errors.Is.
func (r *ConcurrentResult) Count(target error) int {
	n := 0
	for _, err := range r.Failures {
		if errors.Is(err, target) {
			n++
		}
	}
	return n
}

// Total returns the number of operations executed.
func (r *ConcurrentResult) Total() int {
	return r.Successes + len(r.Failures)
}

// RunConcurrent starts all goroutines behind a shared barrier so they race
// for real, then waits for them to finish.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		start = make(chan struct{})
		res   = &ConcurrentResult{}
	)

	for i := range goroutines {
		wg.Go(func() {
			<-start
			err := fn(i)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failures = append(res.Failures, err)
				return
			}
			res.Successes++
		})
	}
	close(start)
	wg.Wait()
	return res
}

// RunConcurrentCtx is RunConcurrent with a shared context.
func RunConcurrentCtx(ctx context.Context, goroutines int, fn func(ctx context.Context, idx int) error) *ConcurrentResult {
	return RunConcurrent(goroutines, func(idx int) error {
		return fn(ctx, idx)
	})
}
