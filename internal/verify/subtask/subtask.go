// Package subtask runs a small set of independent provider calls
// concurrently and reports every outcome. One slow or failing call
// never aborts its siblings; panics and errors are captured into
// Failure entries so the fan-in itself cannot fail.
package subtask

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Task is one independently-callable operation.
type Task[T any] func(ctx context.Context) (T, error)

// Result is the outcome of one task: either a value or a reason.
type Result[T any] struct {
	Value T
	Err   error
}

// Failed reports whether the task produced an error instead of a value.
func (r Result[T]) Failed() bool { return r.Err != nil }

// Run launches all tasks concurrently, bounded by limit in-flight at a
// time (limit <= 0 means unbounded), waits for every task to finish,
// and returns results in input order. Run itself never returns an
// error for task failures; each failure is isolated in its slot.
func Run[T any](ctx context.Context, tasks []Task[T], limit int) []Result[T] {
	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}

	var sem *semaphore.Weighted
	if limit > 0 {
		sem = semaphore.NewWeighted(int64(limit))
	}

	done := make(chan int, len(tasks))
	for i, task := range tasks {
		go func(i int, task Task[T]) {
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = Result[T]{Err: fmt.Errorf("subtask panic: %v", rec)}
				}
				done <- i
			}()

			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					results[i] = Result[T]{Err: err}
					return
				}
				defer sem.Release(1)
			}

			value, err := task(ctx)
			results[i] = Result[T]{Value: value, Err: err}
		}(i, task)
	}

	for range tasks {
		<-done
	}
	return results
}
