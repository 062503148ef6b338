package pool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
)

// Task is a unit of work run by the pool.
type Task[T any] func(ctx context.Context) (T, error)

// Result is the outcome of the task with the same index.
type Result[T any] struct {
	Value T
	Err   error
}

// PanicError is the error recorded for a task that panicked.
type PanicError struct {
	Index int
	Value any
	Stack []byte
}

func (e PanicError) Error() string {
	return fmt.Sprintf("task %d panicked: %v", e.Index, e.Value)
}

// Run executes the tasks on min(limit, len(tasks)) workers and returns once every
// task has finished. Results keep the order of tasks, a failing or panicking task
// only affects its own slot.
func Run[T any](ctx context.Context, limit int, tasks []Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if limit <= 0 {
		limit = 1
	}
	workers := min(limit, len(tasks))

	pending := make(chan int, len(tasks))
	for i := range tasks {
		pending <- i
	}
	close(pending)

	wg := sync.WaitGroup{}
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range pending {
				results[idx] = runOne(ctx, idx, tasks[idx])
			}
		}()
	}
	wg.Wait()

	return results
}

func runOne[T any](ctx context.Context, idx int, task Task[T]) (result Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			result = Result[T]{Err: PanicError{Index: idx, Value: r, Stack: debug.Stack()}}
		}
	}()

	value, err := task(ctx)
	return Result[T]{Value: value, Err: err}
}

// Limiter bounds how many callers hold a slot at the same time, it backs adapters that
// own one expensive resource (a browser) shared by independent requests.
type Limiter struct {
	slots chan struct{}
}

func NewLimiter(size int) Limiter {
	if size <= 0 {
		size = 1
	}
	return Limiter{slots: make(chan struct{}, size)}
}

// Acquire blocks until a slot is free or the context is done.
func (l Limiter) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case l.slots <- struct{}{}:
		return func() { <-l.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
