package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const defaultLimit = 8

// Task is one unit of fan-out work. Tasks report through their own result slot and never fail
// the batch. A panicking task leaves its slot empty.
type Task func(ctx context.Context)

func (t Task) run(ctx context.Context, i int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %d panicked: %v", i, p)
		}
	}()
	t(ctx)
	return nil
}

// Runner executes tasks and returns once every task has finished.
type Runner interface {
	Run(ctx context.Context, tasks []Task) error
}

// ParallelRunner runs at most Limit tasks at a time.
type ParallelRunner struct {
	Limit int
}

func NewParallelRunner(limit int) ParallelRunner {
	if limit <= 0 {
		limit = defaultLimit
	}
	return ParallelRunner{Limit: limit}
}

// Run waits for every task. It returns the first panic recovered from a task, if any.
func (r ParallelRunner) Run(ctx context.Context, tasks []Task) error {
	limit := r.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			return task.run(ctx, i)
		})
	}
	return g.Wait()
}

// SequentialRunner is the degraded in-process mode.
type SequentialRunner struct{}

func (SequentialRunner) Run(ctx context.Context, tasks []Task) error {
	var first error
	for i, task := range tasks {
		if err := task.run(ctx, i); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewRunner picks the runner for a configured concurrency. 1 means sequential.
func NewRunner(concurrency int) Runner {
	if concurrency == 1 {
		return SequentialRunner{}
	}
	return NewParallelRunner(concurrency)
}
