// Package worker provides a parallel row-filling worker pool.
package worker

import (
	"context"
	"sync"
	"time"
)

// Filler fills one output row. Rows are independent, so implementations
// must not depend on the order in which rows are filled.
type Filler interface {
	FillRow(ctx context.Context, row int) error
}

// FillerFunc adapts a function to Filler.
type FillerFunc func(ctx context.Context, row int) error

// FillRow implements Filler.
func (f FillerFunc) FillRow(ctx context.Context, row int) error { return f(ctx, row) }

// Task represents a single row to fill.
type Task struct {
	Row int
}

// Result represents the outcome of a task.
type Result struct {
	Task    Task
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes.
type ProgressFunc func(completed, total, failed int)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Filler     Filler
	OnProgress ProgressFunc
}

// Pool manages parallel row filling.
type Pool struct {
	workers    int
	filler     Filler
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		filler:     cfg.Filler,
		onProgress: cfg.OnProgress,
	}
}

// Rows builds one task per row in [0, n).
func Rows(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i].Row = i
	}
	return tasks
}

// Run executes all tasks and returns results in completion order.
// It blocks until every task has a result; tasks picked up after the
// context is cancelled report ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskCh := make(chan Task, len(tasks))
	resultCh := make(chan Result, len(tasks))

	var (
		completed int
		failed    int
		mu        sync.Mutex
	)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, taskCh, resultCh)
		}()
	}

	// The channel is buffered for every task, so feeding never blocks.
	for _, task := range tasks {
		taskCh <- task
	}
	close(taskCh)

	results := make([]Result, 0, len(tasks))
	done := make(chan struct{})

	go func() {
		for result := range resultCh {
			results = append(results, result)

			mu.Lock()
			completed++
			if result.Err != nil {
				failed++
			}
			c, f := completed, failed
			mu.Unlock()

			if p.onProgress != nil {
				p.onProgress(c, len(tasks), f)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

// FirstError returns the first non-nil error in results.
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

func (p *Pool) worker(ctx context.Context, tasks <-chan Task, results chan<- Result) {
	for task := range tasks {
		select {
		case <-ctx.Done():
			results <- Result{
				Task: task,
				Err:  ctx.Err(),
			}
			continue
		default:
		}

		start := time.Now()
		err := p.filler.FillRow(ctx, task.Row)

		results <- Result{
			Task:    task,
			Err:     err,
			Elapsed: time.Since(start),
		}
	}
}
