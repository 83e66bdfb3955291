package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockFiller simulates row filling for testing
type mockFiller struct {
	delay     time.Duration
	failRows  map[int]bool
	callCount atomic.Int32

	mu     sync.Mutex
	filled map[int]bool
}

func (m *mockFiller) FillRow(ctx context.Context, row int) error {
	m.callCount.Add(1)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.delay):
	}

	if m.failRows != nil && m.failRows[row] {
		return errors.New("simulated failure")
	}

	m.mu.Lock()
	if m.filled == nil {
		m.filled = make(map[int]bool)
	}
	m.filled[row] = true
	m.mu.Unlock()
	return nil
}

func TestPool_BasicExecution(t *testing.T) {
	filler := &mockFiller{delay: 5 * time.Millisecond}

	pool := New(Config{
		Workers: 2,
		Filler:  filler,
	})

	tasks := Rows(5)
	results := pool.Run(context.Background(), tasks)

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	for _, r := range results {
		if r.Err != nil {
			t.Errorf("Unexpected error for row %d: %v", r.Task.Row, r.Err)
		}
	}

	if filler.callCount.Load() != int32(len(tasks)) {
		t.Errorf("Expected %d fill calls, got %d", len(tasks), filler.callCount.Load())
	}
	for i := 0; i < 5; i++ {
		if !filler.filled[i] {
			t.Errorf("row %d was not filled", i)
		}
	}
}

func TestPool_Parallelism(t *testing.T) {
	filler := &mockFiller{delay: 50 * time.Millisecond}

	pool := New(Config{
		Workers: 4,
		Filler:  filler,
	})

	tasks := Rows(8)

	start := time.Now()
	results := pool.Run(context.Background(), tasks)
	elapsed := time.Since(start)

	// With 4 workers and 8 tasks at 50ms each, should take ~100ms (2 batches)
	maxExpected := 300 * time.Millisecond
	if elapsed > maxExpected {
		t.Errorf("Expected parallel execution in ~100ms, took %v", elapsed)
	}

	if len(results) != len(tasks) {
		t.Errorf("Expected %d results, got %d", len(tasks), len(results))
	}

	t.Logf("Processed %d rows with %d workers in %v", len(tasks), 4, elapsed)
}

func TestPool_ErrorHandling(t *testing.T) {
	filler := &mockFiller{
		delay:    time.Millisecond,
		failRows: map[int]bool{1: true},
	}

	pool := New(Config{
		Workers: 2,
		Filler:  filler,
	})

	results := pool.Run(context.Background(), Rows(3))

	if len(results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(results))
	}

	var successCount, failCount int
	for _, r := range results {
		if r.Err != nil {
			failCount++
			if r.Task.Row != 1 {
				t.Errorf("Unexpected failure for row %d", r.Task.Row)
			}
		} else {
			successCount++
		}
	}

	if successCount != 2 {
		t.Errorf("Expected 2 successes, got %d", successCount)
	}
	if failCount != 1 {
		t.Errorf("Expected 1 failure, got %d", failCount)
	}
	if FirstError(results) == nil {
		t.Error("FirstError should report the failed row")
	}
}

func TestPool_Cancellation(t *testing.T) {
	filler := &mockFiller{delay: 100 * time.Millisecond}

	pool := New(Config{
		Workers: 2,
		Filler:  filler,
	})

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	results := pool.Run(ctx, Rows(10))
	elapsed := time.Since(start)

	if elapsed > 300*time.Millisecond {
		t.Errorf("Expected early cancellation, took %v", elapsed)
	}
	if len(results) != 10 {
		t.Errorf("Expected a result for every task, got %d", len(results))
	}

	var cancelledCount int
	for _, r := range results {
		if r.Err != nil && errors.Is(r.Err, context.Canceled) {
			cancelledCount++
		}
	}
	if cancelledCount == 0 {
		t.Error("Expected some cancelled results")
	}
	if !errors.Is(FirstError(results), context.Canceled) {
		t.Errorf("FirstError = %v, want context.Canceled", FirstError(results))
	}
}

func TestPool_ProgressCallback(t *testing.T) {
	filler := &mockFiller{delay: time.Millisecond}

	var progressCalls atomic.Int32
	var lastCompleted, lastTotal int

	pool := New(Config{
		Workers: 2,
		Filler:  filler,
		OnProgress: func(completed, total, failed int) {
			progressCalls.Add(1)
			lastCompleted = completed
			lastTotal = total
		},
	})

	tasks := Rows(3)
	pool.Run(context.Background(), tasks)

	if progressCalls.Load() != int32(len(tasks)) {
		t.Errorf("Expected %d progress callbacks, got %d", len(tasks), progressCalls.Load())
	}
	if lastCompleted != len(tasks) {
		t.Errorf("Expected lastCompleted=%d, got %d", len(tasks), lastCompleted)
	}
	if lastTotal != len(tasks) {
		t.Errorf("Expected lastTotal=%d, got %d", len(tasks), lastTotal)
	}
}

func TestPool_EmptyTasks(t *testing.T) {
	filler := &mockFiller{}

	pool := New(Config{
		Workers: 2,
		Filler:  filler,
	})

	results := pool.Run(context.Background(), nil)

	if len(results) != 0 {
		t.Errorf("Expected 0 results for empty tasks, got %d", len(results))
	}
	if filler.callCount.Load() != 0 {
		t.Errorf("Expected 0 fill calls for empty tasks, got %d", filler.callCount.Load())
	}
}

func TestPool_DefaultsToOneWorker(t *testing.T) {
	var rows []int
	pool := New(Config{
		Filler: FillerFunc(func(ctx context.Context, row int) error {
			rows = append(rows, row)
			return nil
		}),
	})

	pool.Run(context.Background(), Rows(4))

	// A single worker drains the buffered channel in order.
	want := []int{0, 1, 2, 3}
	if len(rows) != len(want) {
		t.Fatalf("Expected %d rows, got %v", len(want), rows)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("rows = %v, want %v", rows, want)
			break
		}
	}
}
