package worker

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func recordCount(buf *bytes.Buffer) int {
	return strings.Count(buf.String(), "sampling progress")
}

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func newTestProgress(rows, width int, buf *bytes.Buffer, clock *fakeClock) *Progress {
	var logger *slog.Logger
	if buf != nil {
		logger = testLogger(buf)
	}
	p := NewProgress(rows, width, logger)
	p.now = clock.now
	p.start, p.lastLog = clock.now(), clock.now()
	p.interval = time.Second
	return p
}

func TestProgressThrottlesRecords(t *testing.T) {
	var buf bytes.Buffer
	clock := newFakeClock()
	p := newTestProgress(10, 100, &buf, clock)

	clock.advance(500 * time.Millisecond)
	p.Update(1, 10, 0)
	assert.Equal(t, 0, recordCount(&buf), "too early for a record")

	clock.advance(600 * time.Millisecond)
	p.Update(2, 10, 0)
	assert.Equal(t, 1, recordCount(&buf))

	clock.advance(100 * time.Millisecond)
	p.Update(3, 10, 0)
	assert.Equal(t, 1, recordCount(&buf))

	// The final row always produces a record.
	p.Update(10, 10, 0)
	assert.Equal(t, 2, recordCount(&buf))
}

func TestProgressRecordFields(t *testing.T) {
	var buf bytes.Buffer
	clock := newFakeClock()
	p := newTestProgress(8, 256, &buf, clock)

	clock.advance(2 * time.Second)
	p.Update(4, 8, 1)

	out := buf.String()
	assert.Contains(t, out, "rows=4")
	assert.Contains(t, out, "total_rows=8")
	assert.Contains(t, out, "samples=768")
	assert.Contains(t, out, "samples_per_sec=384")
	assert.Contains(t, out, "percent=50.0")
	assert.Contains(t, out, "failed_rows=1")
	assert.Contains(t, out, "eta=2s")
}

func TestProgressSilentWithoutLogger(t *testing.T) {
	clock := newFakeClock()
	p := newTestProgress(4, 16, nil, clock)

	clock.advance(time.Minute)
	p.Update(4, 4, 0)
	assert.Equal(t, int64(64), p.Samples())
}

func TestProgressSummary(t *testing.T) {
	clock := newFakeClock()
	p := newTestProgress(10, 50, nil, clock)

	p.Callback()(10, 10, 2)
	clock.advance(4 * time.Second)

	summary := p.Summary()
	assert.Contains(t, summary, "Sampled 8/10 rows, 400 samples (2 failed rows) in 4s")
	assert.Contains(t, summary, "100 samples/sec")
}

func TestProgressZeroRows(t *testing.T) {
	var buf bytes.Buffer
	clock := newFakeClock()
	p := newTestProgress(0, 32, &buf, clock)

	require.NotPanics(t, func() { p.Update(0, 0, 0) })
	assert.Equal(t, 1, recordCount(&buf))
	assert.Contains(t, p.Summary(), "Sampled 0/0 rows, 0 samples")
}

func TestProgressDrivenByPool(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(5, 7, testLogger(&buf))

	fill := FillerFunc(func(ctx context.Context, row int) error { return nil })
	pool := New(Config{Workers: 2, Filler: fill, OnProgress: p.Callback()})
	results := pool.Run(t.Context(), Rows(5))
	require.NoError(t, FirstError(results))

	assert.Equal(t, int64(35), p.Samples())
	assert.GreaterOrEqual(t, recordCount(&buf), 1)
}
