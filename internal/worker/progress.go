package worker

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultProgressInterval is the minimum time between two progress records.
const DefaultProgressInterval = 2 * time.Second

// Progress turns row completions into sample throughput and reports it as
// structured log records. A nil logger keeps it silent; Summary still works.
type Progress struct {
	mu       sync.Mutex
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	rowWidth int
	rows     int
	done     int
	failed   int
	start    time.Time
	lastLog  time.Time
}

// NewProgress tracks a raster of rows rows, each rowWidth samples wide.
func NewProgress(rows, rowWidth int, logger *slog.Logger) *Progress {
	p := &Progress{
		logger:   logger,
		interval: DefaultProgressInterval,
		now:      time.Now,
		rowWidth: rowWidth,
		rows:     rows,
	}
	p.start = p.now()
	p.lastLog = p.start
	return p
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Update records pool progress. A record is logged at most once per
// interval, plus once when the last row completes.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.done, p.rows, p.failed = completed, total, failed
	now := p.now()
	emit := p.logger != nil && (completed >= total || now.Sub(p.lastLog) >= p.interval)
	if emit {
		p.lastLog = now
	}
	snap := p.snapshotLocked(now)
	p.mu.Unlock()

	if !emit {
		return
	}
	attrs := []any{
		"rows", snap.done,
		"total_rows", snap.rows,
		"samples", snap.samples,
		"samples_per_sec", int64(snap.rate),
		"percent", fmt.Sprintf("%.1f", snap.percent),
	}
	if snap.failed > 0 {
		attrs = append(attrs, "failed_rows", snap.failed)
	}
	if snap.eta > 0 {
		attrs = append(attrs, "eta", snap.eta)
	}
	p.logger.Info("sampling progress", attrs...)
}

// Samples returns the number of samples in successfully filled rows.
func (p *Progress) Samples() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int64(p.done-p.failed) * int64(p.rowWidth)
}

// Summary describes the finished run.
func (p *Progress) Summary() string {
	p.mu.Lock()
	snap := p.snapshotLocked(p.now())
	p.mu.Unlock()

	return fmt.Sprintf("Sampled %d/%d rows, %d samples (%d failed rows) in %s, %.0f samples/sec",
		snap.done-snap.failed, snap.rows, snap.samples, snap.failed, snap.elapsed, snap.rate)
}

type progressSnapshot struct {
	done, rows, failed int
	samples            int64
	percent, rate      float64
	elapsed, eta       time.Duration
}

func (p *Progress) snapshotLocked(now time.Time) progressSnapshot {
	s := progressSnapshot{
		done:    p.done,
		rows:    p.rows,
		failed:  p.failed,
		samples: int64(p.done-p.failed) * int64(p.rowWidth),
		elapsed: now.Sub(p.start).Round(time.Millisecond),
	}
	if p.rows > 0 {
		s.percent = 100 * float64(p.done) / float64(p.rows)
	}
	if secs := now.Sub(p.start).Seconds(); secs > 0 {
		s.rate = float64(s.samples) / secs
		if p.done > 0 && p.done < p.rows {
			perRow := now.Sub(p.start) / time.Duration(p.done)
			s.eta = (perRow * time.Duration(p.rows-p.done)).Round(time.Second)
		}
	}
	return s
}
