// Package server exposes noise sampling over HTTP as JSON.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/noisegen/internal/chunk"
	"github.com/MeKo-Tech/noisegen/internal/perlin"
	"github.com/MeKo-Tech/noisegen/internal/raster"
	"github.com/paulmach/orb"
)

// SamplingConfig configures the sampling service.
type SamplingConfig struct {
	// Source is the single-octave evaluator behind /noise. Defaults to the
	// reference evaluator.
	Source perlin.Source
	// Fractal backs /fractal and /chunks.
	Fractal *perlin.Fractal
	// ChunkSize is the noise-space side length of one chunk (default 1).
	ChunkSize float64
	// ChunkResolution is the pixel side length of a sampled chunk (default 64).
	ChunkResolution int
	// MaxConcurrentChunks bounds simultaneous chunk samplings (default 1).
	MaxConcurrentChunks int
	// WorkersPerChunk is the row parallelism inside one chunk (default 1).
	WorkersPerChunk int
	// ChunkTimeout bounds one chunk sampling (default 30s).
	ChunkTimeout time.Duration
	CacheControl string
}

// Sampling serves point and chunk samples.
type Sampling struct {
	cfg    SamplingConfig
	logger *slog.Logger
	sem    chan struct{}

	activeChunks  atomic.Int32
	totalChunks   atomic.Int64
	failedChunks  atomic.Int64
	totalRequests atomic.Int64
}

// Status reports service counters.
type Status struct {
	ActiveChunks  int   `json:"active_chunks"`
	TotalChunks   int64 `json:"total_chunks"`
	FailedChunks  int64 `json:"failed_chunks"`
	TotalRequests int64 `json:"total_requests"`
	MaxConcurrent int   `json:"max_concurrent"`
}

// PointResponse is the body of /noise and /fractal.
type PointResponse struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Value float64  `json:"value"`
	Raw   *float64 `json:"raw,omitempty"`
}

// ChunkResponse is the body of /chunks/{coords}.json.
type ChunkResponse struct {
	Chunk  string       `json:"chunk"`
	Bound  [4]float64   `json:"bound"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Stats  raster.Stats `json:"stats"`
	Values []float64    `json:"values,omitempty"`
}

// NewSampling creates the service, filling in defaults.
func NewSampling(cfg SamplingConfig, logger *slog.Logger) (*Sampling, error) {
	if cfg.Source == nil {
		cfg.Source = perlin.Reference{}
	}
	if cfg.Fractal == nil {
		f, err := perlin.NewFractal(cfg.Source, perlin.DefaultOctaves())
		if err != nil {
			return nil, err
		}
		cfg.Fractal = f
	}
	if cfg.ChunkSize <= 0 || math.IsInf(cfg.ChunkSize, 0) || math.IsNaN(cfg.ChunkSize) {
		cfg.ChunkSize = 1
	}
	if cfg.ChunkResolution <= 0 {
		cfg.ChunkResolution = 64
	}
	if cfg.MaxConcurrentChunks <= 0 {
		cfg.MaxConcurrentChunks = 1
	}
	if cfg.WorkersPerChunk <= 0 {
		cfg.WorkersPerChunk = 1
	}
	if cfg.ChunkTimeout <= 0 {
		cfg.ChunkTimeout = 30 * time.Second
	}
	if cfg.CacheControl == "" {
		// Samples for a given request never change.
		cfg.CacheControl = "public, max-age=31536000, immutable"
	}

	return &Sampling{
		cfg:    cfg,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrentChunks),
	}, nil
}

// Handler returns a mux with all sampling routes.
func (s *Sampling) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/noise", s.servePoint(false))
	mux.HandleFunc("/fractal", s.servePoint(true))
	mux.HandleFunc("/chunks/", s.serveChunk)
	mux.HandleFunc("/status", s.serveStatus)
	return mux
}

// ChunkSize returns the noise-space side length of one chunk.
func (s *Sampling) ChunkSize() float64 { return s.cfg.ChunkSize }

// Status returns the current counters.
func (s *Sampling) Status() Status {
	return Status{
		ActiveChunks:  int(s.activeChunks.Load()),
		TotalChunks:   s.totalChunks.Load(),
		FailedChunks:  s.failedChunks.Load(),
		TotalRequests: s.totalRequests.Load(),
		MaxConcurrent: s.cfg.MaxConcurrentChunks,
	}
}

func (s *Sampling) serveStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	s.writeJSON(w, s.Status())
}

func (s *Sampling) servePoint(fractal bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.totalRequests.Add(1)
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		x, err := parseCoordinate(r, "x")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		y, err := parseCoordinate(r, "y")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := PointResponse{X: x, Y: y}
		if fractal {
			raw := s.cfg.Fractal.Sum(x, y)
			resp.Value = perlin.Clamp(raw)
			resp.Raw = &raw
		} else {
			resp.Value = s.cfg.Source.Noise2D(x, y)
		}

		w.Header().Set("Cache-Control", s.cfg.CacheControl)
		s.writeJSON(w, resp)
	}
}

func (s *Sampling) serveChunk(w http.ResponseWriter, r *http.Request) {
	s.totalRequests.Add(1)
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	coords, ok := parseChunkPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	select {
	case s.sem <- struct{}{}:
	case <-r.Context().Done():
		return
	}
	defer func() { <-s.sem }()

	s.activeChunks.Add(1)
	defer s.activeChunks.Add(-1)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChunkTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.SampleChunk(ctx, coords, r.URL.Query().Get("values") == "1")
	if err != nil {
		s.failedChunks.Add(1)
		s.log().Error("chunk sampling failed", "chunk", coords.String(), "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		http.Error(w, "chunk sampling failed", status)
		return
	}
	s.totalChunks.Add(1)
	s.log().Debug("chunk sampled",
		"chunk", coords.String(),
		"center", coords.Center(s.cfg.ChunkSize),
		"elapsed", time.Since(start),
	)

	w.Header().Set("Cache-Control", s.cfg.CacheControl)
	s.writeJSON(w, resp)
}

// SampleChunk samples one chunk through the configured fractal.
func (s *Sampling) SampleChunk(ctx context.Context, coords chunk.Coords, withValues bool) (*ChunkResponse, error) {
	b := coords.Bound(s.cfg.ChunkSize)
	grid, err := raster.Sample(ctx, raster.Request{
		Bound:   b,
		Width:   s.cfg.ChunkResolution,
		Height:  s.cfg.ChunkResolution,
		Source:  s.cfg.Fractal,
		Workers: s.cfg.WorkersPerChunk,
	})
	if err != nil {
		return nil, err
	}

	resp := &ChunkResponse{
		Chunk:  coords.String(),
		Bound:  boundArray(b),
		Width:  grid.Width,
		Height: grid.Height,
		Stats:  raster.Summarize(grid),
	}
	if withValues {
		resp.Values = grid.Values
	}
	return resp, nil
}

// writeJSON answers 500 when v cannot be encoded.
func (s *Sampling) writeJSON(w http.ResponseWriter, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.log().Error("failed to encode response", "error", err)
		w.Header().Del("Cache-Control")
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (s *Sampling) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func parseCoordinate(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing query parameter %q", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	// JSON cannot carry NaN or Inf, so reject them up front.
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be finite", name)
	}
	return v, nil
}

// parseChunkPath parses a path like /chunks/cx3_cy-2.json.
func parseChunkPath(requestPath string) (chunk.Coords, bool) {
	if !strings.HasPrefix(requestPath, "/chunks/") {
		return chunk.Coords{}, false
	}

	base := path.Base(requestPath)
	if !strings.HasSuffix(base, ".json") {
		return chunk.Coords{}, false
	}

	coords, err := chunk.ParseCoords(strings.TrimSuffix(base, ".json"))
	if err != nil {
		return chunk.Coords{}, false
	}
	return coords, true
}

func boundArray(b orb.Bound) [4]float64 {
	return [4]float64{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
}
