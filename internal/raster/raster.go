// Package raster samples a noise source over a rectangular grid of pixels.
package raster

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/noisegen/internal/perlin"
	"github.com/MeKo-Tech/noisegen/internal/worker"
	"github.com/paulmach/orb"
)

// ErrInvalidRequest is returned for requests that cannot be sampled.
var ErrInvalidRequest = errors.New("invalid raster request")

// maxPixels caps a single grid so a bad request cannot exhaust memory.
const maxPixels = 1 << 26

// Grid holds row-major noise values.
type Grid struct {
	Width  int
	Height int
	Values []float64
}

// NewGrid allocates a zeroed grid.
func NewGrid(w, h int) *Grid {
	return &Grid{Width: w, Height: h, Values: make([]float64, w*h)}
}

// At returns the value at (x, y).
func (g *Grid) At(x, y int) float64 { return g.Values[y*g.Width+x] }

// Row returns the backing slice for row y.
func (g *Grid) Row(y int) []float64 {
	return g.Values[y*g.Width : (y+1)*g.Width]
}

// Request describes a sampling job.
type Request struct {
	// Bound is the noise-space rectangle mapped onto the grid.
	Bound orb.Bound
	// Width and Height are the grid dimensions in pixels.
	Width  int
	Height int
	// Source defaults to the reference evaluator when nil.
	Source perlin.Source
	// Workers defaults to 1.
	Workers    int
	OnProgress worker.ProgressFunc
}

// Validate checks the request dimensions and bound.
func (r Request) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: size must be positive, got %dx%d", ErrInvalidRequest, r.Width, r.Height)
	}
	if int64(r.Width)*int64(r.Height) > maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidRequest, r.Width, r.Height, maxPixels)
	}
	for _, v := range []float64{r.Bound.Min.X(), r.Bound.Min.Y(), r.Bound.Max.X(), r.Bound.Max.Y()} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: bound must be finite, got %v", ErrInvalidRequest, r.Bound)
		}
	}
	if r.Bound.Max.X() <= r.Bound.Min.X() || r.Bound.Max.Y() <= r.Bound.Min.Y() {
		return fmt.Errorf("%w: bound must have positive area, got %v", ErrInvalidRequest, r.Bound)
	}
	return nil
}

// PixelCenter returns the noise-space coordinate sampled for pixel (px, py).
func (r Request) PixelCenter(px, py int) (float64, float64) {
	w := r.Bound.Max.X() - r.Bound.Min.X()
	h := r.Bound.Max.Y() - r.Bound.Min.Y()
	x := r.Bound.Min.X() + (float64(px)+0.5)/float64(r.Width)*w
	y := r.Bound.Min.Y() + (float64(py)+0.5)/float64(r.Height)*h
	return x, y
}

// Sample evaluates the source at every pixel center. Rows are filled in
// parallel; each worker writes only its own row.
func Sample(ctx context.Context, req Request) (*Grid, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Source == nil {
		req.Source = perlin.Reference{}
	}

	grid := NewGrid(req.Width, req.Height)
	fill := worker.FillerFunc(func(ctx context.Context, row int) error {
		out := grid.Row(row)
		for px := range out {
			x, y := req.PixelCenter(px, row)
			out[px] = req.Source.Noise2D(x, y)
		}
		return nil
	})

	pool := worker.New(worker.Config{
		Workers:    req.Workers,
		Filler:     fill,
		OnProgress: req.OnProgress,
	})

	results := pool.Run(ctx, worker.Rows(req.Height))
	if err := worker.FirstError(results); err != nil {
		return nil, fmt.Errorf("sampling aborted: %w", err)
	}
	return grid, nil
}
