package raster

import (
	"context"
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/MeKo-Tech/noisegen/internal/colormap"
	"github.com/MeKo-Tech/noisegen/internal/perlin"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitBound(size float64) orb.Bound {
	return orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{size, size}}
}

// constSource returns the same value everywhere.
type constSource float64

func (c constSource) Noise2D(x, y float64) float64 { return float64(c) }

func TestSampleMatchesDirectEvaluation(t *testing.T) {
	req := Request{Bound: unitBound(4), Width: 32, Height: 24, Workers: 4}
	grid, err := Sample(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 32, grid.Width)
	require.Equal(t, 24, grid.Height)

	for py := 0; py < req.Height; py++ {
		for px := 0; px < req.Width; px++ {
			x, y := req.PixelCenter(px, py)
			require.Equal(t, perlin.Noise2D(x, y), grid.At(px, py), "pixel (%d, %d)", px, py)
		}
	}
}

func TestSampleIndependentOfWorkerCount(t *testing.T) {
	base := Request{Bound: orb.Bound{Min: orb.Point{-3, 7}, Max: orb.Point{5, 11}}, Width: 40, Height: 20}

	one := base
	one.Workers = 1
	a, err := Sample(context.Background(), one)
	require.NoError(t, err)

	many := base
	many.Workers = 8
	b, err := Sample(context.Background(), many)
	require.NoError(t, err)

	assert.Equal(t, a.Values, b.Values)
}

func TestPixelCenter(t *testing.T) {
	req := Request{Bound: orb.Bound{Min: orb.Point{10, 20}, Max: orb.Point{14, 22}}, Width: 4, Height: 2}
	x, y := req.PixelCenter(0, 0)
	assert.Equal(t, 10.5, x)
	assert.Equal(t, 20.5, y)

	x, y = req.PixelCenter(3, 1)
	assert.Equal(t, 13.5, x)
	assert.Equal(t, 21.5, y)
}

func TestSampleInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"zero width", Request{Bound: unitBound(1), Width: 0, Height: 4}},
		{"negative height", Request{Bound: unitBound(1), Width: 4, Height: -1}},
		{"empty bound", Request{Bound: orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{1, 2}}, Width: 4, Height: 4}},
		{"inverted bound", Request{Bound: orb.Bound{Min: orb.Point{2, 2}, Max: orb.Point{1, 1}}, Width: 4, Height: 4}},
		{"nan bound", Request{Bound: orb.Bound{Min: orb.Point{math.NaN(), 0}, Max: orb.Point{1, 1}}, Width: 4, Height: 4}},
		{"too large", Request{Bound: unitBound(1), Width: 1 << 14, Height: 1 << 14}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sample(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestSampleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Sample(ctx, Request{Bound: unitBound(1), Width: 8, Height: 8, Workers: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSampleReportsProgress(t *testing.T) {
	var last, total int
	_, err := Sample(context.Background(), Request{
		Bound:  unitBound(1),
		Width:  4,
		Height: 6,
		OnProgress: func(completed, t, failed int) {
			last, total = completed, t
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, last)
	assert.Equal(t, 6, total)
}

func TestSampleWithFractalStaysInRange(t *testing.T) {
	f, err := perlin.NewFractal(perlin.Reference{}, perlin.DefaultOctaves())
	require.NoError(t, err)

	grid, err := Sample(context.Background(), Request{Bound: unitBound(1), Width: 64, Height: 64, Source: f, Workers: 4})
	require.NoError(t, err)

	for _, v := range grid.Values {
		require.GreaterOrEqual(t, v, -1.0)
		require.LessOrEqual(t, v, 1.0)
	}
}

func TestColorize(t *testing.T) {
	g := NewGrid(2, 1)
	copy(g.Row(0), []float64{-1, 1})

	img := Colorize(g, colormap.Green{})
	assert.Equal(t, color.RGBA{G: 0, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{G: 255, A: 255}, img.RGBAAt(1, 0))
}

func TestDownsample(t *testing.T) {
	grid, err := Sample(context.Background(), Request{Bound: unitBound(1), Width: 64, Height: 64, Source: constSource(0)})
	require.NoError(t, err)

	img := Colorize(grid, colormap.Gray{})
	small := Downsample(img, 16, 16)
	assert.Equal(t, 16, small.Bounds().Dx())
	assert.Equal(t, 16, small.Bounds().Dy())

	// A flat image stays flat after filtering.
	c := small.RGBAAt(8, 8)
	assert.InDelta(t, 128, int(c.R), 1)
	assert.Equal(t, c.R, c.G)
}

func TestSummarize(t *testing.T) {
	g := NewGrid(5, 1)
	copy(g.Values, []float64{-1, -0.5, 0.5, 1, math.NaN()})

	s := Summarize(g)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 1, s.NaN)
	assert.Equal(t, -1.0, s.Min)
	assert.Equal(t, 1.0, s.Max)
	assert.InDelta(t, 0, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(0.625), s.StdDev, 1e-12)
	assert.Equal(t, 1, s.Histogram[0])
	assert.Equal(t, 1, s.Histogram[4])
	assert.Equal(t, 1, s.Histogram[12])
	assert.Equal(t, 1, s.Histogram[HistogramBins-1])
}

func TestSummarizeEmpty(t *testing.T) {
	g := NewGrid(1, 1)
	g.Values[0] = math.NaN()
	s := Summarize(g)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, 0.0, s.Min)
	assert.Equal(t, 0.0, s.Max)
}

func TestByteHistogram(t *testing.T) {
	g := NewGrid(3, 1)
	copy(g.Values, []float64{-1, 0, 1})
	h := ByteHistogram(g)
	assert.Equal(t, 1, h[0])
	assert.Equal(t, 1, h[128])
	assert.Equal(t, 1, h[255])
}

func BenchmarkSample256(b *testing.B) {
	req := Request{Bound: unitBound(8), Width: 256, Height: 256, Workers: 4}
	for i := 0; i < b.N; i++ {
		if _, err := Sample(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}
