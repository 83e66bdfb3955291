package raster

import (
	"math"

	"github.com/MeKo-Tech/noisegen/internal/colormap"
)

// HistogramBins is the number of equal-width bins over [-1, 1].
const HistogramBins = 16

// Stats summarises a grid.
type Stats struct {
	Count     int                `json:"count"`
	NaN       int                `json:"nan"`
	Min       float64            `json:"min"`
	Max       float64            `json:"max"`
	Mean      float64            `json:"mean"`
	StdDev    float64            `json:"stddev"`
	Histogram [HistogramBins]int `json:"histogram"`
}

// Summarize computes statistics over the finite values of g. NaN values are
// counted separately and excluded from everything else.
func Summarize(g *Grid) Stats {
	var s Stats
	var sum, sumSq float64
	s.Min = math.Inf(1)
	s.Max = math.Inf(-1)

	for _, v := range g.Values {
		if math.IsNaN(v) {
			s.NaN++
			continue
		}
		s.Count++
		sum += v
		sumSq += v * v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		s.Histogram[bin(v)]++
	}

	if s.Count == 0 {
		s.Min, s.Max = 0, 0
		return s
	}
	n := float64(s.Count)
	s.Mean = sum / n
	variance := sumSq/n - s.Mean*s.Mean
	if variance > 0 {
		s.StdDev = math.Sqrt(variance)
	}
	return s
}

func bin(v float64) int {
	i := int((v + 1) / 2 * HistogramBins)
	if i < 0 {
		return 0
	}
	if i >= HistogramBins {
		return HistogramBins - 1
	}
	return i
}

// ByteHistogram counts grid values per 8-bit channel value.
func ByteHistogram(g *Grid) [256]int {
	var h [256]int
	for _, v := range g.Values {
		h[colormap.ToByte(v)]++
	}
	return h
}
