package perlin

import (
	"fmt"
	"math"
	"strings"

	goperlin "github.com/aquilax/go-perlin"
)

// Seeded is a single-octave Perlin source with a seed-shuffled gradient
// table, backed by github.com/aquilax/go-perlin. Unlike Reference its output
// depends on the seed, so it is useful for variety rather than for matching
// the reference values.
type Seeded struct {
	p    *goperlin.Perlin
	seed int64
}

// NewSeeded creates a seeded source.
func NewSeeded(seed int64) *Seeded {
	// alpha and beta only matter for n > 1; octaves are summed by Fractal.
	return &Seeded{
		p:    goperlin.NewPerlin(2.0, 2.0, 1, seed),
		seed: seed,
	}
}

// Seed returns the seed the source was built with.
func (s *Seeded) Seed() int64 { return s.seed }

// Noise2D implements Source. Output is clamped to [-1, 1].
func (s *Seeded) Noise2D(x, y float64) float64 {
	if !finite(x) || !finite(y) {
		return math.NaN()
	}
	return Clamp(s.p.Noise2D(x, y))
}

// Source names accepted by NewSource.
const (
	SourceReference = "reference"
	SourceSeeded    = "seeded"
)

// NewSource resolves a source by name. The seed is ignored for the
// reference source.
func NewSource(name string, seed int64) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SourceReference:
		return Reference{}, nil
	case SourceSeeded:
		return NewSeeded(seed), nil
	default:
		return nil, fmt.Errorf("unknown noise source %q (want %s or %s)", name, SourceReference, SourceSeeded)
	}
}
