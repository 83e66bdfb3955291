// Package perlin implements deterministic 2D Perlin gradient noise over the
// reference permutation table, plus octave (fractal) summation on top of it.
package perlin

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvariant marks a broken internal invariant (corrupt table or masking).
var ErrInvariant = errors.New("perlin: internal invariant violated")

// InvariantError is the panic value raised when a gradient selector falls
// outside [0, 3].
type InvariantError struct {
	Selector int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%v: gradient selector %d out of range [0,3]", ErrInvariant, e.Selector)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

// Source is anything that maps a 2D coordinate to a value in [-1, 1].
type Source interface {
	Noise2D(x, y float64) float64
}

// Reference is the stateless evaluator over the reference permutation table.
type Reference struct{}

// Noise2D implements Source.
func (Reference) Noise2D(x, y float64) float64 { return Noise2D(x, y) }

// Noise2D returns 2D Perlin noise at (x, y) in [-1, 1].
// Integer lattice points always return 0 and the pattern repeats every 256
// units on both axes. NaN or infinite input yields NaN.
func Noise2D(x, y float64) float64 {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return math.NaN()
	}

	floorX := math.Floor(x)
	floorY := math.Floor(y)

	cx := cell(floorX)
	cy := cell(floorY)

	// Corner hashes, (0,0) (1,0) (0,1) (1,1).
	h00 := doubled[doubled[cx]+cy]
	h10 := doubled[doubled[cx+1]+cy]
	h01 := doubled[doubled[cx]+cy+1]
	h11 := doubled[doubled[cx+1]+cy+1]

	fx := x - floorX
	fy := y - floorY

	d00 := grad(h00&3, fx, fy)
	d10 := grad(h10&3, fx-1, fy)
	d01 := grad(h01&3, fx, fy-1)
	d11 := grad(h11&3, fx-1, fy-1)

	u := fade(fx)
	v := fade(fy)

	top := lerp(u, d00, d10)
	bottom := lerp(u, d01, d11)
	return lerp(v, top, bottom)
}

// cellLimit bounds the fast path where a floored coordinate converts to int
// without overflow on any platform.
const cellLimit = 1 << 31

// cell maps an already floored coordinate to its lattice index in [0, 255].
func cell(f float64) int {
	if f > -cellLimit && f < cellLimit {
		return int(f) & 255
	}
	return int(math.Mod(f, 256)) & 255
}

// grad returns the dot product of the selected gradient with (dx, dy).
// Gradients: 0 (1,1), 1 (-1,1), 2 (1,-1), 3 (-1,-1).
func grad(selector int, dx, dy float64) float64 {
	switch selector {
	case 0:
		return dx + dy
	case 1:
		return -dx + dy
	case 2:
		return dx - dy
	case 3:
		return -dx - dy
	}
	panic(&InvariantError{Selector: selector})
}

// fade is the quintic 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 { return (1-t)*a + t*b }
