// Package chunk addresses square regions of noise space.
package chunk

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Coords identifies a chunk on the integer chunk grid.
type Coords struct {
	X int32
	Y int32
}

// NewCoords creates Coords from x, y.
func NewCoords(x, y int32) Coords {
	return Coords{X: x, Y: y}
}

// String returns the chunk in format "cx{x}_cy{y}"
func (c Coords) String() string {
	return fmt.Sprintf("cx%d_cy%d", c.X, c.Y)
}

// Bound returns the noise-space rectangle covered by the chunk when each
// chunk spans size units per side.
func (c Coords) Bound(size float64) orb.Bound {
	minX := float64(c.X) * size
	minY := float64(c.Y) * size
	return orb.Bound{
		Min: orb.Point{minX, minY},
		Max: orb.Point{minX + size, minY + size},
	}
}

// Center returns the center of the chunk in noise space.
func (c Coords) Center(size float64) orb.Point {
	return c.Bound(size).Center()
}

// ParseCoords parses a chunk string like "cx-3_cy12". Only the form produced
// by String is accepted.
func ParseCoords(s string) (Coords, error) {
	var c Coords
	if _, err := fmt.Sscanf(s, "cx%d_cy%d", &c.X, &c.Y); err != nil || c.String() != s {
		return Coords{}, fmt.Errorf("invalid chunk coordinate format: %q", s)
	}
	return c, nil
}

// Range is an inclusive rectangle of chunks.
type Range struct {
	MinX, MaxX int32
	MinY, MaxY int32
}

// Validate reports an inverted range.
func (r Range) Validate() error {
	if r.MinX > r.MaxX {
		return fmt.Errorf("invalid chunk range: minX %d > maxX %d", r.MinX, r.MaxX)
	}
	if r.MinY > r.MaxY {
		return fmt.Errorf("invalid chunk range: minY %d > maxY %d", r.MinY, r.MaxY)
	}
	return nil
}

// Count returns the number of chunks in the range, or 0 if it is inverted.
// Ranges too large for an int saturate at math.MaxInt.
func (r Range) Count() int {
	if r.Validate() != nil {
		return 0
	}
	w := int64(r.MaxX) - int64(r.MinX) + 1
	h := int64(r.MaxY) - int64(r.MinY) + 1
	if w > math.MaxInt/h {
		return math.MaxInt
	}
	return int(w * h)
}

// Coords enumerates the chunks row by row. Callers bound the range first;
// see Count.
func (r Range) Coords() []Coords {
	if r.Validate() != nil {
		return []Coords{}
	}
	out := make([]Coords, 0, r.Count())
	for y := r.MinY; ; y++ {
		for x := r.MinX; ; x++ {
			out = append(out, NewCoords(x, y))
			if x == r.MaxX {
				break
			}
		}
		if y == r.MaxY {
			break
		}
	}
	return out
}
