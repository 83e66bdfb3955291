// Package colormap maps noise values in [-1, 1] to 8-bit channels and colors.
package colormap

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"
)

// ErrUnknownPalette is returned by ByName for names it does not recognise.
var ErrUnknownPalette = errors.New("unknown palette")

// ToByte remaps v from [-1, 1] to [0, 255] with rounding.
// Values outside the range saturate; NaN maps to 0.
func ToByte(v float64) uint8 {
	if math.IsNaN(v) {
		return 0
	}
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return uint8(math.Round((v + 1) / 2 * 255))
}

// Palette turns a noise value into a color.
type Palette interface {
	Color(v float64) color.RGBA
}

// Gray maps the value to equal r, g and b.
type Gray struct{}

func (Gray) Color(v float64) color.RGBA {
	b := ToByte(v)
	return color.RGBA{R: b, G: b, B: b, A: 255}
}

// Green writes the value into the green channel only.
type Green struct{}

func (Green) Color(v float64) color.RGBA {
	return color.RGBA{G: ToByte(v), A: 255}
}

// Terrain bands the byte value into water, sand and grass.
type Terrain struct {
	WaterBelow uint8 // bytes below this are water
	SandBelow  uint8 // bytes below this (and not water) are sand
	Water      color.RGBA
	Sand       color.RGBA
	Grass      color.RGBA
}

// DefaultTerrain returns the classic blue/yellow/green banding at 30 and 50.
func DefaultTerrain() Terrain {
	return Terrain{
		WaterBelow: 30,
		SandBelow:  50,
		Water:      color.RGBA{R: 0, G: 0, B: 255, A: 255},
		Sand:       color.RGBA{R: 255, G: 255, B: 0, A: 255},
		Grass:      color.RGBA{R: 0, G: 128, B: 0, A: 255},
	}
}

func (t Terrain) Color(v float64) color.RGBA {
	b := ToByte(v)
	switch {
	case b < t.WaterBelow:
		return t.Water
	case b < t.SandBelow:
		return t.Sand
	default:
		return t.Grass
	}
}

var palettes = map[string]func() Palette{
	"gray":    func() Palette { return Gray{} },
	"green":   func() Palette { return Green{} },
	"terrain": func() Palette { return DefaultTerrain() },
}

// ByName resolves a palette name (case-insensitive).
func ByName(name string) (Palette, error) {
	ctor, ok := palettes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownPalette, name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Names lists the registered palette names in sorted order.
func Names() []string {
	names := make([]string, 0, len(palettes))
	for n := range palettes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
