package perlin

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidOctaves is returned for octave settings that cannot be summed.
var ErrInvalidOctaves = errors.New("invalid octave settings")

// MaxOctaves is the largest accepted Octaves.Count.
const MaxOctaves = 64

// Octaves configures fractal summation.
type Octaves struct {
	Count      int     // number of layers
	Frequency  float64 // frequency of the first layer
	Amplitude  float64 // amplitude of the first layer
	Lacunarity float64 // frequency multiplier per layer
	Gain       float64 // amplitude multiplier per layer
}

// DefaultOctaves returns four layers starting at frequency 10 and amplitude 2,
// doubling frequency and halving amplitude each layer.
func DefaultOctaves() Octaves {
	return Octaves{
		Count:      4,
		Frequency:  10,
		Amplitude:  2,
		Lacunarity: 2,
		Gain:       0.5,
	}
}

// Validate checks that the settings describe a finite sum: every layer's
// frequency and the total of all layer amplitudes must stay finite.
func (o Octaves) Validate() error {
	if o.Count < 1 || o.Count > MaxOctaves {
		return fmt.Errorf("%w: count must be in [1, %d], got %d", ErrInvalidOctaves, MaxOctaves, o.Count)
	}
	if !finite(o.Frequency) || o.Frequency <= 0 {
		return fmt.Errorf("%w: frequency must be positive, got %v", ErrInvalidOctaves, o.Frequency)
	}
	if !finite(o.Lacunarity) || o.Lacunarity <= 0 {
		return fmt.Errorf("%w: lacunarity must be positive, got %v", ErrInvalidOctaves, o.Lacunarity)
	}
	if !finite(o.Amplitude) {
		return fmt.Errorf("%w: amplitude must be finite, got %v", ErrInvalidOctaves, o.Amplitude)
	}
	if !finite(o.Gain) {
		return fmt.Errorf("%w: gain must be finite, got %v", ErrInvalidOctaves, o.Gain)
	}

	freq, amp, bound := o.Frequency, o.Amplitude, 0.0
	for i := 0; i < o.Count; i++ {
		bound += math.Abs(amp)
		if !finite(freq) || !finite(bound) {
			return fmt.Errorf("%w: layer %d overflows (frequency %v, amplitude %v)", ErrInvalidOctaves, i, freq, amp)
		}
		freq *= o.Lacunarity
		amp *= o.Gain
	}
	return nil
}

// Fractal sums several octaves of a Source and clamps the result.
// It holds no mutable state and is safe for concurrent use.
type Fractal struct {
	src     Source
	octaves Octaves
}

// NewFractal validates o and returns a combiner over src.
// A nil src selects the reference evaluator.
func NewFractal(src Source, o Octaves) (*Fractal, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		src = Reference{}
	}
	return &Fractal{src: src, octaves: o}, nil
}

// Octaves returns the settings the combiner was built with.
func (f *Fractal) Octaves() Octaves { return f.octaves }

// Sum returns the raw, unclamped octave sum at (x, y).
func (f *Fractal) Sum(x, y float64) float64 {
	freq := f.octaves.Frequency
	amp := f.octaves.Amplitude
	total := 0.0
	for i := 0; i < f.octaves.Count; i++ {
		total += f.src.Noise2D(scale(x, freq), scale(y, freq)) * amp
		freq *= f.octaves.Lacunarity
		amp *= f.octaves.Gain
	}
	return total
}

// Noise2D returns the octave sum saturated to [-1, 1].
func (f *Fractal) Noise2D(x, y float64) float64 {
	return Clamp(f.Sum(x, y))
}

// Clamp saturates v to [-1, 1]. NaN is returned unchanged.
func Clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// scale returns v*freq. A finite v whose product overflows is far past 2^53,
// where every float is an integer, so it is folded onto the lattice line 0.
func scale(v, freq float64) float64 {
	s := v * freq
	if math.IsInf(s, 0) && finite(v) {
		return 0
	}
	return s
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
