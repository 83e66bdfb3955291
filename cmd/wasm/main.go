//go:build js && wasm
// +build js,wasm

package main

import (
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/noisegen/internal/perlin"
)

var fractal *perlin.Fractal

// sample is called from JavaScript as noisegenSample(x, y).
func sample(this js.Value, args []js.Value) interface{} {
	x, y, err := coords(args)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return perlin.Noise2D(x, y)
}

// sampleFractal is called from JavaScript as noisegenFractal(x, y) and
// returns the clamped value together with the raw octave sum.
func sampleFractal(this js.Value, args []js.Value) interface{} {
	x, y, err := coords(args)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	raw := fractal.Sum(x, y)
	return map[string]interface{}{
		"value": perlin.Clamp(raw),
		"raw":   raw,
	}
}

func coords(args []js.Value) (float64, float64, error) {
	if len(args) < 2 {
		return 0, 0, fmt.Errorf("expected (x, y), got %d arguments", len(args))
	}
	if args[0].Type() != js.TypeNumber || args[1].Type() != js.TypeNumber {
		return 0, 0, fmt.Errorf("x and y must be numbers")
	}
	return args[0].Float(), args[1].Float(), nil
}

func main() {
	f, err := perlin.NewFractal(perlin.Reference{}, perlin.DefaultOctaves())
	if err != nil {
		panic(err)
	}
	fractal = f

	c := make(chan struct{})

	js.Global().Set("noisegenSample", js.FuncOf(sample))
	js.Global().Set("noisegenFractal", js.FuncOf(sampleFractal))

	fmt.Println("noisegen WASM module loaded")
	<-c
}
