package raster

import (
	"image"

	"github.com/MeKo-Tech/noisegen/internal/colormap"
	"github.com/disintegration/gift"
)

// Colorize maps every grid value through the palette into an in-memory image.
func Colorize(g *Grid, p colormap.Palette) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			img.SetRGBA(x, y, p.Color(g.At(x, y)))
		}
	}
	return img
}

// Downsample reduces a supersampled image to w x h with a Lanczos filter.
// If either dimension is zero it is derived from the aspect ratio.
func Downsample(img *image.RGBA, w, h int) *image.RGBA {
	g := gift.New(gift.Resize(w, h, gift.LanczosResampling))
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}
