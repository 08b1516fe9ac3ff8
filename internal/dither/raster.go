package dither

import (
	"image"
	"image/color"
)

// Raster is a Width x Height grid of RGB triples stored row-major with a
// stride of 3*Width.
type Raster struct {
	Width, Height int
	Pix           []uint8
}

// NewRaster allocates a black raster.
func NewRaster(width, height int) *Raster {
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, 3*width*height),
	}
}

// NewUniformRaster returns a raster filled with c.
func NewUniformRaster(width, height int, c RGB) *Raster {
	r := NewRaster(width, height)
	for i := 0; i < len(r.Pix); i += 3 {
		r.Pix[i], r.Pix[i+1], r.Pix[i+2] = c.R, c.G, c.B
	}
	return r
}

// RasterFromImage flattens img to RGB. Alpha is discarded: each pixel keeps
// its straight (non-premultiplied) color, so fully transparent pixels keep
// whatever color they carry instead of turning black.
func RasterFromImage(img image.Image) *Raster {
	b := img.Bounds()
	r := NewRaster(b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			r.Pix[i], r.Pix[i+1], r.Pix[i+2] = c.R, c.G, c.B
			i += 3
		}
	}
	return r
}

// At returns the color at (x, y).
func (r *Raster) At(x, y int) RGB {
	i := 3 * (y*r.Width + x)
	return RGB{R: r.Pix[i], G: r.Pix[i+1], B: r.Pix[i+2]}
}

// Set writes c at (x, y).
func (r *Raster) Set(x, y int, c RGB) {
	i := 3 * (y*r.Width + x)
	r.Pix[i], r.Pix[i+1], r.Pix[i+2] = c.R, c.G, c.B
}

func newOutput(src *Raster, p Palette) *image.Paletted {
	return image.NewPaletted(image.Rect(0, 0, src.Width, src.Height), p.ColorPalette())
}
