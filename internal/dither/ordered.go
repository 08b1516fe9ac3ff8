package dither

import (
	"fmt"
	"image"
	"math"
)

// DefaultBayerOrder is the matrix size used when none is given.
const DefaultBayerOrder = 8

// MaxBayerOrder is the largest matrix Ordered will build.
const MaxBayerOrder = 64

// BayerMatrix builds the n x n dispersed-dot threshold matrix. n must be a
// power of two. The quadrant offsets 0, 2, 3, 1 (TL, TR, BL, BR) produce the
// classic pattern.
func BayerMatrix(n int) ([][]int, error) {
	if n < 1 || n&(n-1) != 0 {
		return nil, &ConfigurationError{
			Field:  "bayer order",
			Reason: fmt.Sprintf("%d is not a power of two", n),
		}
	}
	return bayer(n), nil
}

// CheckBayerOrder accepts powers of two from 1 to MaxBayerOrder.
func CheckBayerOrder(n int) error {
	if n > MaxBayerOrder {
		return &ConfigurationError{
			Field:  "bayer order",
			Reason: fmt.Sprintf("%d is larger than %d", n, MaxBayerOrder),
		}
	}
	_, err := BayerMatrix(n)
	return err
}

func bayer(n int) [][]int {
	if n == 1 {
		return [][]int{{0}}
	}
	half := n / 2
	sub := bayer(half)
	m := make([][]int, n)
	for y := range m {
		m[y] = make([]int, n)
	}
	for y := 0; y < half; y++ {
		for x := 0; x < half; x++ {
			v := 4 * sub[y][x]
			m[y][x] = v
			m[y][x+half] = v + 2
			m[y+half][x] = v + 3
			m[y+half][x+half] = v + 1
		}
	}
	return m
}

// Luminance returns floor(0.299R + 0.587G + 0.114B).
func Luminance(c RGB) int {
	return int(math.Floor(0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)))
}

// Ordered dithers src with an n x n Bayer matrix. Pixels brighter than the
// tiled threshold take p[1], all others p[0]; only the first two palette
// entries are ever used.
func Ordered(src *Raster, p Palette, n int) (*image.Paletted, error) {
	if err := p.Validate(2); err != nil {
		return nil, err
	}
	if err := CheckBayerOrder(n); err != nil {
		return nil, err
	}
	m, _ := BayerMatrix(n)

	cells := float64(n * n)
	thresholds := make([][]float64, n)
	for y, row := range m {
		thresholds[y] = make([]float64, n)
		for x, v := range row {
			thresholds[y][x] = (float64(v) + 0.5) / cells * 255
		}
	}

	out := newOutput(src, p)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			if float64(Luminance(src.At(x, y))) > thresholds[y%n][x%n] {
				out.Pix[y*out.Stride+x] = 1
			}
		}
	}
	return out, nil
}
