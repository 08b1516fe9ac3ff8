package imageprocessing

import (
	"image"

	"github.com/rmitchellscott/ditherbox/internal/dither"
)

// Algorithm names accepted by DitherImage
const (
	AlgorithmFloydSteinberg = "FloydSteinberg"
	AlgorithmAtkinson       = "Atkinson"
	AlgorithmSierra         = "Sierra"
	AlgorithmBayer          = "Bayer"
)

// DefaultAlgorithm is used for empty and unrecognized names
const DefaultAlgorithm = AlgorithmFloydSteinberg

// Algorithms returns the supported algorithm names
func Algorithms() []string {
	return []string{AlgorithmFloydSteinberg, AlgorithmAtkinson, AlgorithmSierra, AlgorithmBayer}
}

// ParseAlgorithm maps a requested name to a supported algorithm. Matching is
// exact; anything unknown falls back to Floyd-Steinberg rather than failing.
func ParseAlgorithm(name string) string {
	switch name {
	case AlgorithmBayer, AlgorithmAtkinson, AlgorithmSierra:
		return name
	default:
		return DefaultAlgorithm
	}
}

// Dither runs the named algorithm over src
func Dither(src *dither.Raster, algorithm string, opts Options) (*image.Paletted, error) {
	opts = opts.withDefaults()

	switch ParseAlgorithm(algorithm) {
	case AlgorithmBayer:
		return dither.Ordered(src, opts.Palette, opts.BayerOrder)
	case AlgorithmAtkinson:
		return dither.ErrorDiffusion(src, opts.Palette, dither.Atkinson)
	case AlgorithmSierra:
		return dither.ErrorDiffusion(src, opts.Palette, dither.Sierra)
	default:
		return dither.ErrorDiffusion(src, opts.Palette, dither.FloydSteinberg)
	}
}
