package imageprocessing

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/rmitchellscott/ditherbox/internal/dither"
)

// ImageTooLargeError is returned when an image has more pixels than allowed
type ImageTooLargeError struct {
	Width, Height int
	MaxPixels     int
}

func (e *ImageTooLargeError) Error() string {
	return fmt.Sprintf("image is %dx%d, more than the %d pixel limit", e.Width, e.Height, e.MaxPixels)
}

// Options allows customization of the dithering pipeline
type Options struct {
	// Palette defaults to dither.DefaultPalette when empty
	Palette dither.Palette
	// BayerOrder defaults to dither.DefaultBayerOrder when zero
	BayerOrder int
	// MaxPixels caps width*height before full decoding; zero means no cap
	MaxPixels int
}

// DefaultOptions returns the black and cream palette with an 8x8 Bayer matrix
func DefaultOptions() Options {
	return Options{
		Palette:    dither.DefaultPalette(),
		BayerOrder: dither.DefaultBayerOrder,
	}
}

func (o Options) withDefaults() Options {
	if len(o.Palette) == 0 {
		o.Palette = dither.DefaultPalette()
	}
	if o.BayerOrder == 0 {
		o.BayerOrder = dither.DefaultBayerOrder
	}
	return o
}

// DecodeImage decodes any registered raster format. Failures are reported as
// *dither.DecodeError. When maxPixels is positive the header is checked first
// and larger images fail with *ImageTooLargeError without being decoded.
func DecodeImage(data []byte, maxPixels int) (image.Image, string, error) {
	if maxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, "", &dither.DecodeError{Err: err}
		}
		if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
			return nil, "", &ImageTooLargeError{Width: cfg.Width, Height: cfg.Height, MaxPixels: maxPixels}
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &dither.DecodeError{Err: err}
	}
	if img.Bounds().Empty() {
		return nil, "", &dither.DecodeError{Err: fmt.Errorf("%s image has no pixels", format)}
	}
	return img, format, nil
}

// DitherImage decodes data, dithers it with the named algorithm and returns
// the result as PNG. Unknown algorithm names fall back to Floyd-Steinberg.
func DitherImage(data []byte, algorithm string, opts Options) ([]byte, error) {
	img, _, err := DecodeImage(data, opts.MaxPixels)
	if err != nil {
		return nil, err
	}

	dithered, err := Dither(dither.RasterFromImage(img), algorithm, opts)
	if err != nil {
		return nil, err
	}

	out, err := EncodePalettedPNG(dithered)
	if err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return out, nil
}
