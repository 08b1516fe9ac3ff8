package dither

import (
	"fmt"
	"image/color"
	"regexp"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// MaxPaletteSize is the largest palette an output buffer can index.
const MaxPaletteSize = 256

var hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// RGB is an opaque 8-bit color.
type RGB struct {
	R, G, B uint8
}

// RGBA implements color.Color.
func (c RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

// Hex formats the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Palette is an ordered list of colors. For ordered dithering index 0 is the
// dark color and index 1 the light one.
type Palette []RGB

// DefaultPalette returns the black and cream palette.
func DefaultPalette() Palette {
	return Palette{
		{R: 0, G: 0, B: 0},
		{R: 254, G: 241, B: 220},
	}
}

// Nearest returns the palette entry closest to (r, g, b) by squared
// Euclidean distance, and its index. Ties resolve to the lowest index.
// The input is used as-is; values outside [0,255] are not clamped.
func (p Palette) Nearest(r, g, b float32) (RGB, int) {
	best := 0
	var bestDist float32
	for i, c := range p {
		dr := r - float32(c.R)
		dg := g - float32(c.G)
		db := b - float32(c.B)
		// Explicit conversions keep each product rounded to float32 (no FMA).
		d := float32(dr*dr) + float32(dg*dg) + float32(db*db)
		if i == 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return p[best], best
}

// Contains reports whether c is one of the palette entries.
func (p Palette) Contains(c RGB) bool {
	for _, e := range p {
		if e == c {
			return true
		}
	}
	return false
}

// ColorPalette converts p for use with image.Paletted, keeping the order.
func (p Palette) ColorPalette() color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
	}
	return out
}

// HexStrings formats every entry as #rrggbb.
func (p Palette) HexStrings() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = c.Hex()
	}
	return out
}

// Validate checks that p has at least min entries and fits an 8-bit index.
func (p Palette) Validate(min int) error {
	if len(p) < min {
		return &ConfigurationError{
			Field:  "palette",
			Reason: fmt.Sprintf("need at least %d colors, got %d", min, len(p)),
		}
	}
	if len(p) > MaxPaletteSize {
		return &ConfigurationError{
			Field:  "palette",
			Reason: fmt.Sprintf("at most %d colors are supported, got %d", MaxPaletteSize, len(p)),
		}
	}
	return nil
}

// ParseHexPalette parses hex colors such as "#000000" or "fef1dc".
func ParseHexPalette(colors []string) (Palette, error) {
	p := make(Palette, 0, len(colors))
	for _, s := range colors {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.HasPrefix(s, "#") {
			s = "#" + s
		}
		if !hexColorPattern.MatchString(s) {
			return nil, &ConfigurationError{Field: "palette", Reason: fmt.Sprintf("bad color %q", s)}
		}
		c, err := colorful.Hex(s)
		if err != nil {
			return nil, &ConfigurationError{Field: "palette", Reason: fmt.Sprintf("bad color %q", s)}
		}
		r, g, b := c.RGB255()
		p = append(p, RGB{R: r, G: g, B: b})
	}
	if err := p.Validate(1); err != nil {
		return nil, err
	}
	return p, nil
}

// ParsePalette parses a comma-separated list of hex colors.
func ParsePalette(s string) (Palette, error) {
	return ParseHexPalette(strings.Split(s, ","))
}
