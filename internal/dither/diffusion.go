package dither

import "image"

// ErrorDiffusion dithers src to p, spreading each pixel's quantization error
// to its forward neighbors according to k. Shares that fall outside the
// raster are lost.
func ErrorDiffusion(src *Raster, p Palette, k Kernel) (*image.Paletted, error) {
	if err := p.Validate(1); err != nil {
		return nil, err
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}

	w, h := src.Width, src.Height
	acc := make([]float32, len(src.Pix))
	for i, v := range src.Pix {
		acc[i] = float32(v)
	}
	out := newOutput(src, p)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := 3 * (y*w + x)
			r, g, b := acc[i], acc[i+1], acc[i+2]

			c, idx := p.Nearest(r, g, b)
			out.Pix[y*out.Stride+x] = uint8(idx)

			er := r - float32(c.R)
			eg := g - float32(c.G)
			eb := b - float32(c.B)

			for _, o := range k {
				tx, ty := x+o.DX, y+o.DY
				if tx < 0 || tx >= w || ty >= h {
					continue
				}
				j := 3 * (ty*w + tx)
				// Rounded products so results match on FMA hardware.
				acc[j] += float32(er * o.Weight)
				acc[j+1] += float32(eg * o.Weight)
				acc[j+2] += float32(eb * o.Weight)
			}
		}
	}
	return out, nil
}
