package dither

import (
	"fmt"

	ditherlib "github.com/makeworld-the-better-one/dither/v2"
)

// Offset is one forward neighbor of a diffusion kernel and the share of the
// quantization error it receives.
type Offset struct {
	DX, DY int
	Weight float32
}

// Kernel lists diffusion offsets in the order they are applied. Weights do
// not have to sum to 1.
type Kernel []Offset

// Preset kernels, taken from the dither library matrices.
var (
	FloydSteinberg = KernelFromMatrix(ditherlib.FloydSteinberg)
	Atkinson       = KernelFromMatrix(ditherlib.Atkinson)
	Sierra         = KernelFromMatrix(ditherlib.Sierra)
)

// KernelFromMatrix converts a diffusion matrix into offsets. The current
// pixel sits on the top row just left of the first non-zero weight; zero
// weights are skipped and offsets come out in row-major order.
func KernelFromMatrix(m ditherlib.ErrorDiffusionMatrix) Kernel {
	if len(m) == 0 {
		return nil
	}
	cur := 0
	for i, w := range m[0] {
		if w != 0 {
			cur = i - 1
			break
		}
	}

	var k Kernel
	for dy, row := range m {
		for col, w := range row {
			if w == 0 {
				continue
			}
			k = append(k, Offset{DX: col - cur, DY: dy, Weight: w})
		}
	}
	return k
}

// Sum returns the total weight, i.e. the fraction of error that is kept.
func (k Kernel) Sum() float32 {
	var s float32
	for _, o := range k {
		s += o.Weight
	}
	return s
}

// Validate rejects offsets pointing at pixels the raster scan has already
// visited.
func (k Kernel) Validate() error {
	if len(k) == 0 {
		return &ConfigurationError{Field: "kernel", Reason: "no offsets"}
	}
	for _, o := range k {
		if o.DY < 0 || (o.DY == 0 && o.DX <= 0) {
			return &ConfigurationError{
				Field:  "kernel",
				Reason: fmt.Sprintf("offset (%d,%d) is not ahead of the current pixel", o.DX, o.DY),
			}
		}
	}
	return nil
}
