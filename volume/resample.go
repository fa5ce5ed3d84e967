package volume

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/voxelmed/go-volfuse/config"
)

// Resample scales a float32 probability volume to the target spatial shape
// with trilinear interpolation, preserving the class axis. This is the
// world-shape scaling step that maps model-resolution output back to the
// original scan resolution.
func Resample(v *Volume, target [3]int) (*Volume, error) {
	if v == nil {
		return nil, errors.New("volume: resample of nil volume")
	}
	if dt := v.t.Dtype(); dt != tensor.Float32 {
		return nil, errors.Errorf("volume: resample needs a float32 volume, got %v", dt)
	}
	for _, dim := range target {
		if dim <= 0 {
			return nil, errors.Errorf("volume: invalid resample target %v", target)
		}
	}
	x, y, z, c := v.Shape()
	if target == [3]int{x, y, z} {
		return v.Clone(), nil
	}

	src := v.t.Data().([]float32)
	tx, ty, tz := target[0], target[1], target[2]
	out := make([]float32, tx*ty*tz*c)

	// Align-corners mapping; a singleton output axis samples the origin.
	scale := func(outDim, srcDim int) float32 {
		if outDim <= 1 {
			return 0
		}
		return float32(srcDim-1) / float32(outDim-1)
	}
	sx, sy, sz := scale(tx, x), scale(ty, y), scale(tz, z)

	at := func(xi, yi, zi, ci int) float32 {
		return src[((xi*y+yi)*z+zi)*c+ci]
	}

	for ox := 0; ox < tx; ox++ {
		fx := float32(ox) * sx
		x0 := int(math32.Floor(fx))
		x1 := min(x0+1, x-1)
		dx := fx - float32(x0)
		for oy := 0; oy < ty; oy++ {
			fy := float32(oy) * sy
			y0 := int(math32.Floor(fy))
			y1 := min(y0+1, y-1)
			dy := fy - float32(y0)
			for oz := 0; oz < tz; oz++ {
				fz := float32(oz) * sz
				z0 := int(math32.Floor(fz))
				z1 := min(z0+1, z-1)
				dz := fz - float32(z0)
				for ci := 0; ci < c; ci++ {
					c00 := at(x0, y0, z0, ci)*(1-dx) + at(x1, y0, z0, ci)*dx
					c01 := at(x0, y0, z1, ci)*(1-dx) + at(x1, y0, z1, ci)*dx
					c10 := at(x0, y1, z0, ci)*(1-dx) + at(x1, y1, z0, ci)*dx
					c11 := at(x0, y1, z1, ci)*(1-dx) + at(x1, y1, z1, ci)*dx
					c0 := c00*(1-dy) + c10*dy
					c1 := c01*(1-dy) + c11*dy
					out[((ox*ty+oy)*tz+oz)*c+ci] = c0*(1-dz) + c1*dz
				}
			}
		}
	}
	return New(tx, ty, tz, c, out)
}

// ResampleToWorld applies Resample with the configuration's world shape when
// scaling is enabled, and returns the volume untouched otherwise.
func ResampleToWorld(v *Volume, cfg config.Run) (*Volume, error) {
	if !cfg.ScaleToWorldShape {
		return v, nil
	}
	return Resample(v, cfg.WorldShape)
}
