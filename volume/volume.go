// Package volume - 4D probability volumes and 5D direction stacks.
//
// A Volume is a (x, y, z, class) array of per-voxel class confidences, one
// per inference pass. A Stacked volume appends a trailing direction axis of
// size 3 holding the x, y and z passes of the same subject. Both wrap a
// row-major tensor.Dense so fusion can reduce over the direction axis with
// tensor ops instead of hand-rolled strides.
package volume

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/voxelmed/go-volfuse/config"
)

// DirectionCount is the number of per-axis passes a Stacked volume holds.
const DirectionCount = 3

// Volume is a 4D (x, y, z, class) array. Probability volumes carry float32
// data; fused binary predictions carry int16.
type Volume struct {
	t *tensor.Dense
}

// New creates a float32 probability volume. A nil backing allocates zeroes;
// otherwise the backing length must match the shape.
func New(x, y, z, c int, backing []float32) (*Volume, error) {
	if x <= 0 || y <= 0 || z <= 0 || c <= 0 {
		return nil, errors.Errorf("volume: invalid shape (%d, %d, %d, %d)", x, y, z, c)
	}
	if backing == nil {
		backing = make([]float32, x*y*z*c)
	}
	if len(backing) != x*y*z*c {
		return nil, errors.Errorf("volume: backing has %d values, shape (%d, %d, %d, %d) needs %d",
			len(backing), x, y, z, c, x*y*z*c)
	}
	d := tensor.New(tensor.WithShape(x, y, z, c), tensor.Of(tensor.Float32), tensor.WithBacking(backing))
	return &Volume{t: d}, nil
}

// NewLabels creates an int16 label volume, the dtype binary fused
// predictions are stored as.
func NewLabels(x, y, z, c int, backing []int16) (*Volume, error) {
	if x <= 0 || y <= 0 || z <= 0 || c <= 0 {
		return nil, errors.Errorf("volume: invalid shape (%d, %d, %d, %d)", x, y, z, c)
	}
	if backing == nil {
		backing = make([]int16, x*y*z*c)
	}
	if len(backing) != x*y*z*c {
		return nil, errors.Errorf("volume: backing has %d values, shape (%d, %d, %d, %d) needs %d",
			len(backing), x, y, z, c, x*y*z*c)
	}
	d := tensor.New(tensor.WithShape(x, y, z, c), tensor.Of(tensor.Int16), tensor.WithBacking(backing))
	return &Volume{t: d}, nil
}

// FromDense wraps an existing 4D Dense. The tensor must own its full
// backing: value access and slicing read the backing as contiguous
// row-major data, which a view sliced from a larger tensor breaks.
func FromDense(d *tensor.Dense) (*Volume, error) {
	if d == nil {
		return nil, errors.New("volume: nil tensor")
	}
	if d.Dims() != 4 {
		return nil, errors.Errorf("volume: expected 4 dims, got shape %v", d.Shape())
	}
	if err := requireContiguous(d); err != nil {
		return nil, err
	}
	return &Volume{t: d}, nil
}

func requireContiguous(d *tensor.Dense) error {
	if d.IsView() || d.DataSize() != d.Shape().TotalSize() {
		return errors.Errorf("volume: tensor views are not supported, need a contiguous dense tensor of shape %v", d.Shape())
	}
	return nil
}

// Dense exposes the underlying tensor.
func (v *Volume) Dense() *tensor.Dense { return v.t }

// Shape returns the (x, y, z, class) dimensions.
func (v *Volume) Shape() (x, y, z, c int) {
	s := v.t.Shape()
	return s[0], s[1], s[2], s[3]
}

// SameShape reports whether both volumes agree on all four dimensions.
func (v *Volume) SameShape(o *Volume) bool {
	return v.t.Shape().Eq(o.t.Shape())
}

// At returns the float32 value at (x, y, z, c). Valid for probability
// volumes only.
func (v *Volume) At(x, y, z, c int) float32 {
	_, ys, zs, cs := v.Shape()
	return v.t.Data().([]float32)[((x*ys+y)*zs+z)*cs+c]
}

// LabelAt returns the int16 value at (x, y, z, c). Valid for label volumes.
func (v *Volume) LabelAt(x, y, z, c int) int16 {
	_, ys, zs, cs := v.Shape()
	return v.t.Data().([]int16)[((x*ys+y)*zs+z)*cs+c]
}

// Clone deep-copies the volume.
func (v *Volume) Clone() *Volume {
	return &Volume{t: v.t.Clone().(*tensor.Dense)}
}

// SliceCount returns how many slices the volume yields along a direction.
func (v *Volume) SliceCount(dir config.Direction) (int, error) {
	axis, err := dir.Axis()
	if err != nil {
		return 0, err
	}
	return v.t.Shape()[axis], nil
}

// SlicePlane returns the (height, width) of slices taken along a direction.
// Slicing x yields (y, z) planes, y yields (x, z), z yields (x, y).
func (v *Volume) SlicePlane(dir config.Direction) (h, w int, err error) {
	x, y, z, _ := v.Shape()
	switch dir {
	case config.DirectionX:
		return y, z, nil
	case config.DirectionY:
		return x, z, nil
	case config.DirectionZ:
		return x, y, nil
	}
	return 0, 0, errors.Errorf("volume: unknown slice direction %q", dir)
}

// SliceAt extracts slice i perpendicular to the direction as a CHW-packed
// float32 buffer, the layout segmentation models take their input in.
func (v *Volume) SliceAt(dir config.Direction, i int) ([]float32, error) {
	n, err := v.SliceCount(dir)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= n {
		return nil, errors.Errorf("volume: slice %d out of range [0, %d) along %s", i, n, dir)
	}
	h, w, _ := v.SlicePlane(dir)
	_, ys, zs, cs := v.Shape()
	data := v.t.Data().([]float32)
	out := make([]float32, cs*h*w)
	for c := 0; c < cs; c++ {
		for hh := 0; hh < h; hh++ {
			for ww := 0; ww < w; ww++ {
				var src int
				switch dir {
				case config.DirectionX:
					src = ((i*ys+hh)*zs+ww)*cs + c
				case config.DirectionY:
					src = ((hh*ys+i)*zs+ww)*cs + c
				default: // z
					src = ((hh*ys+ww)*zs+i)*cs + c
				}
				out[(c*h+hh)*w+ww] = data[src]
			}
		}
	}
	return out, nil
}

// WriteSlice stores a CHW-packed class-probability slice back at position i
// along the direction, the inverse of SliceAt.
func (v *Volume) WriteSlice(dir config.Direction, i int, chw []float32) error {
	n, err := v.SliceCount(dir)
	if err != nil {
		return err
	}
	if i < 0 || i >= n {
		return errors.Errorf("volume: slice %d out of range [0, %d) along %s", i, n, dir)
	}
	h, w, _ := v.SlicePlane(dir)
	_, ys, zs, cs := v.Shape()
	if len(chw) != cs*h*w {
		return errors.Errorf("volume: slice buffer has %d values, plane (%d, %d, %d) needs %d",
			len(chw), cs, h, w, cs*h*w)
	}
	data := v.t.Data().([]float32)
	for c := 0; c < cs; c++ {
		for hh := 0; hh < h; hh++ {
			for ww := 0; ww < w; ww++ {
				var dst int
				switch dir {
				case config.DirectionX:
					dst = ((i*ys+hh)*zs+ww)*cs + c
				case config.DirectionY:
					dst = ((hh*ys+i)*zs+ww)*cs + c
				default: // z
					dst = ((hh*ys+ww)*zs+i)*cs + c
				}
				data[dst] = chw[(c*h+hh)*w+ww]
			}
		}
	}
	return nil
}

// Stacked is a 5D (x, y, z, class, direction) array holding the three
// per-axis probability volumes in fixed x, y, z order.
type Stacked struct {
	t *tensor.Dense
}

// Stack concatenates the three per-direction probability volumes along a new
// trailing direction axis. All three must share the full 4D shape.
func Stack(vx, vy, vz *Volume) (*Stacked, error) {
	if vx == nil || vy == nil || vz == nil {
		return nil, errors.New("volume: stack needs all three direction volumes")
	}
	if !vx.SameShape(vy) || !vx.SameShape(vz) {
		return nil, errors.Errorf("volume: direction volumes differ in shape: x=%v y=%v z=%v",
			vx.t.Shape(), vy.t.Shape(), vz.t.Shape())
	}
	x, y, z, c := vx.Shape()

	parts := make([]*tensor.Dense, 0, DirectionCount)
	for _, v := range []*Volume{vx, vy, vz} {
		d := v.t.Clone().(*tensor.Dense)
		if err := d.Reshape(x, y, z, c, 1); err != nil {
			return nil, errors.Wrap(err, "volume: appending direction axis")
		}
		parts = append(parts, d)
	}
	combined, err := parts[0].Concat(4, parts[1], parts[2])
	if err != nil {
		return nil, errors.Wrap(err, "volume: concatenating direction volumes")
	}
	return &Stacked{t: combined}, nil
}

// StackedFromDense wraps an existing 5D Dense whose trailing axis has size
// 3. As with FromDense, the tensor must be contiguous and own its backing.
func StackedFromDense(d *tensor.Dense) (*Stacked, error) {
	if d == nil {
		return nil, errors.New("volume: nil tensor")
	}
	s := d.Shape()
	if len(s) != 5 || s[4] != DirectionCount {
		return nil, errors.Errorf("volume: expected shape (x, y, z, class, %d), got %v", DirectionCount, s)
	}
	if err := requireContiguous(d); err != nil {
		return nil, err
	}
	return &Stacked{t: d}, nil
}

// Dense exposes the underlying tensor.
func (s *Stacked) Dense() *tensor.Dense { return s.t }

// Shape returns the (x, y, z, class) dimensions; the direction axis is
// always DirectionCount.
func (s *Stacked) Shape() (x, y, z, c int) {
	sh := s.t.Shape()
	return sh[0], sh[1], sh[2], sh[3]
}

// At returns the probability at (x, y, z, c) for direction d (0=x, 1=y, 2=z).
func (s *Stacked) At(x, y, z, c, d int) float32 {
	sh := s.t.Shape()
	return s.t.Data().([]float32)[(((x*sh[1]+y)*sh[2]+z)*sh[3]+c)*sh[4]+d]
}
