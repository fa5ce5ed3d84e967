// Package config - Run configuration for multi-direction segmentation.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Direction is one of the three canonical axes a volume is sliced along.
type Direction string

const (
	// DirectionX slices the volume along the first spatial axis.
	DirectionX Direction = "x"
	// DirectionY slices the volume along the second spatial axis.
	DirectionY Direction = "y"
	// DirectionZ slices the volume along the third spatial axis.
	DirectionZ Direction = "z"
)

// Directions returns the three canonical axes in the fixed fusion order.
func Directions() [3]Direction {
	return [3]Direction{DirectionX, DirectionY, DirectionZ}
}

// Axis returns the spatial axis index (0, 1 or 2) for the direction.
func (d Direction) Axis() (int, error) {
	switch d {
	case DirectionX:
		return 0, nil
	case DirectionY:
		return 1, nil
	case DirectionZ:
		return 2, nil
	}
	return 0, errors.Errorf("config: unknown slice direction %q", d)
}

// Run holds the per-run settings shared by the data accessors and the
// segmentation backend. It is a value type: derive per-direction variants
// with WithDirection instead of mutating a shared instance.
type Run struct {
	// SliceDirection selects the axis the volume is sliced along.
	SliceDirection Direction `json:"slice_direction" yaml:"slice_direction"`
	// NumClasses is the number of output classes per voxel.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
	// WorldShape is the original (pre-inference) spatial shape used when
	// scaling probabilities back to world space.
	WorldShape [3]int `json:"world_shape" yaml:"world_shape"`
	// ScaleToWorldShape resamples probability output back to WorldShape.
	ScaleToWorldShape bool `json:"scale_to_world_shape" yaml:"scale_to_world_shape"`
	// InputName and OutputName are the model graph tensor names.
	InputName  string `json:"input_name" yaml:"input_name"`
	OutputName string `json:"output_name" yaml:"output_name"`
}

// Load reads a Run configuration from a YAML file.
func Load(path string) (*Run, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading %s", path)
	}
	var run Run
	if err := yaml.Unmarshal(raw, &run); err != nil {
		return nil, errors.Wrapf(err, "config: parsing %s", path)
	}
	if err := run.Validate(); err != nil {
		return nil, err
	}
	return &run, nil
}

// Validate checks the configuration for values no run can proceed with.
func (r Run) Validate() error {
	if _, err := r.SliceDirection.Axis(); err != nil {
		return err
	}
	if r.NumClasses <= 0 {
		return errors.Errorf("config: num_classes must be positive, got %d", r.NumClasses)
	}
	if r.ScaleToWorldShape {
		for _, dim := range r.WorldShape {
			if dim <= 0 {
				return errors.Errorf("config: world_shape %v invalid with scale_to_world_shape", r.WorldShape)
			}
		}
	}
	return nil
}

// WithDirection returns a copy of the configuration with only the slice
// direction overridden. The receiver is never modified.
func (r Run) WithDirection(d Direction) Run {
	r.SliceDirection = d
	return r
}
