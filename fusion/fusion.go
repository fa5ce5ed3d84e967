// Package fusion - collapses the direction axis of a stacked probability
// volume into a single prediction.
//
// Two reducers are provided. Mean keeps the continuous confidences and is
// the recommended default: majority voting throws the probability
// information away and measures slightly worse in Dice on tract
// segmentation. Both treat the threshold as an inclusive lower bound for
// the positive class.
package fusion

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/voxelmed/go-volfuse/volume"
)

// Mean collapses the direction axis by arithmetic mean. With probs true the
// continuous float32 mean is returned unchanged; with probs false every mean
// >= threshold becomes 1 and everything below becomes 0, stored as int16.
func Mean(threshold float32, stacked *volume.Stacked, probs bool) (*volume.Volume, error) {
	if stacked == nil {
		return nil, errors.New("fusion: nil stacked volume")
	}
	sum, err := stacked.Dense().Sum(4)
	if err != nil {
		return nil, errors.Wrap(err, "fusion: reducing direction axis")
	}
	mean, err := sum.DivScalar(float32(volume.DirectionCount), true)
	if err != nil {
		return nil, errors.Wrap(err, "fusion: averaging direction axis")
	}
	if probs {
		return volume.FromDense(mean)
	}

	x, y, z, c := stacked.Shape()
	values := mean.Data().([]float32)
	labels := make([]int16, len(values))
	for i, v := range values {
		if v >= threshold {
			labels[i] = 1
		}
	}
	return volume.NewLabels(x, y, z, c, labels)
}

// Majority collapses the direction axis by 2-of-3 voting: each direction is
// binarized against the threshold and a voxel-class is positive when at
// least two directions agree. The input stack is never modified. The probs
// flag is accepted for call symmetry with Mean and ignored; the result is
// always a binary int16 volume.
func Majority(threshold float32, stacked *volume.Stacked, probs bool) (*volume.Volume, error) {
	_ = probs
	if stacked == nil {
		return nil, errors.New("fusion: nil stacked volume")
	}
	x, y, z, c := stacked.Shape()

	// The direction axis is the trailing one, so the three per-direction
	// values of each voxel-class sit contiguously in the backing slice.
	values := stacked.Dense().Data().([]float32)
	labels := make([]int16, len(values)/volume.DirectionCount)
	for i := range labels {
		votes := 0
		for d := 0; d < volume.DirectionCount; d++ {
			if values[i*volume.DirectionCount+d] >= threshold {
				votes++
			}
		}
		if votes >= 2 {
			labels[i] = 1
		}
	}
	return volume.NewLabels(x, y, z, c, labels)
}

// MeanDense is a convenience for callers holding a raw 5D tensor rather
// than a Stacked volume.
func MeanDense(threshold float32, d *tensor.Dense, probs bool) (*volume.Volume, error) {
	stacked, err := volume.StackedFromDense(d)
	if err != nil {
		return nil, err
	}
	return Mean(threshold, stacked, probs)
}
