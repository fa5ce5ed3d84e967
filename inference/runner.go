package inference

import (
	"log"

	"github.com/pkg/errors"

	"github.com/voxelmed/go-volfuse/config"
	"github.com/voxelmed/go-volfuse/dataset"
	"github.com/voxelmed/go-volfuse/volume"
)

// PredictAllDirections runs one segmentation pass per canonical axis, in
// fixed x, y, z order, and stacks the three probability volumes along a new
// trailing direction axis ready for fusion.
//
// Each pass gets its own configuration snapshot with only the slice
// direction overridden; the caller's cfg is never modified. The three
// passes run strictly sequentially and any failure aborts the remaining
// directions with no partial result.
//
// The returned label volume is the one from the z-direction pass only; the
// x and y reference labels are discarded. Callers comparing predictions
// against reference labels get a single direction's resampling of them.
func PredictAllDirections(
	seg Segmenter,
	cfg config.Run,
	src dataset.Source,
	loader dataset.SubjectLoader,
	scaleToWorld bool,
) (*volume.Stacked, *volume.Volume, error) {
	if seg == nil {
		return nil, nil, errors.New("inference: nil segmenter")
	}
	if err := src.Validate(); err != nil {
		return nil, nil, err
	}

	var vols [volume.DirectionCount]*volume.Volume
	var lastLabels *volume.Volume

	for idx, dir := range config.Directions() {
		dirCfg := cfg.WithDirection(dir)
		if err := dirCfg.Validate(); err != nil {
			return nil, nil, err
		}

		acc, err := src.Accessor(dirCfg, loader)
		if err != nil {
			return nil, nil, err
		}

		log.Printf("processing direction %d of %d (%s)", idx+1, volume.DirectionCount, dir)
		probs, labels, err := seg.Segment(dirCfg, acc, Options{
			Probs:             true,
			ScaleToWorldShape: scaleToWorld,
		})
		if err != nil {
			return nil, nil, errors.Wrapf(err, "inference: %s-direction pass", dir)
		}
		if probs == nil {
			return nil, nil, errors.Errorf("inference: %s-direction pass returned no probabilities", dir)
		}

		vols[idx] = probs
		lastLabels = labels
	}

	stacked, err := volume.Stack(vols[0], vols[1], vols[2])
	if err != nil {
		return nil, nil, err
	}
	return stacked, lastLabels, nil
}
