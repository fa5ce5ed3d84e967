// Package inference - per-axis segmentation passes and their fusion-ready
// three-direction runner.
package inference

import (
	"github.com/voxelmed/go-volfuse/config"
	"github.com/voxelmed/go-volfuse/dataset"
	"github.com/voxelmed/go-volfuse/volume"
)

// Options controls a single segmentation pass.
type Options struct {
	// Probs requests per-voxel class probabilities instead of hard labels.
	Probs bool
	// ScaleToWorldShape resamples the output back to the original
	// (pre-inference) volume resolution.
	ScaleToWorldShape bool
}

// Segmenter runs one inference pass over a volume, slicing it along the
// direction set in the configuration. It owns the model handle; the runner
// only decides what to feed it. Implementations return the per-voxel class
// probability volume and the reference label volume travelling with the
// input data.
type Segmenter interface {
	Segment(cfg config.Run, acc dataset.Accessor, opts Options) (probs, labels *volume.Volume, err error)
}
