package inference

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/voxelmed/go-volfuse/config"
	"github.com/voxelmed/go-volfuse/dataset"
	"github.com/voxelmed/go-volfuse/volume"
)

const (
	defaultInputName  = "input"
	defaultOutputName = "output"
)

// ONNXSegmenter runs a 2D segmentation network under onnxruntime, one slice
// at a time along the configured axis, and reassembles the per-slice class
// probabilities into a full volume. The network is expected to take
// (1, channels, h, w) float32 input and emit (1, classes, h, w) logits.
type ONNXSegmenter struct {
	session   *ort.DynamicAdvancedSession
	modelPath string
}

// NewONNXSegmenter loads the model at modelPath into a dynamic-shape
// session. The onnxruntime shared library path must be set by the caller
// before the first segmenter is created (ort.SetSharedLibraryPath).
func NewONNXSegmenter(modelPath string, cfg config.Run) (*ONNXSegmenter, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "inference: initializing onnxruntime environment")
		}
	}

	inputName := cfg.InputName
	if inputName == "" {
		inputName = defaultInputName
	}
	outputName := cfg.OutputName
	if outputName == "" {
		outputName = defaultOutputName
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "inference: creating session options")
	}
	defer opts.Destroy()
	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		return nil, errors.Wrap(err, "inference: setting optimization level")
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{inputName}, []string{outputName}, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "inference: creating session for %s", modelPath)
	}

	return &ONNXSegmenter{session: session, modelPath: modelPath}, nil
}

// Segment implements Segmenter. The input volume's class axis is fed to the
// network as channels; the output volume carries cfg.NumClasses classes.
func (s *ONNXSegmenter) Segment(cfg config.Run, acc dataset.Accessor, opts Options) (*volume.Volume, *volume.Volume, error) {
	if s.session == nil {
		return nil, nil, errors.New("inference: segmenter is closed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	data, labels, err := acc.Load()
	if err != nil {
		return nil, nil, err
	}

	dir := cfg.SliceDirection
	n, err := data.SliceCount(dir)
	if err != nil {
		return nil, nil, err
	}
	h, w, err := data.SlicePlane(dir)
	if err != nil {
		return nil, nil, err
	}
	x, y, z, channels := data.Shape()

	out, err := volume.New(x, y, z, cfg.NumClasses, nil)
	if err != nil {
		return nil, nil, err
	}

	inTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(channels), int64(h), int64(w)))
	if err != nil {
		return nil, nil, errors.Wrap(err, "inference: creating input tensor")
	}
	defer inTensor.Destroy()
	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.NumClasses), int64(h), int64(w)))
	if err != nil {
		return nil, nil, errors.Wrap(err, "inference: creating output tensor")
	}
	defer outTensor.Destroy()

	scores := make([]float32, cfg.NumClasses*h*w)
	for i := 0; i < n; i++ {
		chw, err := data.SliceAt(dir, i)
		if err != nil {
			return nil, nil, err
		}
		copy(inTensor.GetData(), chw)

		if err := s.session.Run([]ort.Value{inTensor}, []ort.Value{outTensor}); err != nil {
			return nil, nil, errors.Wrapf(err, "inference: running %s-slice %d of %d", dir, i+1, n)
		}

		logits := outTensor.GetData()
		for j, v := range logits {
			if opts.Probs {
				scores[j] = sigmoid(v)
			} else if v >= 0 {
				scores[j] = 1
			} else {
				scores[j] = 0
			}
		}
		if err := out.WriteSlice(dir, i, scores); err != nil {
			return nil, nil, err
		}
	}

	if opts.ScaleToWorldShape {
		if out, err = volume.Resample(out, cfg.WorldShape); err != nil {
			return nil, nil, errors.Wrap(err, "inference: scaling probabilities to world shape")
		}
		if labels, err = volume.Resample(labels, cfg.WorldShape); err != nil {
			return nil, nil, errors.Wrap(err, "inference: scaling labels to world shape")
		}
	}
	return out, labels, nil
}

// Close releases the onnxruntime session. The shared environment is left
// initialized for other sessions in the process.
func (s *ONNXSegmenter) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}

func sigmoid(v float32) float32 {
	return 1 / (1 + math32.Exp(-v))
}
