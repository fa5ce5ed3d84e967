// Package dataset - resolves the input volume an inference pass runs on.
//
// Input comes from exactly one of two places: a subject identifier resolved
// through a caller-supplied loader, or an already in-memory array. Source is
// a tagged union built through BySubject or ByData, so neither-nor-both
// states cannot be expressed through the constructors and a zero value fails
// validation instead of silently picking a path.
package dataset

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/voxelmed/go-volfuse/config"
	"github.com/voxelmed/go-volfuse/volume"
)

// SubjectLoader resolves a subject identifier to its input volume and
// reference labels. File-format handling lives behind this interface; the
// module never parses volumetric files itself.
type SubjectLoader interface {
	LoadSubject(id string) (data, labels *volume.Volume, err error)
}

// Accessor hands one inference pass its input volume and the reference
// labels that travel with it.
type Accessor interface {
	// Describe names the data source for progress notices and errors.
	Describe() string
	// Load returns the input volume and its reference label volume.
	Load() (data, labels *volume.Volume, err error)
}

// Source selects exactly one way of resolving input data.
type Source struct {
	subject   string
	data      *volume.Volume
	bySubject bool
}

// BySubject resolves input through a SubjectLoader at load time.
func BySubject(id string) Source {
	return Source{subject: id, bySubject: true}
}

// ByData uses an already in-memory volume.
func ByData(v *volume.Volume) Source {
	return Source{data: v}
}

// Validate rejects sources that name no usable input.
func (s Source) Validate() error {
	if s.bySubject && s.subject == "" {
		return errors.New("dataset: empty subject identifier")
	}
	if !s.bySubject && s.data == nil {
		return errors.New("dataset: source names neither a subject nor in-memory data")
	}
	return nil
}

// Accessor binds the source to a per-direction configuration. Subject
// sources need a loader; data sources ignore it.
func (s Source) Accessor(cfg config.Run, loader SubjectLoader) (Accessor, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.bySubject {
		if loader == nil {
			return nil, errors.Errorf("dataset: subject %q requires a loader", s.subject)
		}
		return &subjectAccessor{cfg: cfg, subject: s.subject, loader: loader}, nil
	}
	return &arrayAccessor{cfg: cfg, data: s.data}, nil
}

type subjectAccessor struct {
	cfg     config.Run
	subject string
	loader  SubjectLoader
}

func (a *subjectAccessor) Describe() string {
	return fmt.Sprintf("subject %s (%s slices)", a.subject, a.cfg.SliceDirection)
}

func (a *subjectAccessor) Load() (*volume.Volume, *volume.Volume, error) {
	data, labels, err := a.loader.LoadSubject(a.subject)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dataset: loading subject %s", a.subject)
	}
	if data == nil {
		return nil, nil, errors.Errorf("dataset: loader returned no data for subject %s", a.subject)
	}
	if labels == nil {
		labels, err = emptyLabels(data)
		if err != nil {
			return nil, nil, err
		}
	}
	return data, labels, nil
}

type arrayAccessor struct {
	cfg  config.Run
	data *volume.Volume
}

func (a *arrayAccessor) Describe() string {
	x, y, z, c := a.data.Shape()
	return fmt.Sprintf("in-memory volume (%d, %d, %d, %d) (%s slices)", x, y, z, c, a.cfg.SliceDirection)
}

// Load returns the supplied volume with all-zero reference labels; raw data
// passed directly has no ground truth attached.
func (a *arrayAccessor) Load() (*volume.Volume, *volume.Volume, error) {
	labels, err := emptyLabels(a.data)
	if err != nil {
		return nil, nil, err
	}
	return a.data, labels, nil
}

func emptyLabels(data *volume.Volume) (*volume.Volume, error) {
	x, y, z, c := data.Shape()
	return volume.New(x, y, z, c, nil)
}
