package dataset

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelmed/go-volfuse/config"
	"github.com/voxelmed/go-volfuse/volume"
)

type loaderStub struct {
	data   *volume.Volume
	labels *volume.Volume
	err    error
}

func (l *loaderStub) LoadSubject(id string) (*volume.Volume, *volume.Volume, error) {
	return l.data, l.labels, l.err
}

func testVolume(t *testing.T) *volume.Volume {
	t.Helper()
	v, err := volume.New(2, 2, 2, 1, nil)
	require.NoError(t, err)
	return v
}

func testRun() config.Run {
	return config.Run{SliceDirection: config.DirectionX, NumClasses: 1}
}

func TestSourceValidate(t *testing.T) {
	assert.Error(t, Source{}.Validate(), "the zero source names no input")
	assert.Error(t, BySubject("").Validate(), "an empty subject identifier is unusable")
	assert.NoError(t, BySubject("sub-01").Validate())
	assert.NoError(t, ByData(testVolume(t)).Validate())
	assert.Error(t, ByData(nil).Validate())
}

func TestSubjectAccessor(t *testing.T) {
	data := testVolume(t)
	loader := &loaderStub{data: data}

	acc, err := BySubject("sub-01").Accessor(testRun(), loader)
	require.NoError(t, err)
	assert.Contains(t, acc.Describe(), "sub-01")

	got, labels, err := acc.Load()
	require.NoError(t, err)
	assert.Same(t, data, got)
	require.NotNil(t, labels, "a loader returning no labels still yields an empty label volume")
	assert.True(t, data.SameShape(labels))
}

func TestSubjectAccessorRequiresLoader(t *testing.T) {
	_, err := BySubject("sub-01").Accessor(testRun(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loader")
}

func TestSubjectAccessorPropagatesLoaderFailure(t *testing.T) {
	loader := &loaderStub{err: errors.New("missing scan")}
	acc, err := BySubject("sub-02").Accessor(testRun(), loader)
	require.NoError(t, err)

	_, _, err = acc.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sub-02")
	assert.Contains(t, err.Error(), "missing scan")
}

func TestSubjectAccessorRejectsNilData(t *testing.T) {
	acc, err := BySubject("sub-03").Accessor(testRun(), &loaderStub{})
	require.NoError(t, err)

	_, _, err = acc.Load()
	assert.Error(t, err, "a loader returning no data cannot feed an inference pass")
}

func TestArrayAccessor(t *testing.T) {
	data := testVolume(t)
	acc, err := ByData(data).Accessor(testRun(), nil)
	require.NoError(t, err)

	got, labels, err := acc.Load()
	require.NoError(t, err)
	assert.Same(t, data, got)
	require.NotNil(t, labels)
	assert.True(t, data.SameShape(labels))
	for _, v := range labels.Dense().Data().([]float32) {
		assert.Zero(t, v, "directly supplied data has no ground truth, labels are all zero")
	}
}

func TestAccessorCarriesDirection(t *testing.T) {
	cfg := testRun().WithDirection(config.DirectionZ)
	acc, err := ByData(testVolume(t)).Accessor(cfg, nil)
	require.NoError(t, err)
	assert.Contains(t, acc.Describe(), "z slices")
}
