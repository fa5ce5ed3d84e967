package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectionAxis(t *testing.T) {
	tests := []struct {
		dir  Direction
		axis int
	}{
		{dir: DirectionX, axis: 0},
		{dir: DirectionY, axis: 1},
		{dir: DirectionZ, axis: 2},
	}
	for _, tt := range tests {
		axis, err := tt.dir.Axis()
		require.NoError(t, err)
		assert.Equal(t, tt.axis, axis)
	}

	_, err := Direction("diagonal").Axis()
	assert.Error(t, err)
}

func TestDirectionsOrder(t *testing.T) {
	assert.Equal(t, [3]Direction{DirectionX, DirectionY, DirectionZ}, Directions(),
		"fusion depends on the fixed x, y, z order")
}

func TestValidate(t *testing.T) {
	run := Run{SliceDirection: DirectionX, NumClasses: 45}
	assert.NoError(t, run.Validate())

	run.NumClasses = 0
	assert.Error(t, run.Validate())

	run = Run{SliceDirection: "sideways", NumClasses: 1}
	assert.Error(t, run.Validate())

	run = Run{SliceDirection: DirectionZ, NumClasses: 1, ScaleToWorldShape: true}
	assert.Error(t, run.Validate(), "world-shape scaling needs a usable world shape")

	run.WorldShape = [3]int{146, 174, 146}
	assert.NoError(t, run.Validate())
}

func TestWithDirectionCopies(t *testing.T) {
	base := Run{SliceDirection: DirectionX, NumClasses: 3, ScaleToWorldShape: true, WorldShape: [3]int{4, 4, 4}}

	derived := base.WithDirection(DirectionZ)
	assert.Equal(t, DirectionZ, derived.SliceDirection)
	assert.Equal(t, DirectionX, base.SliceDirection, "the receiver must stay untouched")
	assert.Equal(t, base.NumClasses, derived.NumClasses, "only the direction changes")
	assert.Equal(t, base.WorldShape, derived.WorldShape)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	raw := []byte(`slice_direction: y
num_classes: 45
world_shape: [146, 174, 146]
scale_to_world_shape: true
input_name: input
output_name: output
`)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	run, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DirectionY, run.SliceDirection)
	assert.Equal(t, 45, run.NumClasses)
	assert.Equal(t, [3]int{146, 174, 146}, run.WorldShape)
	assert.True(t, run.ScaleToWorldShape)
	assert.Equal(t, "input", run.InputName)
}

func TestLoadRejectsBadFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("slice_direction: up\nnum_classes: 3\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err, "an unknown direction must fail validation at load time")
}
