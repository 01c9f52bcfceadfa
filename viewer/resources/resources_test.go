package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiscan3d/surfaceviewer/viewer/field"
	"github.com/optiscan3d/surfaceviewer/viewer/geometry"
)

func mustField(t *testing.T, w, h int) *field.ScalarField {
	t.Helper()
	data := make([]float32, w*h)
	for i := range data {
		data[i] = float32(i)
	}
	f, err := field.NewScalarField(w, h, data)
	require.NoError(t, err)
	return f
}

func TestLoadSurfaceMarksGeometryOnReshape(t *testing.T) {
	s := NewSet()
	s.LoadSurface(mustField(t, 4, 4))

	d := s.TakeDirty()
	assert.True(t, d.Has(DirtyGeometry|DirtySurface|DirtyRange|DirtyOverlay))

	// Same shape again: data upload only, no geometry rebuild.
	s.LoadSurface(mustField(t, 4, 4))
	d = s.TakeDirty()
	assert.True(t, d.Has(DirtySurface))
	assert.False(t, d.Has(DirtyGeometry))

	// A reshape rebuilds geometry and resets the overlay.
	s.LoadSurface(mustField(t, 8, 8))
	d = s.TakeDirty()
	assert.True(t, d.Has(DirtyGeometry|DirtyOverlay))
}

func TestLoadSurfaceReshapeDropsAmplitude(t *testing.T) {
	s := NewSet()
	s.LoadSurface(mustField(t, 4, 4))
	require.NoError(t, s.LoadAmplitude(mustField(t, 4, 4)))
	require.NotNil(t, s.Amplitude())

	s.LoadSurface(mustField(t, 8, 8))
	assert.Nil(t, s.Amplitude())
	assert.Equal(t, 8, s.Overlay().Width)
}

func TestLoadAmplitudeShapeMismatch(t *testing.T) {
	s := NewSet()
	err := s.LoadAmplitude(mustField(t, 4, 4))
	assert.ErrorIs(t, err, field.ErrDimensionMismatch)

	s.LoadSurface(mustField(t, 4, 4))
	require.NoError(t, s.LoadAmplitude(mustField(t, 4, 4)))
	prev := s.Amplitude()

	err = s.LoadAmplitude(mustField(t, 8, 4))
	assert.ErrorIs(t, err, field.ErrDimensionMismatch)
	assert.Same(t, prev, s.Amplitude())
}

func TestSetOverlayShapeMismatch(t *testing.T) {
	s := NewSet()
	s.LoadSurface(mustField(t, 4, 4))
	s.TakeDirty()

	err := s.SetOverlay(field.TransparentImage(8, 8))
	assert.ErrorIs(t, err, field.ErrDimensionMismatch)
	assert.Zero(t, s.TakeDirty())

	require.NoError(t, s.SetOverlay(field.TransparentImage(4, 4)))
	assert.True(t, s.TakeDirty().Has(DirtyOverlay))
}

func TestClearOverlay(t *testing.T) {
	s := NewSet()
	s.ClearOverlay() // no surface yet, no-op
	assert.Zero(t, s.TakeDirty())

	s.LoadSurface(mustField(t, 2, 2))
	pix := make([]uint8, 16)
	for i := range pix {
		pix[i] = 255
	}
	img, err := field.NewRGBAImage(2, 2, pix)
	require.NoError(t, err)
	require.NoError(t, s.SetOverlay(img))
	s.TakeDirty()

	s.ClearOverlay()
	assert.True(t, s.TakeDirty().Has(DirtyOverlay))
	for _, b := range s.Overlay().Pix {
		assert.Zero(t, b)
	}
}

func TestSetMipValidatesGrid(t *testing.T) {
	s := NewSet()
	assert.ErrorIs(t, s.SetMip(1), geometry.ErrDegenerateGrid)

	s.LoadSurface(mustField(t, 8, 8))
	s.TakeDirty()

	require.NoError(t, s.SetMip(2)) // stride 4 leaves a 2x2 grid
	assert.True(t, s.TakeDirty().Has(DirtyMip))
	assert.Equal(t, 2, s.Mip())

	// Stride 6 would leave a single row and column.
	err := s.SetMip(3)
	assert.ErrorIs(t, err, geometry.ErrDegenerateGrid)
	assert.Equal(t, 2, s.Mip())

	// Setting the same level again is not a change.
	require.NoError(t, s.SetMip(2))
	assert.Zero(t, s.TakeDirty())
}

func TestLoadSurfaceComputesTrimmedRange(t *testing.T) {
	data := make([]float32, 100)
	for i := range data {
		data[i] = float32(i)
	}
	data[0] = -1e6
	data[99] = 1e6
	f, err := field.NewScalarField(10, 10, data)
	require.NoError(t, err)

	s := NewSet()
	s.LoadSurface(f)

	r := s.Range()
	assert.Greater(t, r.Min, float32(-1e6))
	assert.Less(t, r.Max, float32(1e6))
}

func TestMatrixStaging(t *testing.T) {
	s := NewSet()
	m := make([]float32, 16)
	m[0] = 5
	s.SetWorld(m)
	s.SetProjection(m)

	d := s.TakeDirty()
	assert.True(t, d.Has(DirtyWorld|DirtyProjection))
	assert.Equal(t, float32(5), s.World()[0])
	assert.Equal(t, float32(5), s.Projection()[0])
}
