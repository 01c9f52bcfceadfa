// package resources stages everything the GPU needs between frames: the
// loaded fields, the overlay image, the display range and decimation level,
// and the camera matrices. Mutations accumulate dirty bits; the render loop
// drains them at the start of the next frame so uploads happen exactly once
// and never mid-frame.
package resources

import (
	"fmt"

	"github.com/optiscan3d/surfaceviewer/common"
	"github.com/optiscan3d/surfaceviewer/viewer/field"
	"github.com/optiscan3d/surfaceviewer/viewer/geometry"
)

// Dirty is a bitmask of staged state awaiting upload.
type Dirty uint32

const (
	// DirtyGeometry marks a surface dimension change requiring new
	// textures and grid buffers.
	DirtyGeometry Dirty = 1 << iota
	// DirtySurface marks new height samples.
	DirtySurface
	// DirtyAmplitude marks new amplitude samples.
	DirtyAmplitude
	// DirtyOverlay marks a changed overlay image.
	DirtyOverlay
	// DirtyRange marks a changed display value range.
	DirtyRange
	// DirtyMip marks a changed decimation level.
	DirtyMip
	// DirtyWorld marks a changed world transform.
	DirtyWorld
	// DirtyProjection marks a changed projection matrix.
	DirtyProjection
)

// Has reports whether all bits in mask are set.
func (d Dirty) Has(mask Dirty) bool { return d&mask == mask }

// Default percentiles for the outlier-trimmed display range.
const (
	rangeLoPercentile = 2.0
	rangeHiPercentile = 98.0
)

// Set is the CPU-resident staging area. It is not synchronized; the viewer
// facade serializes access.
type Set struct {
	surface   *field.ScalarField
	amplitude *field.ScalarField
	overlay   *field.RGBAImage

	rng field.ValueRange
	mip int

	world      [16]float32
	projection [16]float32

	dirty Dirty
}

// NewSet creates an empty staging set with identity matrices. Nothing is
// renderable until a surface is loaded.
func NewSet() *Set {
	s := &Set{}
	common.Identity(s.world[:])
	common.Identity(s.projection[:])
	return s
}

// LoadSurface stages a new height field. When the dimensions differ from
// the previous surface, the amplitude field is dropped and the overlay
// resets to transparent, since both are bound to the surface shape. The
// display range is recomputed with outliers trimmed.
//
// Parameters:
//   - f: the new height field
func (s *Set) LoadSurface(f *field.ScalarField) {
	reshaped := s.surface == nil || !s.surface.MatchesShape(f.Width(), f.Height())
	s.surface = f
	s.rng = f.ClampedRange(rangeLoPercentile, rangeHiPercentile)
	s.dirty |= DirtySurface | DirtyRange
	if reshaped {
		s.amplitude = nil
		s.overlay = field.TransparentImage(f.Width(), f.Height())
		s.dirty |= DirtyGeometry | DirtyOverlay
	}
}

// LoadAmplitude stages a new amplitude field. The shape must match the
// loaded surface; on mismatch the previous amplitude is retained.
//
// Parameters:
//   - f: the new amplitude field
//
// Returns:
//   - error: field.ErrDimensionMismatch when no surface is loaded or the
//     shapes disagree
func (s *Set) LoadAmplitude(f *field.ScalarField) error {
	if s.surface == nil || !s.surface.MatchesShape(f.Width(), f.Height()) {
		return fmt.Errorf("%w: amplitude %dx%d", field.ErrDimensionMismatch, f.Width(), f.Height())
	}
	s.amplitude = f
	s.dirty |= DirtyAmplitude
	return nil
}

// SetOverlay stages a new overlay image. The shape must match the loaded
// surface; on mismatch the previous overlay is retained.
//
// Parameters:
//   - img: the new overlay layer
//
// Returns:
//   - error: field.ErrDimensionMismatch when no surface is loaded or the
//     shapes disagree
func (s *Set) SetOverlay(img *field.RGBAImage) error {
	if s.surface == nil || !s.surface.MatchesShape(img.Width, img.Height) {
		return fmt.Errorf("%w: overlay %dx%d", field.ErrDimensionMismatch, img.Width, img.Height)
	}
	s.overlay = img
	s.dirty |= DirtyOverlay
	return nil
}

// ClearOverlay stages a fully transparent overlay. A no-op before any
// surface is loaded.
func (s *Set) ClearOverlay() {
	if s.surface == nil {
		return
	}
	s.overlay = field.TransparentImage(s.surface.Width(), s.surface.Height())
	s.dirty |= DirtyOverlay
}

// SetMip stages a new decimation level after validating that the surface
// still forms a renderable grid at that level.
//
// Parameters:
//   - mip: the decimation level
//
// Returns:
//   - error: geometry.ErrDegenerateGrid when the level leaves fewer than
//     two rows or columns, or when no surface is loaded
func (s *Set) SetMip(mip int) error {
	if s.surface == nil {
		return geometry.ErrDegenerateGrid
	}
	if _, err := geometry.NewGrid(s.surface.Width(), s.surface.Height(), mip); err != nil {
		return err
	}
	if mip != s.mip {
		s.mip = mip
		s.dirty |= DirtyMip
	}
	return nil
}

// SetRange overrides the display value range.
//
// Parameters:
//   - rng: the new range
func (s *Set) SetRange(rng field.ValueRange) {
	s.rng = rng
	s.dirty |= DirtyRange
}

// SetWorld stages a new world transform.
//
// Parameters:
//   - m: column-major 4x4 matrix (16 elements)
func (s *Set) SetWorld(m []float32) {
	copy(s.world[:], m)
	s.dirty |= DirtyWorld
}

// SetProjection stages a new projection matrix.
//
// Parameters:
//   - m: column-major 4x4 matrix (16 elements)
func (s *Set) SetProjection(m []float32) {
	copy(s.projection[:], m)
	s.dirty |= DirtyProjection
}

// Surface returns the staged height field, nil before the first load.
func (s *Set) Surface() *field.ScalarField { return s.surface }

// Amplitude returns the staged amplitude field, nil when none is loaded.
func (s *Set) Amplitude() *field.ScalarField { return s.amplitude }

// Overlay returns the staged overlay image, nil before the first surface.
func (s *Set) Overlay() *field.RGBAImage { return s.overlay }

// Range returns the staged display value range.
func (s *Set) Range() field.ValueRange { return s.rng }

// Mip returns the staged decimation level.
func (s *Set) Mip() int { return s.mip }

// World returns the staged world transform.
func (s *Set) World() []float32 { return s.world[:] }

// Projection returns the staged projection matrix.
func (s *Set) Projection() []float32 { return s.projection[:] }

// TakeDirty returns the accumulated dirty mask and clears it. The render
// loop calls this once per frame before uploading.
func (s *Set) TakeDirty() Dirty {
	d := s.dirty
	s.dirty = 0
	return d
}
