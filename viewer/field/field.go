// package field holds the CPU-resident data model for the viewer: scalar
// sample grids (height and amplitude), their display value ranges, and the
// RGBA overlay layer. Fields are immutable after construction and replaced
// wholesale on upload.
package field

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chewxy/math32"
)

// ErrInvalidShape indicates a field whose data length does not match its
// declared width and height, or a non-positive dimension.
var ErrInvalidShape = errors.New("field: data length does not match width*height")

// ErrDimensionMismatch indicates a field or overlay whose shape differs from
// the currently loaded surface. The offending call is rejected and prior
// state is retained.
var ErrDimensionMismatch = errors.New("field: dimensions do not match the loaded surface")

// ValueRange is the inclusive [Min, Max] display range used for depth
// normalization and the height color ramp.
type ValueRange struct {
	Min float32
	Max float32
}

// Clamp limits v to the range.
//
// Parameters:
//   - v: the value to clamp
//
// Returns:
//   - float32: v limited to [Min, Max]
func (r ValueRange) Clamp(v float32) float32 {
	return math32.Min(math32.Max(v, r.Min), r.Max)
}

// Normalize maps v into [0, 1] relative to the range, clamping first.
// A degenerate range (Min == Max) normalizes to 0.
//
// Parameters:
//   - v: the value to normalize
//
// Returns:
//   - float32: the clamped, normalized value in [0, 1]
func (r ValueRange) Normalize(v float32) float32 {
	if r.Max == r.Min {
		return 0
	}
	return (r.Clamp(v) - r.Min) / (r.Max - r.Min)
}

// ScalarField is an immutable width×height grid of float32 samples in
// row-major order with a cached min/max value range.
type ScalarField struct {
	width  int
	height int
	data   []float32
	rng    ValueRange
}

// NewScalarField creates a ScalarField from row-major sample data.
// The data slice is retained, not copied; callers must not mutate it after
// construction. The full min/max range is computed once here.
//
// Parameters:
//   - width: grid width in samples (must be >= 1)
//   - height: grid height in samples (must be >= 1)
//   - data: row-major samples, length must equal width*height
//
// Returns:
//   - *ScalarField: the constructed field
//   - error: ErrInvalidShape if the dimensions and data length disagree
func NewScalarField(width, height int, data []float32) (*ScalarField, error) {
	if width < 1 || height < 1 || len(data) != width*height {
		return nil, fmt.Errorf("%w: %dx%d with %d samples", ErrInvalidShape, width, height, len(data))
	}
	f := &ScalarField{
		width:  width,
		height: height,
		data:   data,
	}
	f.rng = valueRange(data)
	return f, nil
}

// Width returns the grid width in samples.
func (f *ScalarField) Width() int { return f.width }

// Height returns the grid height in samples.
func (f *ScalarField) Height() int { return f.height }

// Data returns the row-major sample slice. The slice is shared; do not modify.
func (f *ScalarField) Data() []float32 { return f.data }

// Range returns the cached full min/max value range.
func (f *ScalarField) Range() ValueRange { return f.rng }

// At returns the sample at (col, row) and whether the coordinate is in bounds.
//
// Parameters:
//   - col: column index
//   - row: row index
//
// Returns:
//   - float32: the sample value, or 0 if out of bounds
//   - bool: true if (col, row) lies within the grid
func (f *ScalarField) At(col, row int) (float32, bool) {
	if col < 0 || col >= f.width || row < 0 || row >= f.height {
		return 0, false
	}
	return f.data[row*f.width+col], true
}

// MatchesShape reports whether another field has the same width and height.
//
// Parameters:
//   - width: expected width
//   - height: expected height
//
// Returns:
//   - bool: true if the shapes agree
func (f *ScalarField) MatchesShape(width, height int) bool {
	return f.width == width && f.height == height
}

// ClampedRange computes a display range with outliers removed: values below
// the loPct percentile and above the hiPct percentile are excluded. This is
// the range the viewer uses for depth normalization so a handful of spikes
// does not flatten the rest of the surface.
//
// Parameters:
//   - loPct: lower percentile in [0, 100]
//   - hiPct: upper percentile in [0, 100], must be >= loPct
//
// Returns:
//   - ValueRange: the percentile-clamped range
func (f *ScalarField) ClampedRange(loPct, hiPct float32) ValueRange {
	sorted := make([]float32, len(f.data))
	copy(sorted, f.data)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	loIdx := int(math32.Round(loPct / 100 * float32(n)))
	hiIdx := int(math32.Round(hiPct / 100 * float32(n)))
	if loIdx < 0 {
		loIdx = 0
	}
	if hiIdx >= n {
		hiIdx = n - 1
	}
	if hiIdx < loIdx {
		hiIdx = loIdx
	}
	return ValueRange{Min: sorted[loIdx], Max: sorted[hiIdx]}
}

// valueRange scans data once for its min and max.
func valueRange(data []float32) ValueRange {
	r := ValueRange{Min: data[0], Max: data[0]}
	for _, v := range data {
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
	}
	return r
}
