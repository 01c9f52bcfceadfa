// package geometry maps sample-grid positions to clip-space vertices and
// builds the triangle-strip index topology the render pipelines consume.
// All mapping is derived from a vertex index stream; positions are computed
// per vertex from the grid dimensions and decimation stride, so no per-vertex
// position data is ever uploaded.
package geometry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// ErrDegenerateGrid indicates a grid whose effective size after decimation
// is below 2x2, which cannot form any triangle.
var ErrDegenerateGrid = errors.New("geometry: effective grid smaller than 2x2")

// StrideForMip converts a mip level to a sample stride. Level 0 keeps every
// sample; level n keeps every 2n-th sample.
//
// Parameters:
//   - mip: decimation level, 0 or greater
//
// Returns:
//   - int: the sample stride, never less than 1
func StrideForMip(mip int) int {
	if mip <= 0 {
		return 1
	}
	return mip * 2
}

// MipForZoom selects a decimation level from the current zoom factor. Wider
// views (larger zoom) show more of the surface per pixel, so coarser meshes
// suffice.
//
// Parameters:
//   - zoom: current orthographic zoom factor
//
// Returns:
//   - int: the mip level, 0 through 2
func MipForZoom(zoom float32) int {
	switch {
	case zoom > 0.8:
		return 2
	case zoom > 0.2:
		return 1
	default:
		return 0
	}
}

// Vertex is one grid sample mapped to clip space. Col and Row are effective
// (decimated) grid coordinates; SrcCol and SrcRow are the full-resolution
// sample coordinates the vertex reads its height from.
type Vertex struct {
	Col    int
	Row    int
	SrcCol int
	SrcRow int
	NDCX   float32
	NDCY   float32
}

// Grid maps linear vertex indices over a width×height sample grid onto the
// [-1, 1] NDC plane at a given decimation level.
type Grid struct {
	width  int
	height int
	stride int
	effW   int
	effH   int
}

// NewGrid creates a Grid for a sample field at a mip level.
//
// Parameters:
//   - width: full-resolution grid width in samples
//   - height: full-resolution grid height in samples
//   - mip: decimation level (stride = max(mip*2, 1))
//
// Returns:
//   - Grid: the constructed mapping
//   - error: ErrDegenerateGrid if decimation leaves fewer than 2 columns or rows
func NewGrid(width, height, mip int) (Grid, error) {
	stride := StrideForMip(mip)
	effW := width / stride
	effH := height / stride
	if effW < 2 || effH < 2 {
		return Grid{}, fmt.Errorf("%w: %dx%d at stride %d", ErrDegenerateGrid, width, height, stride)
	}
	return Grid{width: width, height: height, stride: stride, effW: effW, effH: effH}, nil
}

// Stride returns the sample stride implied by the mip level.
func (g Grid) Stride() int { return g.stride }

// EffectiveSize returns the decimated grid dimensions.
func (g Grid) EffectiveSize() (width, height int) { return g.effW, g.effH }

// VertexCount returns the number of vertices in the effective grid.
func (g Grid) VertexCount() int { return g.effW * g.effH }

// VertexAt maps a linear full-resolution vertex index to its effective grid
// cell and NDC position. The index is interpreted against the full grid
// width, then divided down by the stride, matching the vertex shader.
//
// Parameters:
//   - index: linear vertex index over the full-resolution grid
//
// Returns:
//   - Vertex: the mapped vertex
func (g Grid) VertexAt(index int) Vertex {
	col := (index % g.width) / g.stride
	row := (index / g.width) / g.stride
	return Vertex{
		Col:    col,
		Row:    row,
		SrcCol: col * g.stride,
		SrcRow: row * g.stride,
		NDCX:   2*float32(col)/float32(g.effW-1) - 1,
		NDCY:   1 - 2*float32(row)/float32(g.effH-1),
	}
}

// VertexIDs builds the per-vertex index stream for the effective grid in
// row-major order. Each entry is the linear full-resolution index of the
// sample the vertex reads, which is the only vertex attribute uploaded.
//
// Parameters:
//   - width: full-resolution grid width
//   - height: full-resolution grid height
//
// Returns:
//   - []uint32: width*height vertex ids, 0 through width*height-1
func VertexIDs(width, height int) []uint32 {
	ids := make([]uint32, width*height)
	for i := range ids {
		ids[i] = uint32(i)
	}
	return ids
}

// StripIndices builds the triangle-strip index buffer covering the full
// grid. Each row pair is tiled in two-column chunks of six indices; an odd
// trailing column is dropped, matching the mesh the decimated shader path
// expects. Rows are built in parallel on the worker pool; a nil pool runs
// serially.
//
// Parameters:
//   - width: full-resolution grid width (must be >= 2)
//   - height: full-resolution grid height (must be >= 2)
//   - pool: worker pool for parallel fill, may be nil
//
// Returns:
//   - []uint32: the strip indices, 6*((width-1)/2) per row pair
func StripIndices(width, height int, pool worker.DynamicWorkerPool) []uint32 {
	chunks := (width - 1) / 2
	rowLen := chunks * 6
	indices := make([]uint32, rowLen*(height-1))

	fillRow := func(i int) {
		base := i * rowLen
		for j := 0; j < chunks; j++ {
			j2 := j * 2
			o := base + j*6
			indices[o+0] = uint32(i*width + j2)
			indices[o+1] = uint32((i+1)*width + j2)
			indices[o+2] = uint32(i*width + j2 + 1)
			indices[o+3] = uint32((i+1)*width + j2 + 1)
			indices[o+4] = uint32(i*width + j2 + 2)
			indices[o+5] = uint32((i+1)*width + j2 + 2)
		}
	}

	if pool == nil {
		for i := 0; i < height-1; i++ {
			fillRow(i)
		}
		return indices
	}

	var wg sync.WaitGroup
	for i := 0; i < height-1; i++ {
		row := i
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: row,
			Do: func() (any, error) {
				defer wg.Done()
				fillRow(row)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return indices
}
