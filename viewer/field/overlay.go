package field

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// Span is a half-open [Start, End) run of linear pixel indices into a
// row-major width×height grid.
type Span struct {
	Start uint32
	End   uint32
}

// Overlay marks a set of pixel spans with a single straight-alpha RGBA color.
// Overlays listed later take precedence where spans overlap.
type Overlay struct {
	Spans []Span
	Color [4]uint8
}

// RGBAImage is a CPU-side RGBA8 pixel buffer, row-major, 4 bytes per pixel.
// A zero alpha byte marks a pixel as uncovered.
type RGBAImage struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRGBAImage creates an image from an existing pixel buffer.
//
// Parameters:
//   - width: image width in pixels (must be >= 1)
//   - height: image height in pixels (must be >= 1)
//   - pix: RGBA bytes, length must equal width*height*4
//
// Returns:
//   - *RGBAImage: the constructed image
//   - error: ErrInvalidShape if the dimensions and buffer length disagree
func NewRGBAImage(width, height int, pix []uint8) (*RGBAImage, error) {
	if width < 1 || height < 1 || len(pix) != width*height*4 {
		return nil, fmt.Errorf("%w: %dx%d RGBA with %d bytes", ErrInvalidShape, width, height, len(pix))
	}
	return &RGBAImage{Width: width, Height: height, Pix: pix}, nil
}

// TransparentImage creates a fully transparent image. Rendered on top of a
// surface it has no visible effect, which is how the overlay is cleared.
//
// Parameters:
//   - width: image width in pixels
//   - height: image height in pixels
//
// Returns:
//   - *RGBAImage: an image with every byte zero
func TransparentImage(width, height int) *RGBAImage {
	return &RGBAImage{Width: width, Height: height, Pix: make([]uint8, width*height*4)}
}

// Rasterize expands a list of span overlays into a full RGBA image matching
// the surface dimensions. Rows are filled in parallel bands on the worker
// pool so each output byte is written by exactly one task. A nil pool runs
// serially.
//
// Parameters:
//   - width: target image width in pixels
//   - height: target image height in pixels
//   - overlays: span sets to paint, later entries win on overlap
//   - pool: worker pool for parallel fill, may be nil
//
// Returns:
//   - *RGBAImage: the rasterized overlay layer
func Rasterize(width, height int, overlays []Overlay, pool worker.DynamicWorkerPool) *RGBAImage {
	img := TransparentImage(width, height)
	if len(overlays) == 0 {
		return img
	}
	if pool == nil {
		fillBand(img, overlays, 0, height)
		return img
	}

	const bandRows = 64
	var wg sync.WaitGroup
	taskID := 0
	for row := 0; row < height; row += bandRows {
		end := row + bandRows
		if end > height {
			end = height
		}
		start := row
		id := taskID
		taskID++
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				fillBand(img, overlays, start, end)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return img
}

// fillBand paints the intersection of every overlay span with the pixel
// range [rowStart*width, rowEnd*width).
func fillBand(img *RGBAImage, overlays []Overlay, rowStart, rowEnd int) {
	bandLo := uint32(rowStart * img.Width)
	bandHi := uint32(rowEnd * img.Width)
	for _, ov := range overlays {
		for _, sp := range ov.Spans {
			lo, hi := sp.Start, sp.End
			if lo < bandLo {
				lo = bandLo
			}
			if hi > bandHi {
				hi = bandHi
			}
			for px := lo; px < hi; px++ {
				copy(img.Pix[px*4:px*4+4], ov.Color[:])
			}
		}
	}
}
