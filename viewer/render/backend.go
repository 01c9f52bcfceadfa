// package render drives the GPU: it owns the device, the two shading
// pipelines, the grid buffers and textures, and the asynchronous pick
// readback. Everything above it talks to the Backend interface so the
// facade can be exercised without a GPU.
package render

import (
	"errors"

	"github.com/optiscan3d/surfaceviewer/viewer/picking"
)

// ErrDeviceUnavailable indicates that no usable adapter or device could be
// acquired at startup.
var ErrDeviceUnavailable = errors.New("render: gpu device unavailable")

// ErrFrameInFlight indicates BeginFrame was called before the previous
// frame was presented.
var ErrFrameInFlight = errors.New("render: previous frame not yet presented")

// Mode selects the fragment shading pipeline.
type Mode int

const (
	// ModeHeight shades each cell with a grayscale ramp of its
	// normalized height.
	ModeHeight Mode = iota
	// ModeAmplitude shades each cell on a red-to-green ramp of its
	// amplitude sample.
	ModeAmplitude
)

// PickCopy is a one-texel readback request at a framebuffer position,
// encoded at the end of a frame.
type PickCopy struct {
	X int
	Y int
}

// Backend is the GPU contract the viewer facade drives. Implementations are
// safe for use from the render thread only, except where noted.
type Backend interface {
	// ConfigureSurface (re)configures the swapchain and the size-matched
	// depth and pick attachments. Called at startup and on every resize.
	ConfigureSurface(width, height int)

	// InitGeometry replaces the grid resources for a surface of the given
	// dimensions: the vertex id and strip index buffers and the three
	// data textures. Texture contents are undefined until written.
	InitGeometry(width, height int, vertexIDs, indices []uint32) error

	// WriteSurface uploads height samples to the surface texture.
	WriteSurface(samples []float32)
	// WriteAmplitude uploads amplitude samples to the amplitude texture.
	WriteAmplitude(samples []float32)
	// WriteOverlay uploads RGBA pixels to the overlay texture.
	WriteOverlay(pix []uint8)
	// WriteRange uploads the display value range uniform.
	WriteRange(min, max float32)
	// WriteMip uploads the decimation level uniform.
	WriteMip(level uint32)
	// WriteWorld uploads the world transform uniform.
	WriteWorld(m []float32)
	// WriteProjection uploads the projection uniform.
	WriteProjection(m []float32)

	// BeginFrame acquires the swapchain image and opens the render pass.
	BeginFrame() error
	// Draw issues the indexed grid draw with the pipeline for mode. A
	// no-op before InitGeometry.
	Draw(mode Mode)
	// EndFrame closes the render pass and submits the frame. When pick
	// is non-nil and no readback is outstanding, a one-texel copy of the
	// pick attachment at that position is encoded and mapped.
	EndFrame(pick *PickCopy)
	// Present presents the frame acquired by BeginFrame.
	Present()

	// PollPick polls the device for a completed pick readback without
	// blocking. It reports true at most once per EndFrame pick request.
	PollPick() (picking.Datum, bool)

	// Release frees all GPU resources.
	Release()
}
