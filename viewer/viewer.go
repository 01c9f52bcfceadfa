// package viewer is the facade over the surface renderer: it owns the data
// staging, the camera, the pick coordinator and the worker pool, and drives
// the GPU backend one frame at a time.
package viewer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/optiscan3d/surfaceviewer/viewer/camera"
	"github.com/optiscan3d/surfaceviewer/viewer/field"
	"github.com/optiscan3d/surfaceviewer/viewer/geometry"
	"github.com/optiscan3d/surfaceviewer/viewer/picking"
	"github.com/optiscan3d/surfaceviewer/viewer/render"
	"github.com/optiscan3d/surfaceviewer/viewer/resources"
)

// ErrNoBackend indicates New was called without a render backend.
var ErrNoBackend = errors.New("viewer: no render backend configured")

// Viewer is the single entry point for embedding the surface viewer. All
// methods are safe for concurrent use; RenderFrame must run on the thread
// that owns the backend.
type Viewer interface {
	// SetMode selects the shading pipeline for subsequent frames.
	SetMode(mode render.Mode)
	// Mode returns the active shading pipeline.
	Mode() render.Mode

	// LoadSurface replaces the height field. The grid geometry, the
	// display range and the overlay are rebuilt when the shape changes.
	LoadSurface(width, height int, data []float32) error
	// LoadAmplitude replaces the amplitude field, which must match the
	// surface shape.
	LoadAmplitude(width, height int, data []float32) error
	// SetOverlays rasterizes span overlays onto the surface.
	SetOverlays(overlays []field.Overlay) error
	// SetOverlayImage installs a prebuilt overlay layer.
	SetOverlayImage(img *field.RGBAImage) error
	// ClearOverlay makes the overlay fully transparent.
	ClearOverlay()

	// StartRotate anchors a rotation drag at a device coordinate.
	StartRotate(x, y float32)
	// Rotate updates the rotation drag.
	Rotate(x, y float32)
	// StartPan anchors a pan drag at a device coordinate.
	StartPan(x, y float32)
	// Pan updates the pan drag.
	Pan(x, y float32)
	// SetZoom sets the view zoom and reselects the decimation level.
	SetZoom(zoom float32)
	// Zoom returns the current zoom factor.
	Zoom() float32
	// ResetView restores the home orientation, zoom and pan.
	ResetView()

	// Resize reconfigures the swapchain and aspect ratio.
	Resize(width, height int)

	// RequestPick asks for the grid cell under a framebuffer position.
	// Requests coalesce; only the latest is resolved.
	RequestPick(x, y int)
	// PollPick returns the resolved pick, if one is ready.
	PollPick() (picking.Result, bool)

	// RenderFrame uploads staged changes, draws and presents one frame.
	RenderFrame() error

	// Release frees the worker pool and all GPU resources.
	Release()
}

type viewerImpl struct {
	mu sync.Mutex

	backend render.Backend
	set     *resources.Set
	world   *camera.Transform
	proj    *camera.Projection
	picker  *picking.Picker
	pool    worker.DynamicWorkerPool

	mode render.Mode
}

var _ Viewer = &viewerImpl{}

// ViewerOption configures a Viewer during construction.
type ViewerOption func(*viewerImpl)

// WithBackend sets the render backend. Required.
func WithBackend(b render.Backend) ViewerOption {
	return func(v *viewerImpl) {
		v.backend = b
	}
}

// WithMode sets the initial shading pipeline. Defaults to ModeHeight.
func WithMode(mode render.Mode) ViewerOption {
	return func(v *viewerImpl) {
		v.mode = mode
	}
}

// WithWorkerPool overrides the worker pool used for geometry and overlay
// builds. Defaults to a pool sized to the CPU count.
func WithWorkerPool(pool worker.DynamicWorkerPool) ViewerOption {
	return func(v *viewerImpl) {
		v.pool = pool
	}
}

// New creates a Viewer over a render backend and configures the swapchain
// for the given framebuffer size.
//
// Parameters:
//   - width: initial framebuffer width in pixels
//   - height: initial framebuffer height in pixels
//   - opts: construction options, WithBackend is required
//
// Returns:
//   - Viewer: the configured viewer
//   - error: ErrNoBackend when no backend was supplied
func New(width, height int, opts ...ViewerOption) (Viewer, error) {
	v := &viewerImpl{
		set:    resources.NewSet(),
		world:  camera.NewTransform(),
		proj:   camera.NewProjection(),
		picker: picking.NewPicker(),
		mode:   render.ModeHeight,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.backend == nil {
		return nil, ErrNoBackend
	}
	if v.pool == nil {
		v.pool = worker.NewDynamicWorkerPool(runtime.NumCPU(), 256, 1*time.Second)
	}

	v.backend.ConfigureSurface(width, height)
	v.proj.SetAspect(float32(width) / float32(height))
	v.pushWorld()
	v.pushProjection()
	return v, nil
}

func (v *viewerImpl) SetMode(mode render.Mode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = mode
}

func (v *viewerImpl) Mode() render.Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

func (v *viewerImpl) LoadSurface(width, height int, data []float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	// The surface must form a renderable grid at full resolution before
	// it is accepted.
	if _, err := geometry.NewGrid(width, height, 0); err != nil {
		return err
	}
	f, err := field.NewScalarField(width, height, data)
	if err != nil {
		return err
	}
	v.set.LoadSurface(f)
	v.applyMipForZoom()
	return nil
}

func (v *viewerImpl) LoadAmplitude(width, height int, data []float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	f, err := field.NewScalarField(width, height, data)
	if err != nil {
		return err
	}
	return v.set.LoadAmplitude(f)
}

func (v *viewerImpl) SetOverlays(overlays []field.Overlay) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	surface := v.set.Surface()
	if surface == nil {
		return fmt.Errorf("%w: no surface loaded", field.ErrDimensionMismatch)
	}
	img := field.Rasterize(surface.Width(), surface.Height(), overlays, v.pool)
	return v.set.SetOverlay(img)
}

func (v *viewerImpl) SetOverlayImage(img *field.RGBAImage) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.set.SetOverlay(img)
}

func (v *viewerImpl) ClearOverlay() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.set.ClearOverlay()
}

func (v *viewerImpl) StartRotate(x, y float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.world.StartDrag(x, y, 1)
}

func (v *viewerImpl) Rotate(x, y float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.world.Rotate(x, y, 1)
	v.pushWorld()
}

func (v *viewerImpl) StartPan(x, y float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.proj.StartPan(x, y)
}

func (v *viewerImpl) Pan(x, y float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.proj.Pan(x, y)
	v.pushProjection()
}

func (v *viewerImpl) SetZoom(zoom float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.proj.SetZoom(zoom)
	v.pushProjection()
	v.applyMipForZoom()
}

func (v *viewerImpl) Zoom() float32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.proj.Zoom()
}

func (v *viewerImpl) ResetView() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.world.Reset()
	v.proj.Reset()
	v.pushWorld()
	v.pushProjection()
	v.applyMipForZoom()
}

func (v *viewerImpl) Resize(width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.backend.ConfigureSurface(width, height)
	if height > 0 {
		v.proj.SetAspect(float32(width) / float32(height))
	}
	v.pushProjection()
}

func (v *viewerImpl) RequestPick(x, y int) {
	v.picker.Request(x, y)
}

func (v *viewerImpl) PollPick() (picking.Result, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.drainPick()
	return v.picker.Poll()
}

func (v *viewerImpl) RenderFrame() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.flush(); err != nil {
		return err
	}

	if err := v.backend.BeginFrame(); err != nil {
		return err
	}
	v.backend.Draw(v.mode)

	var pick *render.PickCopy
	if x, y, ok := v.picker.Begin(); ok {
		pick = &render.PickCopy{X: x, Y: y}
	}
	v.backend.EndFrame(pick)
	v.backend.Present()

	v.drainPick()
	return nil
}

func (v *viewerImpl) Release() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.backend.Release()
}

// flush drains the staging set into the backend. Geometry rebuilds happen
// before data uploads so the textures exist when samples arrive.
func (v *viewerImpl) flush() error {
	dirty := v.set.TakeDirty()
	if dirty == 0 {
		return nil
	}
	surface := v.set.Surface()

	if dirty.Has(resources.DirtyGeometry) && surface != nil {
		w, h := surface.Width(), surface.Height()
		ids := geometry.VertexIDs(w, h)
		indices := geometry.StripIndices(w, h, v.pool)
		if err := v.backend.InitGeometry(w, h, ids, indices); err != nil {
			return err
		}
	}
	if dirty.Has(resources.DirtySurface) && surface != nil {
		v.backend.WriteSurface(surface.Data())
	}
	if dirty.Has(resources.DirtyAmplitude) && v.set.Amplitude() != nil {
		v.backend.WriteAmplitude(v.set.Amplitude().Data())
	}
	if dirty.Has(resources.DirtyOverlay) && v.set.Overlay() != nil {
		v.backend.WriteOverlay(v.set.Overlay().Pix)
	}
	if dirty.Has(resources.DirtyRange) {
		rng := v.set.Range()
		v.backend.WriteRange(rng.Min, rng.Max)
	}
	if dirty.Has(resources.DirtyMip) || dirty.Has(resources.DirtyGeometry) {
		v.backend.WriteMip(uint32(v.set.Mip()))
	}
	if dirty.Has(resources.DirtyWorld) {
		v.backend.WriteWorld(v.set.World())
	}
	if dirty.Has(resources.DirtyProjection) {
		v.backend.WriteProjection(v.set.Projection())
	}
	return nil
}

// drainPick forwards a completed readback to the pick coordinator. Caller
// holds the lock.
func (v *viewerImpl) drainPick() {
	datum, ok := v.backend.PollPick()
	if !ok {
		return
	}
	v.picker.Complete(datum, func(col, row uint32) (float32, bool) {
		surface := v.set.Surface()
		if surface == nil {
			return 0, false
		}
		return surface.At(int(col), int(row))
	})
}

// applyMipForZoom selects the decimation level for the current zoom,
// stepping down when the surface is too small for it. Caller holds the lock.
func (v *viewerImpl) applyMipForZoom() {
	if v.set.Surface() == nil {
		return
	}
	for mip := geometry.MipForZoom(v.proj.Zoom()); mip >= 0; mip-- {
		if v.set.SetMip(mip) == nil {
			return
		}
	}
}

func (v *viewerImpl) pushWorld() {
	var m [16]float32
	v.world.World(m[:])
	v.set.SetWorld(m[:])
}

func (v *viewerImpl) pushProjection() {
	var m [16]float32
	v.proj.Matrix(m[:])
	v.set.SetProjection(m[:])
}
