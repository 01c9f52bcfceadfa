// package camera owns the two matrices the render pipelines consume: the
// world transform (trackball rotation of the surface plane) and the
// orthographic projection (pan and zoom). Both produce flat column-major
// 4x4 matrices ready for uniform upload.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/optiscan3d/surfaceviewer/common"
)

// rotationGain converts trackball arc length to degrees of rotation.
const rotationGain = 100

// initialTiltDegrees flips the surface to face the camera. Grid row 0 maps
// to the top of the screen after this half turn about the X axis.
const initialTiltDegrees = 180

// Transform accumulates trackball rotation into a world matrix. A drag is
// anchored by StartDrag, which snapshots the current orientation; each
// subsequent Rotate composes a fresh axis-angle rotation onto that snapshot
// so the surface follows the pointer without drift.
type Transform struct {
	current  [16]float32
	dragBase [16]float32
	anchor   [3]float32
}

// NewTransform creates a Transform at the home orientation.
//
// Returns:
//   - *Transform: a transform tilted by the initial half turn about X
func NewTransform() *Transform {
	t := &Transform{anchor: [3]float32{0, 0, 1}}
	t.Reset()
	return t
}

// Reset returns the transform to the home orientation, discarding any
// accumulated rotation.
func (t *Transform) Reset() {
	common.AxisAngle(t.current[:], 1, 0, 0, radians(initialTiltDegrees))
	t.dragBase = t.current
}

// World copies the current world matrix into out.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
func (t *Transform) World(out []float32) {
	copy(out, t.current[:])
}

// StartDrag anchors a rotation gesture at a point on the virtual trackball
// and snapshots the current orientation as the base for subsequent Rotate
// calls.
//
// Parameters:
//   - x, y, z: trackball point, typically (ndcX, ndcY, 1)
func (t *Transform) StartDrag(x, y, z float32) {
	t.anchor = [3]float32{x, y, z}
	t.dragBase = t.current
}

// Rotate updates the orientation from the current pointer position. The
// rotation axis is the cross product of the anchor and the new position;
// the angle grows with their separation.
//
// Parameters:
//   - x, y, z: current trackball point
func (t *Transform) Rotate(x, y, z float32) {
	ax := t.anchor[1]*z - t.anchor[2]*y
	ay := t.anchor[2]*x - t.anchor[0]*z
	az := t.anchor[0]*y - t.anchor[1]*x
	length := math32.Sqrt(ax*ax + ay*ay + az*az)

	var rot [16]float32
	common.AxisAngle(rot[:], ax, ay, az, radians(length*rotationGain))
	common.Mul4(t.current[:], rot[:], t.dragBase[:])
}

// Projection is an orthographic view of the NDC plane controlled by zoom,
// pan delta and the window aspect ratio. Pan gestures mirror Transform's
// drag anchoring: StartPan snapshots the delta, Pan moves relative to it.
type Projection struct {
	zoom      float32
	aspect    float32
	deltaX    float32
	deltaY    float32
	anchorX   float32
	anchorY   float32
	panBaseX  float32
	panBaseY  float32
}

// NewProjection creates a Projection at the home view.
//
// Returns:
//   - *Projection: centered, zoom 2, square aspect
func NewProjection() *Projection {
	return &Projection{zoom: 2, aspect: 1}
}

// Reset recenters the view and restores the default zoom. The aspect ratio
// is kept, it tracks the window rather than the gesture state.
func (p *Projection) Reset() {
	p.zoom = 2
	p.deltaX, p.deltaY = 0, 0
	p.panBaseX, p.panBaseY = 0, 0
}

// Zoom returns the current zoom factor.
func (p *Projection) Zoom() float32 { return p.zoom }

// SetZoom replaces the zoom factor. Smaller values magnify.
//
// Parameters:
//   - zoom: half-extent of the view box before aspect correction (must be > 0)
func (p *Projection) SetZoom(zoom float32) {
	p.zoom = zoom
}

// SetAspect updates the window aspect ratio used to letterbox the view.
//
// Parameters:
//   - aspect: width divided by height
func (p *Projection) SetAspect(aspect float32) {
	p.aspect = aspect
}

// StartPan anchors a pan gesture at a pointer position.
//
// Parameters:
//   - x, y: pointer position in view units
func (p *Projection) StartPan(x, y float32) {
	p.anchorX, p.anchorY = x, y
	p.panBaseX, p.panBaseY = p.deltaX, p.deltaY
}

// Pan updates the view offset from the current pointer position relative to
// the pan anchor.
//
// Parameters:
//   - x, y: pointer position in view units
func (p *Projection) Pan(x, y float32) {
	p.deltaX = x - p.anchorX + p.panBaseX
	p.deltaY = y - p.anchorY + p.panBaseY
}

// Matrix writes the orthographic projection for the current zoom, pan and
// aspect into out. The shorter window axis keeps the zoom extent and the
// longer one is widened, so the surface never distorts on resize.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
func (p *Projection) Matrix(out []float32) {
	xMin := -p.zoom - p.deltaX
	xMax := p.zoom - p.deltaX
	yMin := -p.zoom - p.deltaY
	yMax := p.zoom - p.deltaY

	dx := xMax - xMin
	dy := yMax - yMin
	if dx <= p.aspect*dy {
		dx = dy * p.aspect
	} else {
		dy = dx / p.aspect
	}
	cx := (xMax + xMin) / 2
	cy := (yMax + yMin) / 2

	common.Orthographic(out, cx-dx/2, cx+dx/2, cy-dy/2, cy+dy/2, -1, 1)
}

func radians(degrees float32) float32 {
	return degrees * math32.Pi / 180
}
