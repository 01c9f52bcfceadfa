package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiscan3d/surfaceviewer/viewer/field"
	"github.com/optiscan3d/surfaceviewer/viewer/picking"
	"github.com/optiscan3d/surfaceviewer/viewer/render"
)

// stubBackend records backend calls so facade behavior can be asserted
// without a GPU.
type stubBackend struct {
	configures [][2]int

	geomW, geomH int
	vertexIDs    []uint32
	indices      []uint32

	surfaceWrites   [][]float32
	amplitudeWrites [][]float32
	overlayWrites   [][]uint8

	rangeMin, rangeMax float32
	rangeWrites        int
	mips               []uint32
	worldWrites        int
	projectionWrites   int

	frames   int
	draws    []render.Mode
	picks    []render.PickCopy
	presents int

	// datum handed out by PollPick after a pick copy was encoded
	nextDatum picking.Datum
	armed     bool
}

var _ render.Backend = &stubBackend{}

func (s *stubBackend) ConfigureSurface(width, height int) {
	s.configures = append(s.configures, [2]int{width, height})
}

func (s *stubBackend) InitGeometry(width, height int, vertexIDs, indices []uint32) error {
	s.geomW, s.geomH = width, height
	s.vertexIDs = vertexIDs
	s.indices = indices
	return nil
}

func (s *stubBackend) WriteSurface(samples []float32) {
	s.surfaceWrites = append(s.surfaceWrites, samples)
}

func (s *stubBackend) WriteAmplitude(samples []float32) {
	s.amplitudeWrites = append(s.amplitudeWrites, samples)
}

func (s *stubBackend) WriteOverlay(pix []uint8) {
	s.overlayWrites = append(s.overlayWrites, pix)
}

func (s *stubBackend) WriteRange(min, max float32) {
	s.rangeMin, s.rangeMax = min, max
	s.rangeWrites++
}

func (s *stubBackend) WriteMip(level uint32) {
	s.mips = append(s.mips, level)
}

func (s *stubBackend) WriteWorld(m []float32) { s.worldWrites++ }

func (s *stubBackend) WriteProjection(m []float32) { s.projectionWrites++ }

func (s *stubBackend) BeginFrame() error {
	s.frames++
	return nil
}

func (s *stubBackend) Draw(mode render.Mode) {
	s.draws = append(s.draws, mode)
}

func (s *stubBackend) EndFrame(pick *render.PickCopy) {
	if pick != nil {
		s.picks = append(s.picks, *pick)
		s.armed = true
	}
}

func (s *stubBackend) Present() { s.presents++ }

func (s *stubBackend) PollPick() (picking.Datum, bool) {
	if !s.armed {
		return picking.Datum{}, false
	}
	s.armed = false
	return s.nextDatum, true
}

func (s *stubBackend) Release() {}

func newTestViewer(t *testing.T) (Viewer, *stubBackend) {
	t.Helper()
	stub := &stubBackend{}
	v, err := New(640, 480, WithBackend(stub))
	require.NoError(t, err)
	return v, stub
}

func rampData(n int) []float32 {
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i)
	}
	return data
}

func TestNewRequiresBackend(t *testing.T) {
	_, err := New(640, 480)
	assert.ErrorIs(t, err, ErrNoBackend)
}

func TestNewConfiguresSurfaceAndCamera(t *testing.T) {
	_, stub := newTestViewer(t)
	require.Len(t, stub.configures, 1)
	assert.Equal(t, [2]int{640, 480}, stub.configures[0])
}

func TestRenderFrameBeforeSurfaceLoads(t *testing.T) {
	v, stub := newTestViewer(t)

	require.NoError(t, v.RenderFrame())
	assert.Equal(t, 1, stub.frames)
	assert.Equal(t, 1, stub.presents)
	// No geometry was ever initialized.
	assert.Zero(t, stub.geomW)
	// Camera matrices still reach the GPU.
	assert.Equal(t, 1, stub.worldWrites)
	assert.Equal(t, 1, stub.projectionWrites)
}

func TestLoadSurfaceUploadsOnNextFrame(t *testing.T) {
	v, stub := newTestViewer(t)

	require.NoError(t, v.LoadSurface(4, 4, rampData(16)))
	assert.Empty(t, stub.surfaceWrites, "uploads are deferred to RenderFrame")

	require.NoError(t, v.RenderFrame())
	assert.Equal(t, 4, stub.geomW)
	assert.Equal(t, 4, stub.geomH)
	assert.Len(t, stub.vertexIDs, 16)
	require.Len(t, stub.surfaceWrites, 1)
	assert.Len(t, stub.surfaceWrites[0], 16)
	assert.Equal(t, 1, stub.rangeWrites)
	require.NotEmpty(t, stub.overlayWrites)
	assert.Len(t, stub.overlayWrites[0], 64)

	// A second frame uploads nothing new.
	require.NoError(t, v.RenderFrame())
	assert.Len(t, stub.surfaceWrites, 1)
	assert.Equal(t, 1, stub.rangeWrites)
}

func TestLoadSurfaceRejectsDegenerateGrid(t *testing.T) {
	v, _ := newTestViewer(t)
	err := v.LoadSurface(1, 4, rampData(4))
	assert.Error(t, err)
}

func TestLoadAmplitudeRequiresMatchingShape(t *testing.T) {
	v, stub := newTestViewer(t)
	require.NoError(t, v.LoadSurface(4, 4, rampData(16)))

	err := v.LoadAmplitude(8, 8, rampData(64))
	assert.ErrorIs(t, err, field.ErrDimensionMismatch)

	require.NoError(t, v.LoadAmplitude(4, 4, rampData(16)))
	require.NoError(t, v.RenderFrame())
	assert.Len(t, stub.amplitudeWrites, 1)
}

func TestSetOverlaysRequiresSurface(t *testing.T) {
	v, stub := newTestViewer(t)

	err := v.SetOverlays([]field.Overlay{{Spans: []field.Span{{Start: 0, End: 1}}, Color: [4]uint8{255, 0, 0, 255}}})
	assert.Error(t, err)

	require.NoError(t, v.LoadSurface(4, 4, rampData(16)))
	require.NoError(t, v.SetOverlays([]field.Overlay{{Spans: []field.Span{{Start: 0, End: 2}}, Color: [4]uint8{255, 0, 0, 255}}}))
	require.NoError(t, v.RenderFrame())

	last := stub.overlayWrites[len(stub.overlayWrites)-1]
	assert.Equal(t, uint8(255), last[3], "first pixel painted")
	assert.Equal(t, uint8(0), last[2*4+3], "third pixel transparent")
}

func TestModeSelectsPipeline(t *testing.T) {
	v, stub := newTestViewer(t)
	require.NoError(t, v.RenderFrame())

	v.SetMode(render.ModeAmplitude)
	assert.Equal(t, render.ModeAmplitude, v.Mode())
	require.NoError(t, v.RenderFrame())

	assert.Equal(t, []render.Mode{render.ModeHeight, render.ModeAmplitude}, stub.draws)
}

func TestPickRoundTrip(t *testing.T) {
	v, stub := newTestViewer(t)
	require.NoError(t, v.LoadSurface(4, 4, rampData(16)))

	// Cell (2, 1) holds sample 1*4+2 = 6; the attachment stores +1.
	stub.nextDatum = picking.Datum{3, 2}
	v.RequestPick(100, 50)

	_, ok := v.PollPick()
	assert.False(t, ok, "no result before a frame completes")

	require.NoError(t, v.RenderFrame())
	require.Len(t, stub.picks, 1)
	assert.Equal(t, render.PickCopy{X: 100, Y: 50}, stub.picks[0])

	res, ok := v.PollPick()
	require.True(t, ok)
	assert.Equal(t, picking.Result{Column: 2, Row: 1, Value: 6, Valid: true}, res)
}

func TestPickBackgroundResolvesInvalid(t *testing.T) {
	v, stub := newTestViewer(t)
	require.NoError(t, v.LoadSurface(4, 4, rampData(16)))

	stub.nextDatum = picking.Datum{0, 0}
	v.RequestPick(0, 0)
	require.NoError(t, v.RenderFrame())

	res, ok := v.PollPick()
	require.True(t, ok)
	assert.False(t, res.Valid)
}

func TestZoomSelectsMip(t *testing.T) {
	v, stub := newTestViewer(t)
	require.NoError(t, v.LoadSurface(16, 16, rampData(256)))
	require.NoError(t, v.RenderFrame())

	// Default zoom 2 selects the coarsest level.
	assert.Equal(t, uint32(2), stub.mips[len(stub.mips)-1])

	v.SetZoom(0.5)
	require.NoError(t, v.RenderFrame())
	assert.Equal(t, uint32(1), stub.mips[len(stub.mips)-1])

	v.SetZoom(0.1)
	require.NoError(t, v.RenderFrame())
	assert.Equal(t, uint32(0), stub.mips[len(stub.mips)-1])
}

func TestZoomMipFallsBackOnSmallSurface(t *testing.T) {
	v, stub := newTestViewer(t)
	// 4x4 cannot decimate at stride 4, so the coarse zoom falls back to
	// stride 2.
	require.NoError(t, v.LoadSurface(4, 4, rampData(16)))
	require.NoError(t, v.RenderFrame())
	assert.Equal(t, uint32(1), stub.mips[len(stub.mips)-1])
}

func TestResizeReconfigures(t *testing.T) {
	v, stub := newTestViewer(t)
	before := stub.projectionWrites

	v.Resize(800, 600)
	require.NoError(t, v.RenderFrame())

	assert.Equal(t, [2]int{800, 600}, stub.configures[len(stub.configures)-1])
	assert.Greater(t, stub.projectionWrites, before)
}

func TestResetViewPushesCamera(t *testing.T) {
	v, stub := newTestViewer(t)
	require.NoError(t, v.LoadSurface(16, 16, rampData(256)))

	v.StartRotate(0, 0)
	v.Rotate(0.4, 0.2)
	v.SetZoom(0.1)
	require.NoError(t, v.RenderFrame())

	v.ResetView()
	require.NoError(t, v.RenderFrame())

	assert.InDelta(t, 2, float64(v.Zoom()), 1e-6)
	assert.Equal(t, uint32(2), stub.mips[len(stub.mips)-1])
}
