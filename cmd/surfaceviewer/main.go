package main

import (
	"log"
	"time"

	"github.com/chewxy/math32"

	"github.com/optiscan3d/surfaceviewer/viewer"
	"github.com/optiscan3d/surfaceviewer/viewer/field"
	"github.com/optiscan3d/surfaceviewer/viewer/render"
	"github.com/optiscan3d/surfaceviewer/window"
)

const (
	surfaceSize  = 1024
	pickInterval = 100 * time.Millisecond
)

func main() {
	win := window.NewWindow(
		window.WithTitle("Surface Viewer"),
		window.WithWidth(1280),
		window.WithHeight(960),
	)

	backend, err := render.NewWGPUBackend(win.SurfaceDescriptor())
	if err != nil {
		log.Fatalf("failed to create render backend: %v", err)
	}

	v, err := viewer.New(win.Width(), win.Height(),
		viewer.WithBackend(backend),
	)
	if err != nil {
		log.Fatalf("failed to create viewer: %v", err)
	}

	if err := v.LoadSurface(surfaceSize, surfaceSize, demoSurface()); err != nil {
		log.Fatalf("failed to load surface: %v", err)
	}
	if err := v.LoadAmplitude(surfaceSize, surfaceSize, demoAmplitude()); err != nil {
		log.Fatalf("failed to load amplitude: %v", err)
	}

	setupInput(win, v)

	lastPoll := time.Now()
	win.SetUpdateCallback(func() {
		if err := v.RenderFrame(); err != nil {
			log.Printf("render frame: %v", err)
		}
		if time.Since(lastPoll) >= pickInterval {
			lastPoll = time.Now()
			if res, ok := v.PollPick(); ok && res.Valid {
				log.Printf("picked cell (%d, %d) height %.3f", res.Column, res.Row, res.Value)
			}
		}
	})

	win.ProcessMessages()
	v.Release()
	_ = win.Close()
}

// setupInput wires pointer and key events to viewer gestures: plain
// left-drag rotates, ctrl-left-drag pans, scroll zooms, S toggles shading,
// T toggles the demo overlays, O returns the view home.
func setupInput(win window.Window, v viewer.Viewer) {
	var (
		dragging   bool
		panning    bool
		overlaysOn bool
		cursorX    float64
		cursorY    float64
	)

	// deviceCoords maps a cursor position to the [-1, 1] plane the camera
	// gestures operate in.
	deviceCoords := func(x, y float64) (float32, float32) {
		dx := 2*x/float64(win.Width()-1) - 1
		dy := 1 - 2*y/float64(win.Height()-1)
		return float32(dx), float32(dy)
	}

	win.SetLeftMouseDownCallback(func(x, y float64, ctrl bool) {
		dx, dy := deviceCoords(x, y)
		dragging = true
		panning = ctrl
		if panning {
			v.StartPan(dx, dy)
		} else {
			v.StartRotate(dx, dy)
		}
	})

	win.SetLeftMouseUpCallback(func(x, y float64) {
		dragging = false
	})

	win.SetMouseMoveCallback(func(x, y float64) {
		cursorX, cursorY = x, y
		v.RequestPick(int(x), int(y))

		if !dragging {
			return
		}
		dx, dy := deviceCoords(x, y)
		if dx < -1 || dx > 1 || dy < -1 || dy > 1 {
			return
		}
		if panning {
			v.Pan(dx, dy)
		} else {
			v.Rotate(dx, dy)
		}
	})

	win.SetScrollCallback(func(delta float32) {
		zoom := v.Zoom() * math32.Pow(0.9, delta)
		if zoom < 0.05 {
			zoom = 0.05
		}
		if zoom > 8 {
			zoom = 8
		}
		v.SetZoom(zoom)
	})

	win.SetResizeCallback(func(width, height int) {
		v.Resize(width, height)
	})

	win.SetKeyDownCallback(func(keyCode uint32) {
		switch keyCode {
		case 'S':
			if v.Mode() == render.ModeHeight {
				v.SetMode(render.ModeAmplitude)
			} else {
				v.SetMode(render.ModeHeight)
			}
		case 'T':
			if overlaysOn {
				v.ClearOverlay()
			} else if err := v.SetOverlays(demoOverlays()); err != nil {
				log.Printf("set overlays: %v", err)
				return
			}
			overlaysOn = !overlaysOn
		case 'O':
			v.ResetView()
		case 'P':
			v.RequestPick(int(cursorX), int(cursorY))
		}
	})
}

// demoSurface builds a height field with a few gaussian bumps over a gentle
// wave so every zoom level has visible structure.
func demoSurface() []float32 {
	data := make([]float32, surfaceSize*surfaceSize)
	bump := func(x, y, cx, cy, sigma float32) float32 {
		dx := (x - cx) / sigma
		dy := (y - cy) / sigma
		return math32.Exp(-(dx*dx + dy*dy))
	}
	for row := 0; row < surfaceSize; row++ {
		for col := 0; col < surfaceSize; col++ {
			x := float32(col)
			y := float32(row)
			h := 10 * math32.Sin(x/64) * math32.Cos(y/64)
			h += 80 * bump(x, y, 300, 300, 90)
			h += 50 * bump(x, y, 700, 500, 60)
			h -= 60 * bump(x, y, 500, 800, 120)
			data[row*surfaceSize+col] = h
		}
	}
	// A couple of outliers the display range should trim away.
	data[0] = 10000
	data[len(data)-1] = -10000
	return data
}

// demoAmplitude builds a radial signal-strength pattern for the amplitude
// shading mode.
func demoAmplitude() []float32 {
	data := make([]float32, surfaceSize*surfaceSize)
	center := float32(surfaceSize) / 2
	maxDist := math32.Sqrt(2) * center
	for row := 0; row < surfaceSize; row++ {
		for col := 0; col < surfaceSize; col++ {
			dx := float32(col) - center
			dy := float32(row) - center
			data[row*surfaceSize+col] = 1 - math32.Sqrt(dx*dx+dy*dy)/maxDist
		}
	}
	return data
}

// demoOverlays marks a few pixel runs in translucent red and a large block
// in translucent yellow.
func demoOverlays() []field.Overlay {
	red := field.Overlay{Color: [4]uint8{255, 0, 0, 100}}
	for i := uint32(0); i < 5; i++ {
		start := i * surfaceSize
		red.Spans = append(red.Spans, field.Span{Start: start, End: start + 100})
	}
	yellow := field.Overlay{
		Spans: []field.Span{{Start: 5000, End: 50000}},
		Color: [4]uint8{255, 255, 0, 100},
	}
	return []field.Overlay{red, yellow}
}
