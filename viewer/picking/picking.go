// package picking tracks pick requests through their asynchronous readback.
// Rendering writes full-resolution cell coordinates into an integer pick
// attachment; after a frame, a one-texel copy of that attachment at the
// requested screen position is mapped back and resolved here. Only the most
// recent request survives: a new request while one is in flight discards the
// older result once it arrives.
package picking

import "sync"

// state of the pick machine. Requests move Idle -> Requested -> InFlight ->
// Resolved -> Idle; a request arriving mid-flight sends the machine back to
// Requested when the stale readback lands.
type state int

const (
	stateIdle state = iota
	stateRequested
	stateInFlight
	stateResolved
)

// Result is a resolved pick: the full-resolution grid cell under the cursor
// and the height sample stored there. Valid is false when the cursor was
// over background or outside the loaded field.
type Result struct {
	Column uint32
	Row    uint32
	Value  float32
	Valid  bool
}

// Datum is the raw two-channel texel read back from the pick attachment.
// The shader stores (column+1, row+1) so a cleared texel of zeros is
// distinguishable from cell (0, 0).
type Datum [2]uint32

// Decode converts the raw texel into grid coordinates.
//
// Returns:
//   - col: full-resolution column
//   - row: full-resolution row
//   - ok: false for the background sentinel (either channel zero)
func (d Datum) Decode() (col, row uint32, ok bool) {
	if d[0] == 0 || d[1] == 0 {
		return 0, 0, false
	}
	return d[0] - 1, d[1] - 1, true
}

// Picker is the pick request coordinator. Request may be called from input
// callbacks while Begin/Complete run on the render thread, so all state is
// mutex guarded.
type Picker struct {
	mu sync.Mutex

	state      state
	generation uint64

	// latest requested screen position
	targetX int
	targetY int

	// generation captured when the in-flight readback was issued
	inFlightGen uint64

	result Result
}

// NewPicker creates an idle Picker.
func NewPicker() *Picker {
	return &Picker{}
}

// Request records a pick at a screen position. Repeated calls before the
// result is read back coalesce; only the latest position will produce a
// result.
//
// Parameters:
//   - x, y: screen position in framebuffer pixels
func (p *Picker) Request(x, y int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.targetX, p.targetY = x, y
	p.generation++
	switch p.state {
	case stateIdle, stateResolved:
		p.state = stateRequested
	case stateInFlight:
		// Keep the readback running; Complete will see the newer
		// generation and re-request.
	}
}

// Begin claims the pending request for a readback. The renderer calls this
// once per frame; a true return hands over the screen position to copy and
// moves the machine in flight.
//
// Returns:
//   - x, y: screen position to read back
//   - ok: false if nothing is pending or a readback is already in flight
func (p *Picker) Begin() (x, y int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateRequested {
		return 0, 0, false
	}
	p.state = stateInFlight
	p.inFlightGen = p.generation
	return p.targetX, p.targetY, true
}

// Complete resolves an in-flight readback. The lookup callback maps the
// decoded grid cell to its height sample; it is only invoked for
// non-sentinel data. If a newer Request arrived while the readback ran, the
// stale datum is dropped and the machine returns to Requested.
//
// Parameters:
//   - d: the texel read back from the pick attachment
//   - lookup: resolves a grid cell to its sample value, reporting whether
//     the cell lies inside the loaded field
func (p *Picker) Complete(d Datum, lookup func(col, row uint32) (float32, bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateInFlight {
		return
	}
	if p.inFlightGen != p.generation {
		p.state = stateRequested
		return
	}

	var res Result
	if col, row, ok := d.Decode(); ok {
		value, inField := lookup(col, row)
		if inField {
			res = Result{Column: col, Row: row, Value: value, Valid: true}
		}
	}
	p.result = res
	p.state = stateResolved
}

// Poll returns the resolved result, if any, and returns the machine to
// idle. While a request or readback is outstanding it reports not ready.
//
// Returns:
//   - Result: the resolved pick, zero when not ready
//   - bool: true when a result was consumed
func (p *Picker) Poll() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateResolved {
		return Result{}, false
	}
	p.state = stateIdle
	return p.result, true
}
