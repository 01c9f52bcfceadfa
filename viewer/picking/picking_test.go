package picking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupConst(v float32) func(col, row uint32) (float32, bool) {
	return func(col, row uint32) (float32, bool) { return v, true }
}

func TestDatumDecode(t *testing.T) {
	col, row, ok := Datum{4, 8}.Decode()
	assert.True(t, ok)
	assert.Equal(t, uint32(3), col)
	assert.Equal(t, uint32(7), row)

	_, _, ok = Datum{0, 0}.Decode()
	assert.False(t, ok)
	_, _, ok = Datum{5, 0}.Decode()
	assert.False(t, ok)
}

func TestPickerIdleHasNothingToDo(t *testing.T) {
	p := NewPicker()

	_, _, ok := p.Begin()
	assert.False(t, ok)

	_, ok = p.Poll()
	assert.False(t, ok)
}

func TestPickerRoundTrip(t *testing.T) {
	p := NewPicker()
	p.Request(120, 45)

	x, y, ok := p.Begin()
	require.True(t, ok)
	assert.Equal(t, 120, x)
	assert.Equal(t, 45, y)

	// While in flight there is no result and no second readback.
	_, _, ok = p.Begin()
	assert.False(t, ok)
	_, ok = p.Poll()
	assert.False(t, ok)

	p.Complete(Datum{11, 21}, lookupConst(3.5))

	res, ok := p.Poll()
	require.True(t, ok)
	assert.Equal(t, Result{Column: 10, Row: 20, Value: 3.5, Valid: true}, res)

	// Consuming the result returns the picker to idle.
	_, ok = p.Poll()
	assert.False(t, ok)
}

func TestPickerBackgroundIsInvalid(t *testing.T) {
	p := NewPicker()
	p.Request(0, 0)
	_, _, ok := p.Begin()
	require.True(t, ok)

	called := false
	p.Complete(Datum{0, 0}, func(col, row uint32) (float32, bool) {
		called = true
		return 0, true
	})
	assert.False(t, called)

	res, ok := p.Poll()
	require.True(t, ok)
	assert.False(t, res.Valid)
}

func TestPickerOutOfFieldIsInvalid(t *testing.T) {
	p := NewPicker()
	p.Request(0, 0)
	p.Begin()
	p.Complete(Datum{100, 100}, func(col, row uint32) (float32, bool) {
		return 0, false
	})

	res, ok := p.Poll()
	require.True(t, ok)
	assert.False(t, res.Valid)
}

func TestPickerCoalescesBeforeReadback(t *testing.T) {
	p := NewPicker()
	p.Request(1, 1)
	p.Request(2, 2)

	x, y, ok := p.Begin()
	require.True(t, ok)
	assert.Equal(t, 2, x)
	assert.Equal(t, 2, y)
}

func TestPickerDiscardsStaleReadback(t *testing.T) {
	p := NewPicker()
	p.Request(1, 1)

	_, _, ok := p.Begin()
	require.True(t, ok)

	// A newer request lands while the first readback is in flight.
	p.Request(2, 2)
	p.Complete(Datum{5, 5}, lookupConst(1))

	// The stale datum is dropped, no result yet.
	_, ok = p.Poll()
	assert.False(t, ok)

	// The machine re-requests at the newer position.
	x, y, ok := p.Begin()
	require.True(t, ok)
	assert.Equal(t, 2, x)
	assert.Equal(t, 2, y)

	p.Complete(Datum{9, 9}, lookupConst(2))
	res, ok := p.Poll()
	require.True(t, ok)
	assert.Equal(t, Result{Column: 8, Row: 8, Value: 2, Valid: true}, res)
}

func TestPickerRequestAfterResolvedReplacesResult(t *testing.T) {
	p := NewPicker()
	p.Request(1, 1)
	p.Begin()
	p.Complete(Datum{2, 2}, lookupConst(1))

	// A new request before the result is consumed supersedes it.
	p.Request(3, 3)
	_, ok := p.Poll()
	assert.False(t, ok)

	x, y, ok := p.Begin()
	require.True(t, ok)
	assert.Equal(t, 3, x)
	assert.Equal(t, 3, y)
}
