package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestIdentity(t *testing.T) {
	m := make([]float32, 16)
	for i := range m {
		m[i] = float32(i)
	}
	Identity(m)

	for i, v := range m {
		if i == 0 || i == 5 || i == 10 || i == 15 {
			assert.Equal(t, float32(1), v, "diagonal element %d", i)
		} else {
			assert.Equal(t, float32(0), v, "off-diagonal element %d", i)
		}
	}
}

func TestMul4Identity(t *testing.T) {
	id := make([]float32, 16)
	Identity(id)

	m := []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	out := make([]float32, 16)
	Mul4(out, id, m)
	assert.Equal(t, m, out)

	Mul4(out, m, id)
	assert.Equal(t, m, out)
}

func TestMul4AliasedOutput(t *testing.T) {
	// Mul4 must tolerate out aliasing one of its inputs.
	a := make([]float32, 16)
	AxisAngle(a, 0, 0, 1, math32.Pi/2)
	b := make([]float32, 16)
	copy(b, a)

	expected := make([]float32, 16)
	Mul4(expected, a, b)

	Mul4(a, a, b)
	assert.Equal(t, expected, a)
}

func TestTransformVec4(t *testing.T) {
	m := make([]float32, 16)
	Identity(m)
	m[12], m[13], m[14] = 3, 4, 5 // translation column

	out := make([]float32, 4)
	TransformVec4(out, m, []float32{1, 2, 3, 1})
	assert.InDeltaSlice(t, []float32{4, 6, 8, 1}, out, 1e-6)
}

func TestAxisAngleQuarterTurnZ(t *testing.T) {
	m := make([]float32, 16)
	AxisAngle(m, 0, 0, 1, math32.Pi/2)

	out := make([]float32, 4)
	TransformVec4(out, m, []float32{1, 0, 0, 1})
	assert.InDeltaSlice(t, []float32{0, 1, 0, 1}, out, 1e-6)
}

func TestAxisAngleZeroAxis(t *testing.T) {
	m := make([]float32, 16)
	AxisAngle(m, 0, 0, 0, 1.5)

	id := make([]float32, 16)
	Identity(id)
	assert.Equal(t, id, m)
}

func TestOrthographicCorners(t *testing.T) {
	m := make([]float32, 16)
	Orthographic(m, -2, 2, -2, 2, -1, 1)

	out := make([]float32, 4)
	TransformVec4(out, m, []float32{-2, -2, -1, 1})
	assert.InDeltaSlice(t, []float32{-1, -1, 0, 1}, out, 1e-6)

	TransformVec4(out, m, []float32{2, 2, 1, 1})
	assert.InDeltaSlice(t, []float32{1, 1, 1, 1}, out, 1e-6)
}

func TestSliceToBytesRoundTrip(t *testing.T) {
	vals := []float32{0, 1, 2, 15}
	b := SliceToBytes(vals)
	assert.Len(t, b, 16)

	back := BytesToSlice[float32](b)
	assert.Equal(t, vals, back)
}

func TestBytesToSliceTooShort(t *testing.T) {
	assert.Nil(t, BytesToSlice[uint32]([]byte{1, 2}))
}
