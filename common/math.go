// package common contains plain data helpers shared across the viewer: flat
// column-major 4x4 matrix math and unsafe byte reinterpretation for GPU uploads.
package common

import (
	"github.com/chewxy/math32"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order (WebGPU convention).
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// TransformVec4 applies a 4x4 column-major matrix to a 4-component vector.
//
// Parameters:
//   - out: destination slice (must be at least 4 elements)
//   - m: the matrix (16 elements, column-major)
//   - v: the vector (4 elements)
func TransformVec4(out, m, v []float32) {
	var buf [4]float32
	for j := 0; j < 4; j++ {
		buf[j] = m[j]*v[0] + m[4+j]*v[1] + m[8+j]*v[2] + m[12+j]*v[3]
	}
	copy(out, buf[:])
}

// AxisAngle builds a rotation matrix around an arbitrary axis.
// The axis does not need to be normalized; a zero-length axis yields the
// identity rotation.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - axisX, axisY, axisZ: rotation axis
//   - angle: rotation angle in radians
func AxisAngle(out []float32, axisX, axisY, axisZ, angle float32) {
	length := math32.Sqrt(axisX*axisX + axisY*axisY + axisZ*axisZ)
	if length == 0 {
		Identity(out)
		return
	}
	ax := axisX / length
	ay := axisY / length
	az := axisZ / length

	c := math32.Cos(angle)
	s := math32.Sin(angle)
	d := 1 - c

	out[0] = d*ax*ax + c
	out[1] = d*ax*ay + s*az
	out[2] = d*ax*az - s*ay
	out[3] = 0

	out[4] = d*ax*ay - s*az
	out[5] = d*ay*ay + c
	out[6] = d*ay*az + s*ax
	out[7] = 0

	out[8] = d*ax*az + s*ay
	out[9] = d*ay*az - s*ax
	out[10] = d*az*az + c
	out[11] = 0

	out[12], out[13], out[14], out[15] = 0, 0, 0, 1
}

// Orthographic builds an orthographic projection from an axis-aligned view box.
// Maps x/y into [-1, 1] and z into [0, 1], the WebGPU clip space convention.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - xMin, xMax: horizontal view extent
//   - yMin, yMax: vertical view extent
//   - zMin, zMax: depth view extent
func Orthographic(out []float32, xMin, xMax, yMin, yMax, zMin, zMax float32) {
	dx := xMax - xMin
	dy := yMax - yMin
	dz := zMax - zMin

	Identity(out)
	out[0] = 2 / dx
	out[5] = 2 / dy
	out[10] = 1 / dz
	out[12] = -(xMax + xMin) / dx
	out[13] = -(yMax + yMin) / dy
	out[14] = -zMin / dz
}
