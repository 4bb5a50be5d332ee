package common

// Identity4 resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order, matching the convention used
// throughout this package and required by the tileset root transform (§4.7).
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity4(m []float64) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order.
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float64) {
	var buf [16]float64
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}
