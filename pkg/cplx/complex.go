// Package cplx implements heap-free complex linear-algebra primitives:
// 3x3 and 7x7 dense complex matrices with inverse, multiply, add,
// subtract, scalar-multiply, and an unpivoted LU decomposition with
// forward/back substitution for the 7x7 fault boundary-condition system.
//
// Native complex128 is used throughout rather than a hand-rolled
// (real, imag) pair.
package cplx

import (
	"math/cmplx"

	"distflow/pkg/perrors"
)

// SetPolar builds a complex128 from magnitude and angle in radians.
func SetPolar(magnitude, angleRad float64) complex128 {
	return cmplx.Rect(magnitude, angleRad)
}

// Matrix3 is a dense 3x3 complex matrix, row-major.
type Matrix3 [3][3]complex128

// Zero3 returns the zero 3x3 matrix.
func Zero3() Matrix3 { return Matrix3{} }

// Identity3 returns the 3x3 identity matrix.
func Identity3() Matrix3 {
	var m Matrix3
	for i := 0; i < 3; i++ {
		m[i][i] = 1
	}
	return m
}

// Add3 returns A+B componentwise.
func Add3(a, b Matrix3) Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a[i][j] + b[i][j]
		}
	}
	return r
}

// Sub3 returns A-B componentwise.
func Sub3(a, b Matrix3) Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = a[i][j] - b[i][j]
		}
	}
	return r
}

// MulScalar3 returns s*A componentwise.
func MulScalar3(s complex128, a Matrix3) Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = s * a[i][j]
		}
	}
	return r
}

// Mul3 returns A*B.
func Mul3(a, b Matrix3) Matrix3 {
	var r Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum complex128
			for k := 0; k < 3; k++ {
				sum += a[i][k] * b[k][j]
			}
			r[i][j] = sum
		}
	}
	return r
}

// MulVec3 returns A*v.
func MulVec3(a Matrix3, v [3]complex128) [3]complex128 {
	var r [3]complex128
	for i := 0; i < 3; i++ {
		var sum complex128
		for k := 0; k < 3; k++ {
			sum += a[i][k] * v[k]
		}
		r[i] = sum
	}
	return r
}

// Det3 returns the determinant of the full 3x3 matrix.
func Det3(a Matrix3) complex128 {
	return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
}

// Inverse3Full inverts the full 3x3 matrix by cofactor expansion. The
// caller must guarantee |det| > 0; see InversePresent for the
// present-phases sub-block variant used throughout the solvers.
func Inverse3Full(a Matrix3) (Matrix3, error) {
	det := Det3(a)
	if cmplx.Abs(det) == 0 {
		return Matrix3{}, perrors.ErrSingularMatrix
	}
	return cofactorInverse(a, det, [3]bool{true, true, true}), nil
}

// InversePresent inverts only the sub-block of a corresponding to the
// phases marked present, leaving all other rows/columns zero: single- and
// two-phase lines only ever need the relevant sub-block inverted.
// A single present phase inverts as a scalar reciprocal; two present
// phases invert as a 2x2 sub-block by cofactor expansion embedded back
// into the 3x3 frame; three present phases fall back to the full 3x3
// cofactor inverse.
func InversePresent(a Matrix3, present [3]bool) (Matrix3, error) {
	n := 0
	var idx [3]int
	for i := 0; i < 3; i++ {
		if present[i] {
			idx[n] = i
			n++
		}
	}

	switch n {
	case 0:
		return Matrix3{}, nil
	case 1:
		i := idx[0]
		if a[i][i] == 0 {
			return Matrix3{}, perrors.ErrSingularMatrix
		}
		var r Matrix3
		r[i][i] = 1 / a[i][i]
		return r, nil
	case 2:
		i, j := idx[0], idx[1]
		det := a[i][i]*a[j][j] - a[i][j]*a[j][i]
		if cmplx.Abs(det) == 0 {
			return Matrix3{}, perrors.ErrSingularMatrix
		}
		var r Matrix3
		r[i][i] = a[j][j] / det
		r[j][j] = a[i][i] / det
		r[i][j] = -a[i][j] / det
		r[j][i] = -a[j][i] / det
		return r, nil
	default:
		return Inverse3Full(a)
	}
}

func cofactorInverse(a Matrix3, det complex128, _ [3]bool) Matrix3 {
	var cof Matrix3
	cof[0][0] = a[1][1]*a[2][2] - a[1][2]*a[2][1]
	cof[0][1] = -(a[1][0]*a[2][2] - a[1][2]*a[2][0])
	cof[0][2] = a[1][0]*a[2][1] - a[1][1]*a[2][0]
	cof[1][0] = -(a[0][1]*a[2][2] - a[0][2]*a[2][1])
	cof[1][1] = a[0][0]*a[2][2] - a[0][2]*a[2][0]
	cof[1][2] = -(a[0][0]*a[2][1] - a[0][1]*a[2][0])
	cof[2][0] = a[0][1]*a[1][2] - a[0][2]*a[1][1]
	cof[2][1] = -(a[0][0]*a[1][2] - a[0][2]*a[1][0])
	cof[2][2] = a[0][0]*a[1][1] - a[0][1]*a[1][0]

	var inv Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			// adjugate = transpose of cofactor matrix
			inv[i][j] = cof[j][i] / det
		}
	}
	return inv
}
