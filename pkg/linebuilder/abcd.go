package linebuilder

import (
	"math"

	"distflow/internal/consts"
	"distflow/pkg/conductor"
	"distflow/pkg/cplx"
)

// TwoPort holds the six matrices a line contributes to the solvers:
// the two-port ABCD parameters (with Z == b) and the admittance blocks
// derived from them.
type TwoPort struct {
	A, B, C, D cplx.Matrix3
	YFrom      cplx.Matrix3
	YTo        cplx.Matrix3
}

// Synthesize builds the two-port ABCD parameters from a line's series
// impedance Z and shunt admittance Y (both already scaled to the actual
// line length), following Kersting 6.9-6.28:
//
//	a = I + 1/2*Z*Y,  d = a
//	c = Y + 1/4*Y*Z*Y
//	A = a^-1 (present-phase sub-block only)
//	B = A*Z
func Synthesize(z, y cplx.Matrix3, present [3]bool) (TwoPort, error) {
	half := cplx.MulScalar3(complex(0.5, 0), cplx.Mul3(z, y))
	a := cplx.Add3(cplx.Identity3(), half)

	quarter := cplx.MulScalar3(complex(0.25, 0), cplx.Mul3(cplx.Mul3(y, z), y))
	c := cplx.Add3(y, quarter)

	aInv, err := cplx.InversePresent(a, present)
	if err != nil {
		return TwoPort{}, err
	}
	bMat := cplx.Mul3(aInv, z)

	return TwoPort{
		A:     aInv,
		B:     bMat,
		C:     c,
		D:     a,
		YFrom: y,
		YTo:   y,
	}, nil
}

// ExplicitZY converts an operator-supplied per-mile Z (Ohm/mile) and C
// (nF/mile, optional) matrix directly into the series Z and shunt Y
// blocks for a given length, skipping all geometric computation.
func ExplicitZY(m *conductor.ExplicitMatrix, lengthFt, freqHz float64) (z, y cplx.Matrix3) {
	miles := lengthFt / consts.FeetPerMile
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			z[i][j] = m.Z[i][j] * complex(miles, 0)
		}
	}
	if !m.UseC {
		return z, cplx.Matrix3{}
	}
	scale := 2 * math.Pi * freqHz * 1e-9 * miles
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			y[i][j] = complex(0, m.C[i][j]*scale)
		}
	}
	return z, y
}
