// Package linebuilder derives the two-port ABCD matrices and admittance
// blocks the solvers consume from conductor geometry, frequency, and
// line length, for overhead, underground, and triplex lines, plus the
// explicit-matrix and transformer/regulator paths.
package linebuilder

import (
	"math"
	"math/cmplx"

	"distflow/internal/consts"
	"distflow/pkg/cplx"
	"distflow/pkg/perrors"
)

// Coeffs are the frequency- and earth-resistivity-dependent terms shared
// by every self/mutual impedance computation in a single solve.
type Coeffs struct {
	Kr float64
	Kx float64
	K0 float64
}

// NewCoeffs computes k_r, k_x, k_0 from the nominal frequency and earth
// resistivity.
func NewCoeffs(freqHz, earthResistivity float64) Coeffs {
	return Coeffs{
		Kr: consts.KrPerHz * freqHz,
		Kx: consts.KxPerHz * freqHz,
		K0: 0.5*math.Log(earthResistivity/freqHz) + 7.6786,
	}
}

// SelfImpedance returns the Carson self-impedance term for a conductor
// with the given AC resistance (Ohm/mile) and geometric mean radius
// (ft).
func (c Coeffs) SelfImpedance(resistance, gmr float64) complex128 {
	return complex(resistance+c.Kr, c.Kx*(math.Log(1/gmr)+c.K0))
}

// MutualImpedance returns the Carson mutual-impedance term between two
// conductors separated by distance d (ft).
func (c Coeffs) MutualImpedance(d float64) complex128 {
	return complex(c.Kr, c.Kx*(math.Log(1/d)+c.K0))
}

// kronReduceStep eliminates the last row/column of a dense complex
// matrix, producing the Schur complement against it. Repeated
// application eliminates a trailing block one row at a time; the order
// among eliminated rows does not affect the final result.
func kronReduceStep(z [][]complex128) ([][]complex128, error) {
	n := len(z)
	last := n - 1
	if cmplx.Abs(z[last][last]) == 0 {
		return nil, perrors.NewNumericalError("line-matrix",
			perrors.WithQuantity("kron reduction pivot"),
			perrors.WithRemedy("zeroed"))
	}
	reduced := make([][]complex128, last)
	for i := 0; i < last; i++ {
		reduced[i] = make([]complex128, last)
		for j := 0; j < last; j++ {
			reduced[i][j] = z[i][j] - z[i][last]*z[last][j]/z[last][last]
		}
	}
	return reduced, nil
}

// KronReduce eliminates the trailing (n-keep) rows/cols of a dense
// matrix, one at a time, down to a keep x keep result.
func KronReduce(z [][]complex128, keep int) ([][]complex128, error) {
	cur := z
	for len(cur) > keep {
		var err error
		cur, err = kronReduceStep(cur)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func toMatrix3(z [][]complex128) cplx.Matrix3 {
	var m cplx.Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = z[i][j]
		}
	}
	return m
}
