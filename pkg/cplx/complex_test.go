package cplx_test

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/require"

	"distflow/pkg/cplx"
)

func TestInverse3FullRoundTrip(t *testing.T) {
	a := cplx.Matrix3{
		{complex(4, 1), complex(1, 0), complex(0, 0.5)},
		{complex(1, 0), complex(3, 0), complex(0.5, 0)},
		{complex(0, 0.5), complex(0.5, 0), complex(2, 0.2)},
	}

	inv, err := cplx.Inverse3Full(a)
	require.NoError(t, err)

	prod := cplx.Mul3(a, inv)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := complex128(0)
			if i == j {
				want = 1
			}
			require.InDeltaf(t, real(want), real(prod[i][j]), 1e-9, "real[%d][%d]", i, j)
			require.InDeltaf(t, imag(want), imag(prod[i][j]), 1e-9, "imag[%d][%d]", i, j)
		}
	}
}

func TestInversePresentSinglePhase(t *testing.T) {
	var a cplx.Matrix3
	a[1][1] = complex(2, 1)

	inv, err := cplx.InversePresent(a, [3]bool{false, true, false})
	require.NoError(t, err)
	require.Equal(t, complex128(0), inv[0][0])
	require.Equal(t, complex128(0), inv[2][2])
	require.InDelta(t, real(1/a[1][1]), real(inv[1][1]), 1e-12)
	require.InDelta(t, imag(1/a[1][1]), imag(inv[1][1]), 1e-12)
}

func TestInversePresentSingularReturnsError(t *testing.T) {
	var a cplx.Matrix3
	_, err := cplx.InversePresent(a, [3]bool{true, false, false})
	require.Error(t, err)
}

func TestAddSubScalarMul3(t *testing.T) {
	a := cplx.Identity3()
	b := cplx.MulScalar3(complex(2, 0), a)
	sum := cplx.Add3(a, b)
	require.Equal(t, complex(3, 0), sum[0][0])

	diff := cplx.Sub3(b, a)
	require.Equal(t, complex(1, 0), diff[1][1])
}

func TestSetPolar(t *testing.T) {
	v := cplx.SetPolar(2, 0)
	require.InDelta(t, 2.0, real(v), 1e-12)
	require.InDelta(t, 0.0, imag(v), 1e-12)

	v2 := cplx.SetPolar(1, cmplx.Phase(complex(0, 1)))
	require.InDelta(t, 0.0, real(v2), 1e-9)
	require.InDelta(t, 1.0, imag(v2), 1e-9)
}
