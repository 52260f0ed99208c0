package cplx_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"distflow/pkg/cplx"
)

func identity7() cplx.Matrix7 {
	var m cplx.Matrix7
	for i := 0; i < 7; i++ {
		m[i][i] = 1
	}
	return m
}

func TestSolve7Identity(t *testing.T) {
	a := identity7()
	var b cplx.Vector7
	for i := range b {
		b[i] = complex(float64(i+1), 0)
	}

	x, err := cplx.Solve7(a, b)
	require.NoError(t, err)
	require.Equal(t, b, x)
}

func TestSolve7GeneralSystem(t *testing.T) {
	// A small well-conditioned system with a known solution, checked by
	// substitution rather than a hand-computed inverse.
	var a cplx.Matrix7
	for i := 0; i < 7; i++ {
		a[i][i] = complex(float64(i+2), 0)
		if i > 0 {
			a[i][i-1] = complex(0.3, 0.1)
		}
		if i < 6 {
			a[i][i+1] = complex(0.2, -0.1)
		}
	}

	var want cplx.Vector7
	for i := range want {
		want[i] = complex(float64(i)-3, 0.5)
	}

	var b cplx.Vector7
	for i := 0; i < 7; i++ {
		var sum complex128
		for j := 0; j < 7; j++ {
			sum += a[i][j] * want[j]
		}
		b[i] = sum
	}

	got, err := cplx.Solve7(a, b)
	require.NoError(t, err)
	for i := range want {
		require.InDelta(t, real(want[i]), real(got[i]), 1e-7, "real[%d]", i)
		require.InDelta(t, imag(want[i]), imag(got[i]), 1e-7, "imag[%d]", i)
	}
}

func TestDecompose7SingularFails(t *testing.T) {
	var a cplx.Matrix7 // all-zero matrix: first pivot is zero
	_, err := cplx.Decompose7(a)
	require.Error(t, err)
}
