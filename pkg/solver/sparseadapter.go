package solver

import (
	"fmt"

	"github.com/edp1096/sparse"

	"distflow/pkg/perrors"
)

// ySystem wraps the pluggable sparse LU backend with complex-valued
// accumulation and solve calls, the same pattern the SPICE stamping
// matrix uses: callers add admittance and current-injection
// contributions by (row, col) or row, then Solve factors and solves in
// one step.
//
// Rows and columns are 1-based, matching the backend's own convention.
type ySystem struct {
	size    int
	mat     *sparse.Matrix
	rhs     []float64 // interleaved real/imag, 1-based with a leading pad slot
	rhsImag []float64 // unused placeholder; SeparatedComplexVectors is false
}

func newYSystem(size int) (*ySystem, error) {
	cfg := &sparse.Configuration{
		Real:                    true,
		Complex:                 true,
		SeparatedComplexVectors: false,
		Expandable:              true,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
	}
	mat, err := sparse.Create(int64(size), cfg)
	if err != nil {
		return nil, fmt.Errorf("allocating sparse Y_bus: %w", err)
	}
	return &ySystem{
		size:    size,
		mat:     mat,
		rhs:     make([]float64, 2*(size+1)),
		rhsImag: make([]float64, 1),
	}, nil
}

func (s *ySystem) addY(i, j int, y complex128) {
	e := s.mat.GetElement(int64(i), int64(j))
	e.Real += real(y)
	e.Imag += imag(y)
}

func (s *ySystem) addCurrent(i int, c complex128) {
	s.rhs[2*i] += real(c)
	s.rhs[2*i+1] += imag(c)
}

func (s *ySystem) clear() {
	s.mat.Clear()
	for i := range s.rhs {
		s.rhs[i] = 0
	}
}

// clearRHSOnly zeroes the current-injection vector without touching the
// factored Y_bus, used between inner current-injection iterations.
func (s *ySystem) clearRHSOnly() {
	for i := range s.rhs {
		s.rhs[i] = 0
	}
}

// solve factors and solves the accumulated system, returning V indexed
// 1..size.
func (s *ySystem) solve() ([]complex128, error) {
	if err := s.mat.Factor(); err != nil {
		return nil, perrors.NewNumericalError("nr y-bus",
			perrors.WithQuantity("factorization"), perrors.WithErr(err))
	}
	solReal, _, err := s.mat.SolveComplex(s.rhs, s.rhsImag)
	if err != nil {
		return nil, perrors.NewNumericalError("nr y-bus",
			perrors.WithQuantity("linear solve"), perrors.WithErr(err))
	}
	v := make([]complex128, s.size+1)
	for i := 1; i <= s.size; i++ {
		v[i] = complex(solReal[i], solReal[i+s.size])
	}
	return v, nil
}
