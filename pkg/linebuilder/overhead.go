package linebuilder

import (
	"math"

	"distflow/internal/consts"
	"distflow/pkg/conductor"
	"distflow/pkg/cplx"
	"distflow/pkg/perrors"
)

// OverheadInputs bundles everything the overhead geometric path needs.
// Conductors and Spacing are indexed 0=A, 1=B, 2=C, 3=N; Present marks
// which of A/B/C actually carry this line (the neutral row, index 3,
// is always eliminated by Kron reduction and is not itself "present").
type OverheadInputs struct {
	Conductors         [4]*conductor.Overhead
	Spacing            conductor.Spacing
	Present            [3]bool
	UseLineCapacitance bool
}

// OverheadZAbc computes the per-mile phase impedance matrix for an
// overhead line via Carson's equations and Kron reduction of the
// neutral row.
func OverheadZAbc(in OverheadInputs, c Coeffs) (cplx.Matrix3, error) {
	full := make([][]complex128, 4)
	for i := range full {
		full[i] = make([]complex128, 4)
	}
	present4 := [4]bool{in.Present[0], in.Present[1], in.Present[2], in.Conductors[3] != nil}
	for i := 0; i < 4; i++ {
		if !present4[i] || in.Conductors[i] == nil {
			full[i][i] = 1 // inert diagonal placeholder, eliminated harmlessly if unused
			continue
		}
		full[i][i] = c.SelfImpedance(in.Conductors[i].ResistancePerMile, in.Conductors[i].GMR)
		for j := 0; j < 4; j++ {
			if j == i || !present4[j] || in.Conductors[j] == nil {
				continue
			}
			full[i][j] = c.MutualImpedance(in.Spacing.Distance[i][j])
		}
	}

	reduced, err := KronReduce(full, 3)
	if err != nil {
		return cplx.Matrix3{}, err
	}
	return toMatrix3(reduced), nil
}

// OverheadYAbc computes the per-mile shunt-admittance matrix via the
// image-distance potential-coefficient construction, Kron-reduced
// against the neutral and inverted over the present-phase sub-block.
// When UseLineCapacitance is false, the zero matrix is returned (the
// capacitance inputs, if any, are ignored rather than honored).
func OverheadYAbc(in OverheadInputs, freqHz float64) (cplx.Matrix3, error) {
	if !in.UseLineCapacitance {
		return cplx.Matrix3{}, nil
	}

	full := make([][]complex128, 4)
	for i := range full {
		full[i] = make([]complex128, 4)
	}
	present4 := [4]bool{in.Present[0], in.Present[1], in.Present[2], in.Conductors[3] != nil}

	for i := 0; i < 4; i++ {
		if !present4[i] || in.Conductors[i] == nil {
			full[i][i] = 1
			continue
		}
		hi := in.Spacing.HeightAboveEarth[i]
		dii := 2 * hi
		if dii == 0 {
			return cplx.Matrix3{}, perrors.NewNumericalError("line-matrix",
				perrors.WithQuantity("shunt capacitance image distance"),
				perrors.WithRemedy("zeroed"))
		}
		full[i][i] = complex(1/(2*math.Pi*consts.Eps0)*math.Log(dii/(in.Conductors[i].DiameterIn/24)), 0)
		for j := 0; j < 4; j++ {
			if j == i || !present4[j] || in.Conductors[j] == nil {
				continue
			}
			hj := in.Spacing.HeightAboveEarth[j]
			dij := in.Spacing.Distance[i][j]
			dijPrime := math.Sqrt(dij*dij + 4*hi*hj)
			full[i][j] = complex(1/(2*math.Pi*consts.Eps0)*math.Log(dijPrime/dij), 0)
		}
	}

	reduced, err := KronReduce(full, 3)
	if err != nil {
		return cplx.Matrix3{}, err
	}
	p := toMatrix3(reduced)

	pInv, err := cplx.InversePresent(p, in.Present)
	if err != nil {
		return cplx.Matrix3{}, err
	}
	scale := complex(0, 2*math.Pi*freqHz*1e-6)
	return cplx.MulScalar3(scale, pInv), nil
}

// ApplyLength scales a per-mile matrix by length (ft) to produce the
// series or shunt block over the actual line.
func ApplyLength(perMile cplx.Matrix3, lengthFt float64) cplx.Matrix3 {
	return cplx.MulScalar3(complex(lengthFt/consts.FeetPerMile, 0), perMile)
}

// HasNegativeResistance reports whether any diagonal entry of Z has a
// negative real part, the HardwareViolation warning condition.
func HasNegativeResistance(z cplx.Matrix3) bool {
	for i := 0; i < 3; i++ {
		if real(z[i][i]) < 0 {
			return true
		}
	}
	return false
}
