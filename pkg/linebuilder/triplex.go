package linebuilder

import (
	"distflow/pkg/conductor"
	"distflow/pkg/cplx"
)

// TriplexInputs bundles a triplex service drop's single conductor type
// (used uniformly for both phase conductors and the neutral, matching
// how the assembly is manufactured) with its overall cable dimensions.
type TriplexInputs struct {
	Cable *conductor.Triplex
}

// TriplexResult carries the Kron-reduced 2x2 phase impedance (embedded
// in the upper-left of a Matrix3) plus the retained neutral
// back-calculation vector tn.
type TriplexResult struct {
	Z  cplx.Matrix3 // only [0][0], [0][1], [1][0], [1][1] populated
	TN [3]complex128
}

// BuildTriplexZ builds the {line1, line2, neutral} 3x3 matrix, Kron-
// reduces it against the neutral, and retains the pre-reduction neutral
// coupling terms as tn = (-z13/z33, -z23/z33, 0) for neutral-current
// back-calculation at the node.
func BuildTriplexZ(in TriplexInputs, c Coeffs) (TriplexResult, error) {
	cable := in.Cable
	d12 := (cable.OverallDiameterIn + 2*cable.InsulationThickIn) / 12
	d13 := (cable.OverallDiameterIn + cable.InsulationThickIn) / 12
	d23 := d13

	z11 := c.SelfImpedance(cable.ResistancePerMile, cable.GMR)
	z22, z33 := z11, z11
	z12 := c.MutualImpedance(d12)
	z13 := c.MutualImpedance(d13)
	z23 := c.MutualImpedance(d23)

	tn := [3]complex128{
		-z13 / z33,
		-z23 / z33,
		0,
	}

	full := [][]complex128{
		{z11, z12, z13},
		{z12, z22, z23},
		{z13, z23, z33},
	}
	reduced, err := KronReduce(full, 2)
	if err != nil {
		return TriplexResult{}, err
	}

	var res TriplexResult
	res.Z[0][0], res.Z[0][1] = reduced[0][0], reduced[0][1]
	res.Z[1][0], res.Z[1][1] = reduced[1][0], reduced[1][1]
	res.TN = tn
	return res, nil
}
