package linebuilder

import (
	"math"

	"distflow/internal/consts"
	"distflow/pkg/conductor"
	"distflow/pkg/cplx"
	"distflow/pkg/perrors"
)

// UndergroundInputs bundles the geometry an underground line needs. Each
// phase conductor carries either a concentric-neutral or a tape-shield
// construction (mutually exclusive, per conductor.Underground). Spacing
// entries 0-2 are the phase-to-phase and phase-to-earth distances;
// entry 3, if ExternalNeutral is non-nil, is an additional bare neutral
// strung alongside the cables.
type UndergroundInputs struct {
	Conductors         [3]*conductor.Underground
	ExternalNeutral    *conductor.Overhead
	Spacing            conductor.Spacing
	Present            [3]bool
	UseLineCapacitance bool
}

func cnGMRAndResistance(cn *conductor.ConcentricNeutral) (gmr, r float64) {
	k := float64(cn.StrandCount)
	gmr = math.Pow(cn.StrandGMR*k*math.Pow(cn.OuterRadius, k-1), 1/k)
	r = cn.StrandResistance / k
	return
}

// neutralRowGMRAndR returns the GMR and per-mile resistance of a single
// phase conductor's own neutral, whichever construction it uses.
func neutralRowGMRAndR(u *conductor.Underground) (gmr, r float64, ringRadius float64) {
	if u.ConcentricNeutral != nil {
		gmr, r = cnGMRAndResistance(u.ConcentricNeutral)
		return gmr, r, u.ConcentricNeutral.OuterRadius
	}
	ts := u.TapeShield
	return ts.GMR, ts.Resistance, u.OuterDiameterIn / 24
}

// UndergroundZAbc builds the extended phase/own-neutral/external-neutral
// matrix and Kron-reduces it to the 3x3 phase block. The matrix has 6
// rows when no external neutral is configured, or 7 when one is.
func UndergroundZAbc(in UndergroundInputs, c Coeffs) (cplx.Matrix3, error) {
	n := 6
	if in.ExternalNeutral != nil {
		n = 7
	}
	full := make([][]complex128, n)
	for i := range full {
		full[i] = make([]complex128, n)
	}

	for i := 0; i < 3; i++ {
		if !in.Present[i] || in.Conductors[i] == nil {
			full[i][i] = 1
			full[3+i][3+i] = 1
			continue
		}
		u := in.Conductors[i]
		full[i][i] = c.SelfImpedance(u.ResistancePerMile, u.GMR)
		ngmr, nr, ring := neutralRowGMRAndR(u)
		full[3+i][3+i] = c.SelfImpedance(nr, ngmr)
		// phase i to its own concentric neutral: co-located, distance = ring radius.
		full[i][3+i] = c.MutualImpedance(ring)
		full[3+i][i] = full[i][3+i]
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j || !in.Present[i] || !in.Present[j] {
				continue
			}
			d := in.Spacing.Distance[i][j]
			full[i][j] = c.MutualImpedance(d)
			full[3+i][3+j] = c.MutualImpedance(d) // own-neutral to own-neutral, approximated at cable spacing
			full[i][3+j] = c.MutualImpedance(d)    // phase to other cable's neutral
			full[3+i][j] = full[i][3+j]
		}
	}
	if n == 7 {
		en := in.ExternalNeutral
		full[6][6] = c.SelfImpedance(en.ResistancePerMile, en.GMR)
		for i := 0; i < 3; i++ {
			if !in.Present[i] {
				continue
			}
			d := in.Spacing.Distance[i][3]
			full[i][6] = c.MutualImpedance(d)
			full[6][i] = full[i][6]
			full[3+i][6] = c.MutualImpedance(d)
			full[6][3+i] = full[3+i][6]
		}
	}

	reduced, err := KronReduce(full, 3)
	if err != nil {
		return cplx.Matrix3{}, err
	}
	return toMatrix3(reduced), nil
}

// UndergroundYAbc computes the shunt-admittance matrix for concentric
// neutral cables; tape-shielded phases are left at zero shunt
// admittance. Kersting's concentric-neutral formula
// yields a diagonal per-phase capacitance: each cable is individually
// shielded, so there is no capacitive coupling between phases.
func UndergroundYAbc(in UndergroundInputs, freqHz float64) (cplx.Matrix3, error) {
	if !in.UseLineCapacitance {
		return cplx.Matrix3{}, nil
	}
	var y cplx.Matrix3
	for i := 0; i < 3; i++ {
		if !in.Present[i] || in.Conductors[i] == nil {
			continue
		}
		u := in.Conductors[i]
		if u.ConcentricNeutral == nil {
			continue // tape-shield capacitance uses the coaxial formula, out of scope here
		}
		cn := u.ConcentricNeutral
		k := float64(cn.StrandCount)
		R := cn.OuterRadius
		di := u.DiameterIn
		ds := cn.StrandDiameterIn
		denom := math.Log(R/(di/24)) - (1/k)*math.Log((k*ds/24)/R)
		if denom == 0 {
			return cplx.Matrix3{}, perrors.NewNumericalError("underground line",
				perrors.WithQuantity("shunt capacitance"),
				perrors.WithRemedy("zeroed"))
		}
		capPerMile := 2 * math.Pi * consts.Eps0 * u.InsulationRelPerm / denom
		y[i][i] = complex(0, 2*math.Pi*freqHz*capPerMile)
	}
	return y, nil
}
