package fault

import (
	"distflow/pkg/cplx"
	"distflow/pkg/network"
	"distflow/pkg/perrors"
)

// thevenin builds Z_thevenin upward from the faulted branch to SWING as
// the sum of per-branch 3x3 impedance blocks, referring transformers to
// the primary side by Z_high = v_ratio^2 * Z_low.
func thevenin(g *network.Graph, faultNode int) cplx.Matrix3 {
	var z cplx.Matrix3
	g.UpstreamWalk(faultNode, func(bi int) bool {
		b := g.Branches[bi]
		add := b.B // B holds the branch series impedance block, per the two-port synthesis
		if b.Type == network.LinkTransformer || b.Type == network.LinkRegulator {
			scale := complex(b.VRatio*b.VRatio, 0)
			add = cplx.MulScalar3(scale, add)
		}
		z = cplx.Add3(z, add)
		return false
	})
	return z
}

// boundaryRows returns the four fault-type-specific constraint rows
// (indices 3..6 of the 7x7 system) for the given kind, following
// Kersting's short-circuit boundary-condition table. Rows encode linear
// relations among (Ia, Ib, Ic, Va, Vb, Vc, Vg).
func boundaryRows(k Kind, mask network.PhaseSet) (cplx.Matrix7, cplx.Vector7) {
	var c cplx.Matrix7
	var b cplx.Vector7

	// Current indices 0,1,2 = Ia,Ib,Ic; voltage indices 3,4,5 = Va,Vb,Vc;
	// index 6 = Vg (ground reference, zero for grounded faults).
	row := 3
	setCurrentZero := func(phase int) {
		c[row][phase] = 1
		row++
	}
	setVoltageZero := func(phase int) {
		c[row][3+phase] = 1
		row++
	}
	tieVoltages := func(p, q int) {
		c[row][3+p] = 1
		c[row][3+q] = -1
		row++
	}
	groundVoltage := func() {
		c[row][6] = 1
		row++
	}

	present := [3]bool{mask.Has(network.PhaseA), mask.Has(network.PhaseB), mask.Has(network.PhaseC)}

	switch {
	case k == SLGA || k == SLGB || k == SLGC || k == SLGX:
		for p := 0; p < 3; p++ {
			if !present[p] {
				setCurrentZero(p)
			}
		}
		for p := 0; p < 3; p++ {
			if present[p] {
				setVoltageZero(p)
			}
		}
		groundVoltage()

	case k == DLGAB || k == DLGBC || k == DLGCA || k == DLGX:
		for p := 0; p < 3; p++ {
			if !present[p] {
				setCurrentZero(p)
			}
		}
		for p := 0; p < 3; p++ {
			if present[p] {
				setVoltageZero(p)
			}
		}
		groundVoltage()

	case k == LLAB || k == LLBC || k == LLCA || k == LLX:
		for p := 0; p < 3; p++ {
			if !present[p] {
				setCurrentZero(p)
			}
		}
		var first, second int = -1, -1
		for p := 0; p < 3; p++ {
			if present[p] {
				if first < 0 {
					first = p
				} else {
					second = p
				}
			}
		}
		if first >= 0 && second >= 0 {
			tieVoltages(first, second)
			c[row][first] = 1
			c[row][second] = 1
			row++
		}
		groundVoltage()

	case k == TLG || k == TLL:
		// TLL is preserved as a literal degeneracy of TLG: whenever fewer
		// than three phases are present at the fault site this falls
		// through to the same rows TLG would produce.
		for p := 0; p < 3; p++ {
			setVoltageZero(p)
		}
		groundVoltage()

	default:
		// OC/SW/FUS kinds are open-conductor events, not short circuits;
		// no fault-current boundary condition applies.
	}

	return c, b
}

// FaultCurrent solves the 7x7 boundary-condition system for the branch's
// faulted phases and writes the result into CurrentIn/CurrentOut of
// every branch along the faulted path, scaling by v_ratio at each
// transformer or regulator.
func FaultCurrent(g *network.Graph, branchIdx int, mask network.PhaseSet, k Kind) (cplx.Vector7, error) {
	b := g.Branches[branchIdx]

	zth := thevenin(g, b.To)
	yth, err := cplx.Inverse3Full(zth)
	if err != nil {
		return cplx.Vector7{}, perrors.NewNumericalError(b.Name,
			perrors.WithQuantity("thevenin impedance"),
			perrors.WithRemedy("fault current unavailable; reported as zero"))
	}

	var c cplx.Matrix7
	for p := 0; p < 3; p++ {
		for q := 0; q < 3; q++ {
			c[p][q] = yth[p][q]
		}
		c[p][3+p] = -1
	}

	rows, _ := boundaryRows(k, mask)
	for r := 3; r < 7; r++ {
		c[r] = rows[r]
	}

	swing := g.Swing()
	var rhs cplx.Vector7
	if swing != nil {
		iThev := cplx.MulVec3(yth, swing.V)
		for p := 0; p < 3; p++ {
			rhs[p] = iThev[p]
		}
	}

	x, err := cplx.Solve7(c, rhs)
	if err != nil {
		return cplx.Vector7{}, perrors.NewNumericalError(b.Name,
			perrors.WithQuantity("fault boundary-condition matrix"),
			perrors.WithRemedy("singular; fault current reported as zero"))
	}

	propagateFaultCurrent(g, b.To, x)
	return x, nil
}

// propagateFaultCurrent walks the faulted path upstream from faultNode
// toward SWING, scaling the three-phase current by v_ratio at every
// transformer or regulator and recording it as both ends' current on
// each branch crossed, since a fault path carries one current straight
// through. It uses UpstreamWalk, so it crosses the same branches as the
// protective-device walk during induction.
func propagateFaultCurrent(g *network.Graph, faultNode int, x cplx.Vector7) {
	iFault := [3]complex128{x[0], x[1], x[2]}
	g.UpstreamWalk(faultNode, func(bi int) bool {
		b := g.Branches[bi]
		if b.Type == network.LinkTransformer || b.Type == network.LinkRegulator {
			scale := complex(b.VRatio, 0)
			for p := 0; p < 3; p++ {
				iFault[p] *= scale
			}
		}
		b.CurrentIn = iFault
		b.CurrentOut = iFault
		return false
	})
}
