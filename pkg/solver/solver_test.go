package solver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"distflow/pkg/cplx"
	"distflow/pkg/network"
	"distflow/pkg/solver"
)

// seriesLine builds a two-bus network joined by a balanced, shunt-free
// series impedance: a=d=I, b=z, c=0, matching Kersting's general line
// model when the shunt admittance is neglected.
func seriesLine(loadS [3]complex128) (*network.Graph, *network.Node, *network.Node) {
	g := network.NewGraph(1)

	swing := network.NewNode("swing", network.PhaseABC, network.SWING, 7200)
	for p := 0; p < 3; p++ {
		swing.V[p] = cplx.SetPolar(7200, phaseAngle(p))
	}
	load := network.NewNode("load", network.PhaseABC, network.PQ, 7200)
	load.S = loadS
	for p := 0; p < 3; p++ {
		load.V[p] = swing.V[p]
	}

	swingIdx := g.AddNode(swing)
	loadIdx := g.AddNode(load)

	z := complex(0.3, 0.6)
	var zMat, yFrom cplx.Matrix3
	for p := 0; p < 3; p++ {
		zMat[p][p] = z
		yFrom[p][p] = 1 / z
	}

	b := network.NewBranch("line", network.LinkOverhead, swingIdx, loadIdx, network.PhaseABC)
	b.A = cplx.Identity3()
	b.D = cplx.Identity3()
	b.B = zMat
	b.C = cplx.Matrix3{}
	b.YFrom = yFrom
	b.YTo = yFrom
	g.AddBranch(b)

	return g, swing, load
}

func phaseAngle(p int) float64 {
	switch p {
	case 1:
		return -2.0943951023931953 // -120deg
	case 2:
		return 2.0943951023931953 // 120deg
	default:
		return 0
	}
}

func TestFBSConvergesOnRadialLoad(t *testing.T) {
	g, swing, load := seriesLine([3]complex128{
		complex(100000, 50000),
		complex(100000, 50000),
		complex(100000, 50000),
	})

	fbs := solver.NewFBS()
	res, err := fbs.Solve(g)
	require.NoError(t, err)
	require.True(t, res.Converged)

	for p := 0; p < 3; p++ {
		require.NotEqual(t, swing.V[p], load.V[p])
		require.InDelta(t, 7200.0, real(load.V[p]*complexConj(load.V[p]))/7200.0, 2000.0)
	}
}

func TestFBSRejectsGraphWithoutSwing(t *testing.T) {
	g := network.NewGraph(1)
	n := network.NewNode("only", network.PhaseABC, network.PQ, 7200)
	g.AddNode(n)

	fbs := solver.NewFBS()
	_, err := fbs.Solve(g)
	require.Error(t, err)
}

func TestGSConvergesOnRadialLoad(t *testing.T) {
	g, swing, load := seriesLine([3]complex128{
		complex(50000, 20000),
		complex(50000, 20000),
		complex(50000, 20000),
	})

	gs := solver.NewGS()
	res, err := gs.Solve(g)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.NotEqual(t, complex128(0), load.V[0])
}

// TestGSMovesFlatStartWithConstantPowerOnlyLoad exercises a bus with only
// constant-power load (Y and I left zero) starting flat at the swing
// voltage. Dividing by the bus's own load admittance alone would leave Y_ii
// at zero and the bus would never move off flat start; the nodal Y_bus
// diagonal must include the incident branch's series admittance too.
func TestGSMovesFlatStartWithConstantPowerOnlyLoad(t *testing.T) {
	g, swing, load := seriesLine([3]complex128{
		complex(80000, 40000),
		complex(80000, 40000),
		complex(80000, 40000),
	})

	gs := solver.NewGS()
	res, err := gs.Solve(g)
	require.NoError(t, err)
	require.True(t, res.Converged)

	for p := 0; p < 3; p++ {
		require.NotEqual(t, swing.V[p], load.V[p])
	}
}

func TestNRConvergesOnRadialLoad(t *testing.T) {
	g, _, load := seriesLine([3]complex128{
		complex(50000, 20000),
		complex(50000, 20000),
		complex(50000, 20000),
	})

	nr := solver.NewNR()
	res, err := nr.Solve(g)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.NotEqual(t, complex128(0), load.V[0])
	require.NotEqual(t, complex128(0), g.Branches[0].CurrentIn[0])
}

// TestFBSFoldsDeltaLoadToLineCurrents checks that a delta-connected load's
// per-leg (AB/BC/CA) power is converted to a delta current at the present
// delta voltage and folded to line currents, rather than treated as a wye
// load on the line-to-neutral voltages it doesn't actually see.
func TestFBSFoldsDeltaLoadToLineCurrents(t *testing.T) {
	g, _, load := seriesLine([3]complex128{
		complex(30000, 10000), // AB
		complex(20000, 8000),  // BC
		complex(15000, 5000),  // CA
	})
	load.Phases = network.PhaseABC | network.PhaseD

	fbs := solver.NewFBS()
	res, err := fbs.Solve(g)
	require.NoError(t, err)
	require.True(t, res.Converged)

	vAB := load.V[0] - load.V[1]
	vBC := load.V[1] - load.V[2]
	vCA := load.V[2] - load.V[0]
	iAB := complexConj(load.S[0] / vAB)
	iBC := complexConj(load.S[1] / vBC)
	iCA := complexConj(load.S[2] / vCA)
	wantA, wantB, wantC := network.Delta2Line(iAB, iBC, iCA)

	require.InDelta(t, real(wantA), real(load.CurrentInjection[0]), 1e-6)
	require.InDelta(t, imag(wantA), imag(load.CurrentInjection[0]), 1e-6)
	require.InDelta(t, real(wantB), real(load.CurrentInjection[1]), 1e-6)
	require.InDelta(t, imag(wantB), imag(load.CurrentInjection[1]), 1e-6)
	require.InDelta(t, real(wantC), real(load.CurrentInjection[2]), 1e-6)
	require.InDelta(t, imag(wantC), imag(load.CurrentInjection[2]), 1e-6)
}

// TestFBSAppliesTriplexNeutralCurrent checks that a closed triplex branch's
// to-node neutral slot is back-calculated from the two secondary-leg
// current injections via the branch's tn vector, rather than left at zero.
func TestFBSAppliesTriplexNeutralCurrent(t *testing.T) {
	g := network.NewGraph(1)

	swing := network.NewNode("swing", network.PhaseA, network.SWING, 120)
	swing.V[0] = cplx.SetPolar(120, 0)
	swing.V[1] = cplx.SetPolar(120, phaseAngle(1))

	load := network.NewNode("load", network.PhaseS, network.PQ, 120)
	load.V[0] = cplx.SetPolar(120, 0)
	load.V[1] = cplx.SetPolar(120, phaseAngle(1))
	load.S[0] = complex(3000, 1500)
	load.S[1] = complex(2000, 1000)

	swingIdx := g.AddNode(swing)
	loadIdx := g.AddNode(load)

	z := complex(0.3, 0.4)
	var zMat, yTo cplx.Matrix3
	for p := 0; p < 2; p++ {
		zMat[p][p] = z
		yTo[p][p] = 1 / z
	}

	b := network.NewBranch("triplex", network.LinkTriplex, swingIdx, loadIdx, network.PhaseS)
	b.A = cplx.Identity3()
	b.D = cplx.Identity3()
	b.B = zMat
	b.C = cplx.Matrix3{}
	b.YFrom = yTo
	b.YTo = yTo
	b.TriplexTN = [3]complex128{complex(-0.5, 0), complex(-0.5, 0), 0}
	g.AddBranch(b)

	fbs := solver.NewFBS()
	res, err := fbs.Solve(g)
	require.NoError(t, err)
	require.True(t, res.Converged)

	i1, i2 := load.CurrentInjection[0], load.CurrentInjection[1]
	want := b.TriplexTN[0]*i1 + b.TriplexTN[1]*i2
	require.InDelta(t, real(want), real(load.CurrentInjection[2]), 1e-6)
	require.InDelta(t, imag(want), imag(load.CurrentInjection[2]), 1e-6)
}

func complexConj(c complex128) complex128 { return complex(real(c), -imag(c)) }
