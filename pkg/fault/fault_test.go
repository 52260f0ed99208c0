package fault_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"distflow/pkg/cplx"
	"distflow/pkg/fault"
	"distflow/pkg/network"
)

func radialWithFuse() (*network.Graph, int, int) {
	g := network.NewGraph(7)
	swing := network.NewNode("swing", network.PhaseABC, network.SWING, 7200)
	for p := 0; p < 3; p++ {
		swing.V[p] = complex(7200, 0)
	}
	mid := network.NewNode("mid", network.PhaseABC, network.PQ, 7200)
	leaf := network.NewNode("leaf", network.PhaseABC, network.PQ, 7200)
	for p := 0; p < 3; p++ {
		mid.V[p] = complex(7180, 0)
		leaf.V[p] = complex(7150, 0)
	}

	swingIdx := g.AddNode(swing)
	midIdx := g.AddNode(mid)
	leafIdx := g.AddNode(leaf)

	z := complex(0.2, 0.4)
	var zMat cplx.Matrix3
	for p := 0; p < 3; p++ {
		zMat[p][p] = z
	}

	fuseBranch := network.NewBranch("fuse1", network.LinkFuse, swingIdx, midIdx, network.PhaseABC)
	fuseBranch.A = cplx.Identity3()
	fuseBranch.D = cplx.Identity3()
	fuseBranch.B = zMat
	g.AddBranch(fuseBranch)

	lineBranch := network.NewBranch("line1", network.LinkOverhead, midIdx, leafIdx, network.PhaseABC)
	lineBranch.A = cplx.Identity3()
	lineBranch.D = cplx.Identity3()
	lineBranch.B = zMat
	faultBranchIdx := g.AddBranch(lineBranch)

	return g, faultBranchIdx, leafIdx
}

func TestLinkFaultOnSingleLineGround(t *testing.T) {
	g, branchIdx, leafIdx := radialWithFuse()
	leaf := g.Nodes[leafIdx]
	origV := leaf.V

	ev, err := fault.LinkFaultOn(g, branchIdx, fault.SLGA, nil)
	require.NoError(t, err)
	require.Equal(t, network.PhaseA, ev.Mask)

	b := g.Branches[branchIdx]
	require.False(t, b.Phases.Has(network.PhaseA))
	require.True(t, b.Phases.Has(network.PhaseB))
	require.True(t, b.FaultMask.Has(network.PhaseA))
	require.True(t, g.AdmitChange)

	// fuse upstream of the fault must have tripped phase A.
	fuseBranch := g.Branches[0]
	require.False(t, fuseBranch.Phases.Has(network.PhaseA))
	require.NotEqual(t, -1, b.ProtectLocations[0])

	err = fault.LinkFaultOff(g, ev, nil)
	require.NoError(t, err)
	require.Equal(t, b.OrigPhases, b.Phases)
	require.Equal(t, origV, leaf.V)
	require.Equal(t, -1, b.ProtectLocations[0])
}

func TestLinkFaultOnRejectsUnhealthyX(t *testing.T) {
	g, branchIdx, _ := radialWithFuse()
	b := g.Branches[branchIdx]
	b.RemovePhases(network.PhaseABC)

	_, err := fault.LinkFaultOn(g, branchIdx, fault.SLGX, nil)
	require.Error(t, err)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "SLG-A", fault.SLGA.String())
	require.Equal(t, "TLG", fault.TLG.String())
}
