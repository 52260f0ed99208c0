package network_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"distflow/pkg/network"
)

func threeBusRadial() *network.Graph {
	g := network.NewGraph(1)
	swing := network.NewNode("swing", network.PhaseABC, network.SWING, 7200)
	mid := network.NewNode("mid", network.PhaseABC, network.PQ, 7200)
	leaf := network.NewNode("leaf", network.PhaseABC, network.PQ, 7200)

	swingIdx := g.AddNode(swing)
	midIdx := g.AddNode(mid)
	leafIdx := g.AddNode(leaf)

	g.AddBranch(network.NewBranch("line1", network.LinkOverhead, swingIdx, midIdx, network.PhaseABC))
	g.AddBranch(network.NewBranch("line2", network.LinkOverhead, midIdx, leafIdx, network.PhaseABC))

	return g
}

func TestPhaseSetValidAndString(t *testing.T) {
	require.True(t, network.PhaseABC.Valid())
	require.False(t, (network.PhaseD).Valid())
	require.True(t, (network.PhaseD | network.PhaseABC).Valid())
	require.False(t, (network.PhaseD | network.PhaseABC | network.PhaseS).Valid())
	require.Equal(t, "ABC", network.PhaseABC.String())
	require.Equal(t, "-", network.PhaseSet(0).String())
	require.Equal(t, network.PhaseABC, network.ParsePhaseSet("abc"))
}

func TestGraphSwingIndexAndIncidence(t *testing.T) {
	g := threeBusRadial()
	require.Equal(t, 0, g.SwingIndex)
	require.Len(t, g.Incident(1), 2)
	require.Len(t, g.Incident(0), 1)
}

func TestBuildTablesAssignsRowsAndSwing(t *testing.T) {
	g := threeBusRadial()
	tbl, err := network.BuildTables(g)
	require.NoError(t, err)
	require.Len(t, tbl.Buses, 3)
	require.Equal(t, 0, tbl.SwingRow)
	require.Equal(t, network.PQ, tbl.Buses[tbl.RowOf(1)].BusType)
}

func TestZeroLengthChildAbsorption(t *testing.T) {
	g := network.NewGraph(1)
	swing := network.NewNode("swing", network.PhaseABC, network.SWING, 7200)
	parent := network.NewNode("parent", network.PhaseABC, network.PQ, 7200)
	child := network.NewNode("child", network.PhaseABC, network.PQ, 7200)
	grandchild := network.NewNode("grandchild", network.PhaseABC, network.PQ, 7200)

	swingIdx := g.AddNode(swing)
	parentIdx := g.AddNode(parent)
	childIdx := g.AddNode(child)
	grandchildIdx := g.AddNode(grandchild)

	g.AddBranch(network.NewBranch("feeder", network.LinkOverhead, swingIdx, parentIdx, network.PhaseABC))
	zeroLen := g.AddBranch(network.NewBranch("zero1", network.LinkOverhead, parentIdx, childIdx, network.PhaseABC))
	g.AddBranch(network.NewBranch("tail", network.LinkOverhead, childIdx, grandchildIdx, network.PhaseABC))

	err := g.AbsorbZeroLengthChild(zeroLen)
	require.NoError(t, err)
	require.True(t, child.IsChild())
	require.Equal(t, network.ChildBusIndex, child.BusIndex)

	// The tail branch, previously child->grandchild, must now read
	// parent->grandchild.
	tailBranch := g.Branches[2]
	require.Equal(t, parentIdx, tailBranch.From)

	// A second absorption rooted at the (now-child) node must be rejected.
	zeroLen2 := g.AddBranch(network.NewBranch("zero2", network.LinkOverhead, childIdx, grandchildIdx, network.PhaseABC))
	err = g.AbsorbZeroLengthChild(zeroLen2)
	require.Error(t, err)
}

func TestBuildTablesRejectsAbsorbedChild(t *testing.T) {
	g := network.NewGraph(1)
	swing := network.NewNode("swing", network.PhaseABC, network.SWING, 7200)
	parent := network.NewNode("parent", network.PhaseABC, network.PQ, 7200)
	child := network.NewNode("child", network.PhaseABC, network.PQ, 7200)

	swingIdx := g.AddNode(swing)
	parentIdx := g.AddNode(parent)
	childIdx := g.AddNode(child)

	g.AddBranch(network.NewBranch("feeder", network.LinkOverhead, swingIdx, parentIdx, network.PhaseABC))
	zeroLen := g.AddBranch(network.NewBranch("zero1", network.LinkOverhead, parentIdx, childIdx, network.PhaseABC))

	require.NoError(t, g.AbsorbZeroLengthChild(zeroLen))

	_, err := network.BuildTables(g)
	require.Error(t, err)
}

func TestUpstreamWalkReachesSwing(t *testing.T) {
	g := threeBusRadial()
	var crossed []int
	g.UpstreamWalk(2, func(bi int) bool {
		crossed = append(crossed, bi)
		return false
	})
	require.Equal(t, []int{1, 0}, crossed)
}

func TestBranchFaultMaskRoundTrip(t *testing.T) {
	b := network.NewBranch("line", network.LinkOverhead, 0, 1, network.PhaseABC)
	b.RemovePhases(network.PhaseA)
	require.Equal(t, network.PhaseB|network.PhaseC, b.Phases)

	b.RestorePhases(network.PhaseA)
	require.Equal(t, network.PhaseABC, b.Phases)
	require.Equal(t, b.OrigPhases, b.Phases)
}
