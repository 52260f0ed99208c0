package export_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"distflow/pkg/cplx"
	"distflow/pkg/export"
	"distflow/pkg/network"
)

func sampleGraph() *network.Graph {
	g := network.NewGraph(1)

	swing := network.NewNode("sourcebus", network.PhaseABC, network.SWING, 7200)
	for p := 0; p < 3; p++ {
		swing.V[p] = complex(7200, 0)
	}
	leaf := network.NewNode("leaf", network.PhaseABC, network.PQ, 7200)
	leaf.S[0] = complex(100000, 50000)
	for p := 0; p < 3; p++ {
		leaf.V[p] = complex(7180, 0)
	}

	swingIdx := g.AddNode(swing)
	leafIdx := g.AddNode(leaf)

	var zMat cplx.Matrix3
	for p := 0; p < 3; p++ {
		zMat[p][p] = complex(0.3, 0.6)
	}
	b := network.NewBranch("line1", network.LinkOverhead, swingIdx, leafIdx, network.PhaseABC)
	b.B = zMat
	b.ConfigName = "config-601"
	b.LengthFt = 5280
	g.AddBranch(b)

	fuse := network.NewBranch("fuse1", network.LinkFuse, swingIdx, leafIdx, network.PhaseA)
	g.AddBranch(fuse)

	return g
}

func TestBuildTopologyIncludesAllObjectKinds(t *testing.T) {
	g := sampleGraph()
	topo, err := export.BuildTopology(g, export.DefaultTopologyOptions())
	require.NoError(t, err)

	require.Len(t, topo.Properties.Generators, 1)
	require.Len(t, topo.Properties.Buses, 2)
	require.Len(t, topo.Properties.Loads, 1)
	require.Len(t, topo.Properties.Lines, 2)
	require.Len(t, topo.Properties.LineCodes, 1)

	require.Equal(t, "config-601", topo.Properties.LineCodes[0].LineCode)
	require.InDelta(t, 0.3, topo.Properties.LineCodes[0].RMatrix[0][0], 1e-9)

	data, err := export.MarshalTopology(topo)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Contains(t, decoded, "properties")
}

func TestBuildTopologyRejectsPerUnitWithoutBase(t *testing.T) {
	g := sampleGraph()
	_, err := export.BuildTopology(g, export.TopologyOptions{PerUnit: true})
	require.Error(t, err)
}

func TestBuildReliabilityReportsFuseOpeningStatus(t *testing.T) {
	g := sampleGraph()
	fuse := g.Branches[1]
	fuse.RemovePhases(network.PhaseA)

	r := export.BuildReliability(g, export.ReliabilityMetrics{SAIFI: 1.2}, nil, nil)
	require.Len(t, r.ProtectiveDevices.Fuse, 1)
	require.Equal(t, "fuse1", r.ProtectiveDevices.Fuse[0].Name)
	require.Equal(t, []string{"1"}, r.ProtectiveDevices.Fuse[0].DeviceOpeningStatus)
	require.InDelta(t, 1.2, r.Outputs["SAIFI"], 1e-9)
}

func TestBuildReliabilityReportsRegulatorTaps(t *testing.T) {
	g := sampleGraph()
	reg := network.NewBranch("reg1", network.LinkRegulator, 0, 1, network.PhaseABC)
	regIdx := g.AddBranch(reg)

	r := export.BuildReliability(g, export.ReliabilityMetrics{}, []export.RegulatorState{
		{BranchIdx: regIdx, TapA: 3, TapB: 2, TapC: 1},
	}, nil)
	require.Len(t, r.OtherDevices.Regulator, 1)
	require.Equal(t, []int{3, 2, 1}, r.OtherDevices.Regulator[0].TapPosition)
}

func TestConnectivityAdapterReflectsGraph(t *testing.T) {
	g := sampleGraph()
	c := export.NewConnectivity(g)

	require.Equal(t, 2, c.NodeCount())
	require.Equal(t, 2, c.BranchCount())
	from, to := c.Endpoints(0)
	require.Equal(t, 0, from)
	require.Equal(t, 1, to)
	require.True(t, c.Energized(0))
	require.False(t, c.Energized(1))
}
