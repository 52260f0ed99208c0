// Package export adapts a solved network.Graph into the JSON dump formats
// and the connectivity boundary consumed by external collaborators: the
// topology exporter, the reliability exporter, and a connectivity
// interface for the reconfiguration search heuristic. The search itself,
// the mechanical pole-stress model, and the KML placemark output are
// explicit non-goals — this package specifies only what they would
// consume from a solved graph.
package export

import "distflow/pkg/network"

// Connectivity is the read-only adjacency view a reconfiguration search
// heuristic consumes: which nodes a branch joins, whether that branch can
// currently carry current, and which nodes are presently fed from SWING.
// Nothing in this module implements a search over it.
type Connectivity interface {
	NodeCount() int
	BranchCount() int
	Endpoints(branchIdx int) (from, to int)
	IsClosed(branchIdx int) bool
	Energized(nodeIdx int) bool
	Incident(nodeIdx int) []int
}

// graphConnectivity adapts *network.Graph to Connectivity.
type graphConnectivity struct {
	g *network.Graph
}

// NewConnectivity wraps a graph as the read-only view an external
// reconfiguration heuristic is given.
func NewConnectivity(g *network.Graph) Connectivity {
	return graphConnectivity{g: g}
}

func (c graphConnectivity) NodeCount() int   { return len(c.g.Nodes) }
func (c graphConnectivity) BranchCount() int { return len(c.g.Branches) }

func (c graphConnectivity) Endpoints(branchIdx int) (from, to int) {
	b := c.g.Branches[branchIdx]
	return b.From, b.To
}

func (c graphConnectivity) IsClosed(branchIdx int) bool {
	return c.g.Branches[branchIdx].IsClosed()
}

func (c graphConnectivity) Energized(nodeIdx int) bool {
	return c.g.Nodes[nodeIdx].HasSource
}

func (c graphConnectivity) Incident(nodeIdx int) []int {
	return c.g.Incident(nodeIdx)
}
