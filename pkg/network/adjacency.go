package network

import "distflow/pkg/perrors"

// Incident returns the branch indices touching nodeIdx, in registration
// order. Used by the forward-back sweep for leaves-first accumulation and
// by the fault walker to find the next protective device upstream.
func (g *Graph) Incident(nodeIdx int) []int {
	if nodeIdx < 0 || nodeIdx >= len(g.adjacency) {
		return nil
	}
	return g.adjacency[nodeIdx]
}

// OtherEnd returns the node at the opposite end of branch idx from node
// nodeIdx.
func (g *Graph) OtherEnd(branchIdx, nodeIdx int) int {
	b := g.Branches[branchIdx]
	if b.From == nodeIdx {
		return b.To
	}
	return b.From
}

// AbsorbZeroLengthChild marks the `to` node of branchIdx as a child of its
// `from` node: the child's phase set must match the parent's, all links
// attached to the child are re-pointed to the parent in both endpoints'
// adjacency lists, and the absorbing line's own admittance is left as the
// large shunt the caller has already stamped into it (fault_Z^-1).
// Grandchild absorption — a child of an already-absorbed child — is
// rejected as a topology error, matching the Gauss-Seidel solver's
// "grandchildren are rejected" rule.
func (g *Graph) AbsorbZeroLengthChild(branchIdx int) error {
	b := g.Branches[branchIdx]
	parent := g.Nodes[b.From]
	child := g.Nodes[b.To]

	if parent.IsChild() {
		return perrors.NewTopologyError(child.Name,
			perrors.WithQuantity("zero-length-line parent"),
			perrors.WithRemedy("rejected: grandchild aggregation is unsupported"))
	}
	if child.Phases != parent.Phases {
		return perrors.NewTopologyError(child.Name,
			perrors.WithQuantity("phase set"),
			perrors.WithRemedy("rejected: child phases must match parent phases"))
	}

	child.Parent = b.From
	child.BusIndex = ChildBusIndex

	for _, incidentIdx := range g.adjacency[b.To] {
		if incidentIdx == branchIdx {
			continue
		}
		other := g.Branches[incidentIdx]
		if other.From == b.To {
			other.From = b.From
		}
		if other.To == b.To {
			other.To = b.From
		}
		g.adjacency[b.From] = append(g.adjacency[b.From], incidentIdx)
	}
	g.adjacency[b.To] = nil

	return nil
}

// UpstreamWalk walks from startNode toward the SWING bus, one branch at a
// time, calling visit(branchIdx) for every branch crossed. It stops as
// soon as visit returns true (the protective device, or the SWING bus,
// has been found) or when the SWING bus itself is reached.
//
// The walk assumes a radial topology: at most one branch leads toward the
// SWING bus from any node, which is true for every link whose `to` side
// is the downstream node. Implementations that register branches with
// `from` consistently toward the SWING bus can rely on g.Branches[i].From
// as the "upstream" pointer.
func (g *Graph) UpstreamWalk(startNode int, visit func(branchIdx int) bool) {
	node := startNode
	visited := make(map[int]bool)
	for node != g.SwingIndex {
		if visited[node] {
			return // malformed topology: a cycle, stop rather than loop forever
		}
		visited[node] = true

		found := -1
		for _, bi := range g.adjacency[node] {
			if g.Branches[bi].To == node {
				found = bi
				break
			}
		}
		if found < 0 {
			return // no upstream branch found; dead end
		}
		if visit(found) {
			return
		}
		node = g.Branches[found].From
	}
}
