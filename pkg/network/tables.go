package network

import (
	"distflow/pkg/cplx"
	"distflow/pkg/perrors"
)

// BusRow is one row of the flat bus table consumed by the Newton-Raphson
// driver.
type BusRow struct {
	NodeIndex int // index into Graph.Nodes
	Phases    PhaseSet
	BusType   BusType

	V [3]complex128
	S [3]complex128 // constant-power load
	Y [3]complex128 // constant-impedance load
	I [3]complex128 // constant-current load
}

// BranchRow is one row of the flat branch table.
type BranchRow struct {
	BranchIndex int
	From, To    int // BusRow indices, after child collapsing
	Phases      PhaseSet

	A, B, C, D cplx.Matrix3
	YFrom, YTo cplx.Matrix3
}

// Tables is the pair of flat arrays the Newton-Raphson solver operates
// on, rebuilt by BuildTables at the start of every Newton-Raphson solve.
type Tables struct {
	Buses    []BusRow
	Branches []BranchRow

	// SwingRow is the BusRow index holding the SWING bus; always a known,
	// reserved position once built.
	SwingRow int

	// nodeToRow maps a Graph.Nodes index to its owning BusRow index
	// (itself, or its parent's row if it is a child).
	nodeToRow []int
}

// RowOf returns the BusRow index that owns nodeIdx, resolving through
// zero-length-line parentage.
func (t *Tables) RowOf(nodeIdx int) int {
	if nodeIdx < 0 || nodeIdx >= len(t.nodeToRow) {
		return -1
	}
	return t.nodeToRow[nodeIdx]
}

// BuildTables constructs the flat BusData/BranchData tables from a
// Graph's current node and branch set. Zero-length-line absorption
// (Node.IsChild()) is unsupported by Newton-Raphson; a graph carrying
// any absorbed child is rejected rather than folded. Forward-back sweep
// and Gauss-Seidel do not use these tables.
func BuildTables(g *Graph) (*Tables, error) {
	for _, n := range g.Nodes {
		if n.IsChild() {
			return nil, perrors.NewTopologyError(n.Name,
				perrors.WithQuantity("zero-length line absorption"),
				perrors.WithRemedy("unsupported by Newton-Raphson; solve with forward-back sweep or Gauss-Seidel instead"))
		}
	}

	t := &Tables{
		nodeToRow: make([]int, len(g.Nodes)),
		SwingRow:  -1,
	}

	for i, n := range g.Nodes {
		row := BusRow{
			NodeIndex: i,
			Phases:    n.Phases,
			BusType:   n.BusType,
			V:         n.V,
			S:         n.S,
			Y:         n.Y,
			I:         n.I,
		}
		rowIdx := len(t.Buses)
		t.Buses = append(t.Buses, row)
		t.nodeToRow[i] = rowIdx
		n.BusIndex = rowIdx
		if i == g.SwingIndex {
			t.SwingRow = rowIdx
		}
	}

	for bi, b := range g.Branches {
		t.Branches = append(t.Branches, BranchRow{
			BranchIndex: bi,
			From:        t.nodeToRow[b.From],
			To:          t.nodeToRow[b.To],
			Phases:      b.Phases,
			A:           b.A,
			B:           b.B,
			C:           b.C,
			D:           b.D,
			YFrom:       b.YFrom,
			YTo:         b.YTo,
		})
	}

	return t, nil
}
