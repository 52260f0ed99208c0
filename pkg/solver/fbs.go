package solver

import (
	"math/cmplx"

	"distflow/pkg/cplx"
	"distflow/pkg/network"
	"distflow/pkg/perrors"
)

// FBS is the forward-back sweep driver. It solves a strictly radial
// network with one SWING source by alternating a bottom-up current
// accumulation with a top-down voltage update until every node's
// voltage change falls under its own tolerance.
type FBS struct {
	MaxIterations int
}

// NewFBS returns an FBS driver with a sane default iteration cap.
func NewFBS() *FBS { return &FBS{MaxIterations: 100} }

// topoOrder returns every branch index in breadth-first, SWING-outward
// order. It relies on branches being registered with From toward the
// SWING side and To away from it, the same convention network.Graph's
// UpstreamWalk assumes.
func topoOrder(g *network.Graph) ([]int, error) {
	if g.SwingIndex < 0 {
		return nil, perrors.NewTopologyError("graph", perrors.WithQuantity("swing bus"),
			perrors.WithRemedy("rejected: no SWING node registered"))
	}
	order := make([]int, 0, len(g.Branches))
	visited := make(map[int]bool)
	queue := []int{g.SwingIndex}
	visited[g.SwingIndex] = true
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, bi := range g.Incident(node) {
			b := g.Branches[bi]
			if b.From != node || visited[b.To] {
				continue
			}
			if !b.IsClosed() {
				continue
			}
			order = append(order, bi)
			visited[b.To] = true
			queue = append(queue, b.To)
		}
	}
	return order, nil
}

// Solve runs the bottom-up/top-down sweep until convergence or the
// iteration cap is reached.
func (s *FBS) Solve(g *network.Graph) (Result, error) {
	order, err := topoOrder(g)
	if err != nil {
		return Result{}, err
	}
	reverse := make([]int, len(order))
	for i, bi := range order {
		reverse[len(order)-1-i] = bi
	}

	swing := g.Swing()
	if swing == nil {
		return Result{}, perrors.NewTopologyError("graph", perrors.WithQuantity("swing bus"))
	}

	var res Result
	for iter := 0; iter < s.MaxIterations; iter++ {
		res.Iterations = iter + 1
		propagateNoSource(g, order)
		sync(g, reverse)
		maxDelta, ok := postsync(g, order)
		res.MaxDelta = maxDelta
		if ok {
			res.Converged = true
			break
		}
	}
	return res, nil
}

// propagateNoSource clears HasSource on every node downstream of a
// branch whose from-node has lost its source, so postsync can zero PQ
// voltages rather than propagating stale phasors.
func propagateNoSource(g *network.Graph, order []int) {
	for _, bi := range order {
		b := g.Branches[bi]
		from := g.Nodes[b.From]
		to := g.Nodes[b.To]
		to.HasSource = from.HasSource && b.IsClosed()
	}
}

// sync performs the bottom-up accumulation pass: for each branch, in
// leaves-first order, compute I_from = C*V_to + D*I_to_inj and
// accumulate it into the from-node's current injection.
func sync(g *network.Graph, reverseOrder []int) {
	for _, n := range g.Nodes {
		n.CurrentInjection = nodeCurrentInjection(n)
	}
	applyTriplexNeutralCurrents(g)
	for _, bi := range reverseOrder {
		b := g.Branches[bi]
		toNode := g.Nodes[b.To]
		fromNode := g.Nodes[b.From]

		iToInj := toNode.CurrentInjection
		cV := cplx.MulVec3(b.C, toNode.V)
		dI := cplx.MulVec3(b.D, iToInj)
		for p := 0; p < 3; p++ {
			fromNode.CurrentInjection[p] += cV[p] + dI[p]
		}
	}
}

// applyTriplexNeutralCurrents back-calculates each closed triplex
// branch's neutral current from its two secondary-leg injections and
// folds it into the to-node's third current slot: I_N = tn_1*I_1 +
// tn_2*I_2. Must run after nodeCurrentInjection has populated every
// node's CurrentInjection and before the bottom-up branch accumulation,
// since it reads the to-node's own leg currents, not the accumulated
// downstream total.
func applyTriplexNeutralCurrents(g *network.Graph) {
	for _, b := range g.Branches {
		if b.Type != network.LinkTriplex || !b.IsClosed() {
			continue
		}
		to := g.Nodes[b.To]
		if !to.Phases.Has(network.PhaseS) {
			continue
		}
		i1, i2 := to.CurrentInjection[0], to.CurrentInjection[1]
		to.CurrentInjection[2] = b.TriplexTN[0]*i1 + b.TriplexTN[1]*i2
	}
}

// postsync performs the top-down update pass: for each branch, from
// SWING outward, compute V_to = A*V_from - B*I_to_inj. It returns the
// largest per-phase voltage change observed across all nodes, and
// whether every node's L1-over-phases change fell under its own
// maximum_voltage_error.
func postsync(g *network.Graph, order []int) (maxDelta float64, ok bool) {
	ok = true
	for _, bi := range order {
		b := g.Branches[bi]
		fromNode := g.Nodes[b.From]
		toNode := g.Nodes[b.To]

		if !toNode.HasSource {
			toNode.V = [3]complex128{}
			continue
		}

		aV := cplx.MulVec3(b.A, fromNode.V)
		bI := cplx.MulVec3(b.B, toNode.CurrentInjection)
		var newV [3]complex128
		var l1 float64
		for p := 0; p < 3; p++ {
			newV[p] = aV[p] - bI[p]
			d := cmplx.Abs(newV[p] - toNode.V[p])
			l1 += d
			if d > maxDelta {
				maxDelta = d
			}
		}
		toNode.V = newV
		if l1 >= toNode.MaxVoltageError {
			ok = false
		}
	}
	return maxDelta, ok
}
