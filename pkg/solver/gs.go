package solver

import (
	"math/cmplx"

	"distflow/internal/consts"
	"distflow/pkg/cplx"
	"distflow/pkg/network"
	"distflow/pkg/perrors"
)

// GS is the Gauss-Seidel driver. It solves the nodal admittance system
// Y_bus*V = I by in-place per-bus updates with voltage acceleration.
type GS struct {
	MaxIterations int
	Alpha         float64 // voltage acceleration factor, default consts.DefaultGS_Alpha
}

// NewGS returns a GS driver with the default acceleration factor.
func NewGS() *GS {
	return &GS{MaxIterations: 200, Alpha: consts.DefaultGS_Alpha}
}

// AbsorbZeroLengthLines finds every currently-unabsorbed zero-length
// branch and performs parent-child aggregation on it. Per the
// zero-length-line policy, a branch whose "from" node is itself an
// absorbed child (a grandchild configuration) is rejected as a
// topology error.
func AbsorbZeroLengthLines(g *network.Graph, zeroLength func(branchIdx int) bool) error {
	for bi := range g.Branches {
		if !zeroLength(bi) {
			continue
		}
		if err := g.AbsorbZeroLengthChild(bi); err != nil {
			return err
		}
	}
	return nil
}

// Solve runs the accelerated Gauss-Seidel sweep until two consecutive
// passes converge or the iteration cap is reached. A graph containing a
// regulator branch is rejected with an error wrapping
// perrors.ErrNotImplemented.
func (s *GS) Solve(g *network.Graph) (Result, error) {
	if g.SwingIndex < 0 {
		return Result{}, perrors.NewTopologyError("graph", perrors.WithQuantity("swing bus"))
	}
	for _, b := range g.Branches {
		if b.Type == network.LinkRegulator {
			return Result{}, perrors.NewConfigurationError(b.Name,
				perrors.WithQuantity("regulator under Gauss-Seidel"), perrors.WithErr(perrors.ErrNotImplemented))
		}
	}

	alpha := s.Alpha
	if alpha == 0 {
		alpha = consts.DefaultGS_Alpha
	}

	// Seed each bus's YVs with its neighbours' present voltages; updateYVs
	// then keeps it current as buses move.
	for idx, n := range g.Nodes {
		n.YVs = [3]complex128{}
		for _, bi := range g.Incident(idx) {
			b, far := g.Branches[bi], g.OtherEnd(bi, idx)
			if !b.IsClosed() {
				continue
			}
			ySeries := b.YFrom
			if b.To == far {
				ySeries = b.YTo
			}
			contribution := cplx.MulVec3(ySeries, g.Nodes[far].V)
			for p := 0; p < 3; p++ {
				n.YVs[p] += contribution[p]
			}
		}
	}

	var res Result
	consecutiveGood := 0
	for iter := 0; iter < s.MaxIterations; iter++ {
		res.Iterations = iter + 1
		maxDelta := s.sweepOnce(g, alpha)
		res.MaxDelta = maxDelta

		allGood := true
		for _, n := range g.Nodes {
			if n.IsChild() || n.BusType == network.SWING {
				continue
			}
			if maxDelta >= n.MaxVoltageError {
				allGood = false
				break
			}
		}
		if allGood {
			consecutiveGood++
		} else {
			consecutiveGood = 0
		}
		if consecutiveGood >= 2 {
			res.Converged = true
			break
		}
	}
	return res, nil
}

// sweepOnce performs one in-place pass over every non-SWING, non-child
// bus, updating its voltage from the per-node YVs accumulator and its
// own shunt/load admittance, then propagating the resulting delta to
// every neighbor via UpdateYVs. It returns the largest per-phase voltage
// change observed.
func (s *GS) sweepOnce(g *network.Graph, alpha float64) float64 {
	maxDelta := 0.0
	for idx, n := range g.Nodes {
		if n.IsChild() || n.BusType == network.SWING {
			continue
		}

		iInj := nodeCurrentInjection(n)
		yii := s.nodalYii(g, idx, n)
		var newV [3]complex128
		for p := 0; p < 3; p++ {
			if yii[p] == 0 {
				newV[p] = n.V[p]
				continue
			}
			numerator := -iInj[p] + n.YVs[p]
			newV[p] = numerator / yii[p]
		}

		var delta [3]complex128
		for p := 0; p < 3; p++ {
			accel := n.V[p] + complex(alpha, 0)*(newV[p]-n.V[p])
			if n.BusType == network.PV {
				mag := cmplx.Abs(n.V[p])
				ang := cmplx.Phase(accel)
				accel = cplx.SetPolar(mag, ang)
			}
			delta[p] = accel - n.V[p]
			d := cmplx.Abs(delta[p])
			if d > maxDelta {
				maxDelta = d
			}
			n.V[p] = accel
		}

		s.updateYVs(g, idx, delta)
	}
	return maxDelta
}

// nodalYii builds the true per-phase Y_bus diagonal at node idx: the sum
// of every incident closed branch's series admittance diagonal (YFrom's
// for the from-end, YTo's for the to-end) plus the node's own constant-
// impedance load admittance. Dividing by the node's load admittance alone
// starves GS whenever a bus carries only constant-power or constant-
// current load, since Y would then be zero and the bus would never leave
// flat start.
func (s *GS) nodalYii(g *network.Graph, idx int, n *network.Node) [3]complex128 {
	yii := n.Y
	for _, bi := range g.Incident(idx) {
		b := g.Branches[bi]
		if !b.IsClosed() {
			continue
		}
		ySeries := b.YFrom
		if b.To == idx {
			ySeries = b.YTo
		}
		for p := 0; p < 3; p++ {
			yii[p] += ySeries[p][p]
		}
	}
	return yii
}

// updateYVs propagates a voltage delta at node idx to every node at the
// other end of an incident branch: deltaYVs_far = Y_series*deltaV,
// keeping neighboring rows consistent without rebuilding Y_bus.
func (s *GS) updateYVs(g *network.Graph, idx int, delta [3]complex128) {
	for _, bi := range g.Incident(idx) {
		b := g.Branches[bi]
		if !b.IsClosed() {
			continue
		}
		far := g.OtherEnd(bi, idx)
		farNode := g.Nodes[far]
		ySeries := b.YFrom
		if b.To == idx {
			ySeries = b.YTo
		}
		contribution := cplx.MulVec3(ySeries, delta)
		for p := 0; p < 3; p++ {
			farNode.YVs[p] += contribution[p]
		}
	}
}
