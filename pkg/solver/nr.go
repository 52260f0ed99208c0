package solver

import (
	"math/cmplx"

	"distflow/pkg/network"
	"distflow/pkg/perrors"
)

// NR is the Newton-Raphson driver. The two-cycle protocol described in
// the nodal-admittance formulation is realized here as: cycle A builds
// the flat bus/branch tables from the current graph state (a graph with
// absorbed zero-length children is rejected); cycle B stamps a sparse Y_bus
// from those tables and runs a current-injection fixed point to
// convergence, writing V back into every node and computing each
// branch's current_in/current_out from its ABCD matrices.
type NR struct {
	MaxIterations      int
	InnerTolerance     float64
	MaxInnerIterations int
}

// NewNR returns an NR driver with default iteration caps.
func NewNR() *NR {
	return &NR{MaxIterations: 30, InnerTolerance: 1e-9, MaxInnerIterations: 50}
}

// Solve runs the two-cycle protocol once. A returned ConvergenceFailure
// is soft: the caller may re-request the same timestep. A singular
// Y_bus is reported as a NumericalError and is not retried.
func (nr *NR) Solve(g *network.Graph) (Result, error) {
	if g.SwingIndex < 0 {
		return Result{}, perrors.NewTopologyError("graph", perrors.WithQuantity("swing bus"))
	}

	trackPhaseTransitions(g)

	tbl, err := network.BuildTables(g)
	if err != nil {
		return Result{}, err
	}

	size := 3 * len(tbl.Buses)
	sys, err := newYSystem(size)
	if err != nil {
		return Result{}, err
	}
	stampYBus(sys, tbl)

	var res Result
	for iter := 0; iter < nr.InnerIterationsOrDefault(); iter++ {
		res.Iterations = iter + 1
		sys.clearRHSOnly()
		stampCurrentInjections(sys, tbl)

		v, err := sys.solve()
		if err != nil {
			return Result{}, err
		}

		maxDelta := writeBackVoltages(tbl, v)
		res.MaxDelta = maxDelta
		if maxDelta < nr.tolerance() {
			res.Converged = true
			break
		}
	}

	if !res.Converged {
		return res, perrors.NewConvergenceFailure("nr", perrors.WithQuantity("voltage mismatch"))
	}

	writeBackToGraph(g, tbl)
	computeBranchCurrents(g)
	g.AdmitChange = false

	return res, nil
}

func (nr *NR) InnerIterationsOrDefault() int {
	if nr.MaxInnerIterations > 0 {
		return nr.MaxInnerIterations
	}
	return 50
}

func (nr *NR) tolerance() float64 {
	if nr.InnerTolerance > 0 {
		return nr.InnerTolerance
	}
	return 1e-9
}

// trackPhaseTransitions XORs each node's previous and current phase
// masks: voltages for a phase that just departed are saved into
// LastVoltage; voltages for a phase that just returned are restored
// from it. This keeps a transient fault from leaving stale phasors
// behind.
func trackPhaseTransitions(g *network.Graph) {
	for _, n := range g.Nodes {
		changed := n.PrevPhases ^ n.Phases
		for i, bit := range network.ABC {
			if !changed.Has(bit) {
				continue
			}
			if !n.Phases.Has(bit) {
				n.LastVoltage[i] = n.V[i]
				n.V[i] = 0
			} else {
				n.V[i] = n.LastVoltage[i]
			}
		}
		n.PrevPhases = n.Phases
	}
}

// rowCol maps a (busRow, phaseIndex) pair to a 1-based sparse matrix
// index.
func rowCol(bus, phase int) int { return bus*3 + phase + 1 }

func stampYBus(sys *ySystem, tbl *network.Tables) {
	for i := range tbl.Buses {
		for p := 0; p < 3; p++ {
			sys.addY(rowCol(i, p), rowCol(i, p), 1e-12) // numerical floor against isolated phases
		}
	}
	for _, br := range tbl.Branches {
		for p := 0; p < 3; p++ {
			for q := 0; q < 3; q++ {
				yff := br.YFrom[p][q]
				ytt := br.YTo[p][q]
				if yff != 0 {
					sys.addY(rowCol(br.From, p), rowCol(br.From, q), yff)
					sys.addY(rowCol(br.From, p), rowCol(br.To, q), -yff)
				}
				if ytt != 0 {
					sys.addY(rowCol(br.To, p), rowCol(br.To, q), ytt)
					sys.addY(rowCol(br.To, p), rowCol(br.From, q), -ytt)
				}
			}
		}
	}
	for p := 0; p < 3; p++ {
		// SWING row forced to its own equation V_swing = known, by a very
		// large diagonal pull; the matching RHS term is stamped each
		// cycle in stampCurrentInjections.
		sys.addY(rowCol(tbl.SwingRow, p), rowCol(tbl.SwingRow, p), 1e9)
	}
}

func stampCurrentInjections(sys *ySystem, tbl *network.Tables) {
	for i := range tbl.Buses {
		bus := &tbl.Buses[i]
		iInj := loadCurrentInjection(bus.Phases, bus.V, bus.S, bus.Y, bus.I)
		for p := 0; p < 3; p++ {
			sys.addCurrent(rowCol(i, p), iInj[p])
		}
	}
	for p := 0; p < 3; p++ {
		swing := &tbl.Buses[tbl.SwingRow]
		sys.addCurrent(rowCol(tbl.SwingRow, p), swing.V[p]*complex(1e9, 0))
	}
}

func writeBackVoltages(tbl *network.Tables, v []complex128) float64 {
	maxDelta := 0.0
	for i := range tbl.Buses {
		bus := &tbl.Buses[i]
		for p := 0; p < 3; p++ {
			nv := v[rowCol(i, p)]
			d := cmplx.Abs(nv - bus.V[p])
			if d > maxDelta {
				maxDelta = d
			}
			bus.V[p] = nv
		}
	}
	return maxDelta
}

func writeBackToGraph(g *network.Graph, tbl *network.Tables) {
	for i, n := range g.Nodes {
		row := tbl.RowOf(i)
		if row < 0 {
			continue
		}
		n.V = tbl.Buses[row].V
	}
}

// computeBranchCurrents fills each closed branch's current_in/current_out
// from the converged bus voltages, dispatching on connection type since
// a transformer's two-port does not reduce to the general-line relation.
func computeBranchCurrents(g *network.Graph) {
	for i := range g.Branches {
		b := g.Branches[i]
		if !b.IsClosed() {
			continue
		}
		from := g.Nodes[b.From]
		to := g.Nodes[b.To]

		if b.Type == network.LinkTransformer || b.Type == network.LinkRegulator {
			switch b.Connection {
			case network.ConnDeltaGroundedWye:
				computeDeltaGWyeCurrents(b, from, to)
			case network.ConnSplitPhase:
				computeSplitPhaseCurrents(b, from, to)
			default:
				computeInRatioCurrents(b, from, to)
			}
			continue
		}

		computeLineCurrents(b, from, to)
		if b.Type == network.LinkTriplex && to.Phases.Has(network.PhaseS) {
			b.CurrentIn[2] = b.TriplexTN[0]*b.CurrentIn[0] + b.TriplexTN[1]*b.CurrentIn[1]
			b.CurrentOut[2] = b.CurrentIn[2]
		}
	}
}

// computeLineCurrents applies the general-line relation
// I_from = Y_from*(V_from - A*V_to); from and to currents coincide since
// a line has no turns ratio to separate them.
func computeLineCurrents(b *network.Branch, from, to *network.Node) {
	aVto := mulVec3Local(b.A, to.V)
	var vTemp [3]complex128
	for p := 0; p < 3; p++ {
		vTemp[p] = from.V[p] - aVto[p]
	}
	i := mulVec3Local(b.YFrom, vTemp)
	b.CurrentIn = i
	b.CurrentOut = i
}

// computeInRatioCurrents applies the wye-wye/delta-delta transformer
// relation: the high-side current is the secondary admittance referred
// to the primary times (V_from - A*V_to); the low-side current follows
// from the high-side current through A, corrected on each present phase
// by the turns-ratio-scaled secondary voltage.
func computeInRatioCurrents(b *network.Branch, from, to *network.Node) {
	aVto := mulVec3Local(b.A, to.V)
	var vTemp [3]complex128
	for p := 0; p < 3; p++ {
		vTemp[p] = from.V[p] - aVto[p]
	}
	iHigh := mulVec3Local(b.YFrom, vTemp)
	iLow := mulVec3Local(b.A, iHigh)
	ratio := complex(b.VRatio, 0)
	for p := 0; p < 3; p++ {
		if b.Phases.Has(network.ABC[p]) {
			iLow[p] -= to.V[p] / b.A[p][p] * ratio
		}
	}
	b.CurrentIn = iHigh
	b.CurrentOut = iLow
}

// computeDeltaGWyeCurrents applies the delta-grounded-wye relation: the
// low-side current is the secondary admittance diagonal times the
// connection-matrix-transformed voltage difference, folded back to the
// high side through D (identical to A for this connection). Delta-
// grounded-wye is three-phase only.
func computeDeltaGWyeCurrents(b *network.Branch, from, to *network.Node) {
	if !b.Phases.Has(network.PhaseA) || !b.Phases.Has(network.PhaseB) || !b.Phases.Has(network.PhaseC) {
		b.CurrentIn = [3]complex128{}
		b.CurrentOut = [3]complex128{}
		return
	}
	aVfrom := mulVec3Local(b.A, from.V)
	var vTemp [3]complex128
	for p := 0; p < 3; p++ {
		vTemp[p] = aVfrom[p] - to.V[p]
	}
	var iLow [3]complex128
	for p := 0; p < 3; p++ {
		iLow[p] = vTemp[p] * b.YTo[p][p]
	}
	b.CurrentOut = iLow
	b.CurrentIn = mulVec3Local(b.D, iLow)
}

// computeSplitPhaseCurrents applies the center-tapped secondary relation:
// each secondary leg's current is driven by the single energized primary
// phase through the secondary admittance block, and the primary current
// is the sum of the two leg currents reflected through the turns ratio
// (ampere-turn balance).
func computeSplitPhaseCurrents(b *network.Branch, from, to *network.Node) {
	p := b.PrimaryPhase
	if p < 0 || p > 2 {
		p = 0
	}
	vtemp := [3]complex128{from.V[p] - to.V[0], from.V[p] - to.V[1], 0}
	iOut := mulVec3Local(b.YTo, vtemp)
	b.CurrentOut = iOut

	var iIn [3]complex128
	iIn[p] = (iOut[0] + iOut[1]) / complex(b.VRatio, 0)
	b.CurrentIn = iIn
}

func mulVec3Local(a [3][3]complex128, v [3]complex128) [3]complex128 {
	var r [3]complex128
	for i := 0; i < 3; i++ {
		var sum complex128
		for k := 0; k < 3; k++ {
			sum += a[i][k] * v[k]
		}
		r[i] = sum
	}
	return r
}
