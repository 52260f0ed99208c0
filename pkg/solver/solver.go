// Package solver implements the three power-flow drivers that operate
// over a network.Graph: forward-back sweep, Gauss-Seidel, and
// Newton-Raphson. Each has its own convergence contract but shares the
// same per-node load model.
package solver

import "distflow/pkg/network"

// Result reports the outcome of one solve attempt.
type Result struct {
	Converged  bool
	Iterations int
	MaxDelta   float64 // largest per-node voltage change on the final pass
}

// Method identifies which driver produced a Result, for logging.
type Method int

const (
	MethodFBS Method = iota
	MethodGS
	MethodNR
)

func (m Method) String() string {
	switch m {
	case MethodFBS:
		return "fbs"
	case MethodGS:
		return "gs"
	case MethodNR:
		return "nr"
	default:
		return "unknown"
	}
}

// nodeCurrentInjection computes a node's line current injection from its
// constant-power, constant-impedance, and constant-current loads at the
// present voltage, dispatching to the delta form for delta-connected
// loads and the wye form otherwise.
func nodeCurrentInjection(n *network.Node) [3]complex128 {
	return loadCurrentInjection(n.Phases, n.V, n.S, n.Y, n.I)
}

// loadCurrentInjection computes a bus's line current injection from its
// constant-power, constant-impedance, and constant-current loads at the
// present voltage, dispatching on phase set; shared by FBS/GS's
// per-node sweep and NR's flat bus table, which carry the same four load
// arrays under different struct types.
func loadCurrentInjection(phases network.PhaseSet, v, s, y, i [3]complex128) [3]complex128 {
	if phases.Has(network.PhaseD) {
		return deltaCurrentInjection(v, s, y, i)
	}
	return wyeCurrentInjection(v, s, y, i)
}

// wyeCurrentInjection computes the wye-equivalent current injection for a
// bus's constant-power, constant-impedance, and constant-current loads at
// its present voltage:
//
//	I_wye_i = conj(S_i/V_i) + V_i*Y_i + I_const_i
func wyeCurrentInjection(v, s, y, iConst [3]complex128) [3]complex128 {
	var i [3]complex128
	for p := 0; p < 3; p++ {
		if v[p] == 0 {
			continue
		}
		i[p] = cconj(s[p]/v[p]) + v[p]*y[p] + iConst[p]
	}
	return i
}

// deltaCurrentInjection computes a delta-connected bus's line current
// injection. S[0..2]/Y[0..2]/I[0..2] hold the AB/BC/CA delta quantities;
// each load component is independently converted to a delta current at
// the present delta voltage, summed per delta leg, then folded to line
// currents via deltaToLineCurrents.
func deltaCurrentInjection(v, s, y, iConst [3]complex128) [3]complex128 {
	vd := [3]complex128{
		v[0] - v[1], // AB
		v[1] - v[2], // BC
		v[2] - v[0], // CA
	}

	var iDelta [3]complex128
	for k := 0; k < 3; k++ {
		if vd[k] != 0 {
			iDelta[k] += cconj(s[k] / vd[k])
		}
		iDelta[k] += vd[k] * y[k]
		iDelta[k] += iConst[k]
	}
	return deltaToLineCurrents(iDelta[0], iDelta[1], iDelta[2])
}

func cconj(c complex128) complex128 { return complex(real(c), -imag(c)) }

// deltaToLineCurrents converts delta-connected phase currents (AB, BC,
// CA) to line currents via I_line_A = I_AB - I_CA, etc.
func deltaToLineCurrents(iAB, iBC, iCA complex128) [3]complex128 {
	a, b, c := network.Delta2Line(iAB, iBC, iCA)
	return [3]complex128{a, b, c}
}
