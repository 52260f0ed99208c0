package linebuilder

import "distflow/pkg/cplx"

// ConnectionType enumerates the transformer/regulator wiring patterns.
type ConnectionType int

const (
	WyeWye ConnectionType = iota
	DeltaDelta
	DeltaGroundedWye
	SplitPhase
)

// TransformerInputs describes a two-winding transformer branch.
type TransformerInputs struct {
	Connection ConnectionType
	VRatio     float64 // V_primary / V_secondary
	Zleakage   cplx.Matrix3
	Present    [3]bool

	// PrimaryPhase is the primary phase index used by the split-phase
	// connection to decide which row of the admittance block to populate
	// (A=0, B=1, C=2); an out-of-range value selects A.
	PrimaryPhase int
}

// RegulatorInputs extends TransformerInputs with a per-phase tap ratio
// that multiplies the off-diagonal entries of B.
type RegulatorInputs struct {
	TransformerInputs
	TapRatio [3]float64
}

// BuildTransformer produces the two-port ABCD parameters and admittance
// blocks for a transformer.
//
// WYE-WYE and DELTA-DELTA share the same admittance form:
// Y_from = Y_to / v_ratio^2, with the series block the inverse of the
// leakage impedance referred to the secondary.
//
// DELTA-GROUNDED-WYE introduces a phase shift: a, d, b, B are built from
// the connection matrix (a cyclic +-1 pattern) rather than the identity.
//
// SPLIT-PHASE populates a dense 2x2 Y_to on the secondary and a scalar
// Y_from on the single primary phase selected by PrimaryPhase.
func BuildTransformer(in TransformerInputs) (TwoPort, error) {
	switch in.Connection {
	case WyeWye, DeltaDelta:
		return buildWyeWyeOrDeltaDelta(in)
	case DeltaGroundedWye:
		return buildDeltaGroundedWye(in)
	case SplitPhase:
		return buildSplitPhase(in)
	default:
		return buildWyeWyeOrDeltaDelta(in)
	}
}

func buildWyeWyeOrDeltaDelta(in TransformerInputs) (TwoPort, error) {
	zInv, err := cplx.InversePresent(in.Zleakage, in.Present)
	if err != nil {
		return TwoPort{}, err
	}
	v2 := complex(in.VRatio*in.VRatio, 0)
	yTo := zInv
	yFrom := cplx.MulScalar3(1/v2, yTo)

	a := cplx.Identity3()
	b := in.Zleakage
	return TwoPort{A: a, B: b, C: yTo, D: a, YFrom: yFrom, YTo: yTo}, nil
}

// deltaGroundedWyeConnection is the cyclic connection matrix relating
// delta primary line currents/voltages to grounded-wye secondary
// quantities, per phase A-B-C ordering.
func deltaGroundedWyeConnection() cplx.Matrix3 {
	return cplx.Matrix3{
		{1, -1, 0},
		{0, 1, -1},
		{-1, 0, 1},
	}
}

func buildDeltaGroundedWye(in TransformerInputs) (TwoPort, error) {
	conn := deltaGroundedWyeConnection()
	a := cplx.MulScalar3(complex(1/in.VRatio, 0), conn)
	d := a
	b := cplx.Mul3(conn, in.Zleakage)

	zInv, err := cplx.InversePresent(in.Zleakage, in.Present)
	if err != nil {
		return TwoPort{}, err
	}
	v2 := complex(in.VRatio*in.VRatio, 0)
	yTo := zInv
	yFrom := cplx.MulScalar3(1/v2, yTo)

	return TwoPort{A: a, B: b, C: yTo, D: d, YFrom: yFrom, YTo: yTo}, nil
}

func buildSplitPhase(in TransformerInputs) (TwoPort, error) {
	zInv, err := cplx.InversePresent(in.Zleakage, [3]bool{true, true, false})
	if err != nil {
		return TwoPort{}, err
	}
	var yTo cplx.Matrix3
	yTo[0][0], yTo[0][1] = zInv[0][0], zInv[0][1]
	yTo[1][0], yTo[1][1] = zInv[1][0], zInv[1][1]

	var yFrom cplx.Matrix3
	p := in.PrimaryPhase
	if p < 0 || p > 2 {
		p = 0
	}
	yFrom[p][p] = yTo[0][0] / complex(in.VRatio*in.VRatio, 0)

	return TwoPort{A: cplx.Identity3(), B: in.Zleakage, C: yTo, D: cplx.Identity3(), YFrom: yFrom, YTo: yTo}, nil
}

// BuildRegulator extends BuildTransformer with a per-phase tap ratio
// that multiplies the off-diagonal entries of B.
func BuildRegulator(in RegulatorInputs) (TwoPort, error) {
	tp, err := BuildTransformer(in.TransformerInputs)
	if err != nil {
		return TwoPort{}, err
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				continue
			}
			tp.B[i][j] *= complex(in.TapRatio[i], 0)
		}
	}
	return tp, nil
}
