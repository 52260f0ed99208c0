package network

// BusType classifies a node's role in the solve.
type BusType int

const (
	PQ BusType = iota
	PV
	SWING
)

func (b BusType) String() string {
	switch b {
	case PQ:
		return "PQ"
	case PV:
		return "PV"
	case SWING:
		return "SWING"
	default:
		return "UNKNOWN"
	}
}

// ServiceStatus reflects whether a node is currently energized.
type ServiceStatus int

const (
	InService ServiceStatus = iota
	OutOfService
)

// NodeKind flattens the node/load/meter/triplex_node family into a tagged
// union: shared state lives on Node, only the kind tag varies behavior in
// the export and solver layers.
type NodeKind int

const (
	KindNode NodeKind = iota
	KindLoad
	KindMeter
	KindTriplexNode
	KindTriplexMeter
)

// Node is the mutable per-bus electrical state.
type Node struct {
	Name    string
	Kind    NodeKind
	Phases  PhaseSet
	BusType BusType

	NominalVoltage float64 // line-to-neutral RMS

	V [3]complex128 // per-phase phasor voltage
	S [3]complex128 // constant-power load
	Y [3]complex128 // constant-impedance load
	I [3]complex128 // constant-current load

	MaxVoltageError float64
	Service         ServiceStatus

	// Parent is set when this node is a child of another via zero-length
	// line absorption; -1 means no parent.
	Parent int

	// BusIndex is this node's row in the BusData table, or -99 if it is a
	// child contributing into its parent's row.
	BusIndex int

	// HasSource tracks forward-sweep reachability from the SWING bus:
	// cleared when the node is no longer fed.
	HasSource bool

	// LastVoltage stores per-phase voltages saved when a phase is removed
	// by a fault, restored when it returns.
	LastVoltage [3]complex128
	// PrevPhases is the phase mask as of the previous solve cycle, used to
	// detect phases that just departed or returned.
	PrevPhases PhaseSet

	// CurrentInjection accumulates forward-back-sweep bottom-up
	// contributions; reset at the start of every sweep.
	CurrentInjection [3]complex128

	// YVs is the Gauss-Seidel per-node admittance*source-voltage
	// accumulator updated by UpdateYVs messages from incident branches.
	YVs [3]complex128
}

// NewNode constructs a Node with sane defaults; MaxVoltageError defaults to
// 1e-6 per-unit-volt absolute error.
func NewNode(name string, phases PhaseSet, busType BusType, nominalVoltage float64) *Node {
	return &Node{
		Name:            name,
		Phases:          phases,
		BusType:         busType,
		NominalVoltage:  nominalVoltage,
		MaxVoltageError: 1e-6,
		Service:         InService,
		Parent:          -1,
		BusIndex:        -1,
		HasSource:       busType == SWING,
	}
}

// IsChild reports whether this node has been absorbed into a parent by
// zero-length-line aggregation.
func (n *Node) IsChild() bool { return n.Parent >= 0 }

// Delta2Line converts delta-connected line currents to line currents using
// the standard transform: I_line_A = I_AB - I_CA.
func Delta2Line(iAB, iBC, iCA complex128) (iA, iB, iC complex128) {
	return iAB - iCA, iBC - iAB, iCA - iBC
}
