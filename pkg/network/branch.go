package network

import "distflow/pkg/cplx"

// LinkType enumerates the kinds of branch the data model supports.
type LinkType int

const (
	LinkOverhead LinkType = iota
	LinkUnderground
	LinkTriplex
	LinkSwitch
	LinkFuse
	LinkRecloser
	LinkSectionalizer
	LinkTransformer
	LinkRegulator
)

func (t LinkType) String() string {
	switch t {
	case LinkOverhead:
		return "overhead"
	case LinkUnderground:
		return "underground"
	case LinkTriplex:
		return "triplex"
	case LinkSwitch:
		return "switch"
	case LinkFuse:
		return "fuse"
	case LinkRecloser:
		return "recloser"
	case LinkSectionalizer:
		return "sectionalizer"
	case LinkTransformer:
		return "transformer"
	case LinkRegulator:
		return "regulator"
	default:
		return "unknown"
	}
}

// IsProtectiveDevice reports whether this link type is a candidate stopping
// point for the upstream fault walk.
func (t LinkType) IsProtectiveDevice() bool {
	switch t {
	case LinkFuse, LinkRecloser, LinkSectionalizer, LinkSwitch, LinkTransformer:
		return true
	default:
		return false
	}
}

// BranchStatus is the open/closed state of a link.
type BranchStatus int

const (
	Closed BranchStatus = iota
	Open
)

// TransformerConnection distinguishes the current-computation formula a
// transformer/regulator branch's two-port was built for; meaningless for
// every other link type.
type TransformerConnection int

const (
	ConnWyeWye TransformerConnection = iota
	ConnDeltaDelta
	ConnDeltaGroundedWye
	ConnSplitPhase
)

// Branch is a mutable link between two nodes, carrying the two-port
// parameters the solvers consume.
type Branch struct {
	Name string
	Type LinkType

	From int // index into a Node slice/table
	To   int

	Phases     PhaseSet
	OrigPhases PhaseSet // phase set before any fault removed phases
	FaultMask  PhaseSet // phases currently removed by a fault

	// Two-port ABCD parameters, with Z == b.
	A, B, C, D cplx.Matrix3

	// Admittance blocks consumed by the Newton-Raphson stamp.
	YFrom, YTo   cplx.Matrix3
	YSFrom, YSTo cplx.Matrix3

	Status BranchStatus

	// VRatio is primary:secondary turns ratio; 1.0 for non-transformers.
	VRatio float64

	// Connection selects which of the three transformer/regulator
	// current-computation formulas computeBranchCurrents applies.
	// Meaningless for non-transformer branches.
	Connection TransformerConnection

	// PrimaryPhase is the 0/1/2 (A/B/C) index of a split-phase
	// transformer's single energized primary winding. Meaningless for
	// every other connection type.
	PrimaryPhase int

	// ConfigName is the line configuration (or transformer configuration)
	// this branch was built from, carried through only so the topology
	// exporter can report a line_code id; empty for explicit-matrix lines
	// with no named configuration.
	ConfigName string

	// LengthFt is the physical line length in feet, 0 for switches,
	// fuses, reclosers, sectionalizers, transformers, and regulators.
	LengthFt float64

	// TriplexTN is the neutral back-calculation vector retained for
	// triplex secondary lines: tn = (-z13/z33, -z23/z33, 0).
	TriplexTN [3]complex128

	// CurrentIn and CurrentOut are the most recently computed from-end
	// and to-end branch currents, reported by whichever solver ran last.
	// They coincide for a general line (I_to = I_from) but differ for a
	// transformer, where the turns ratio and connection separate the
	// high-side and low-side currents.
	CurrentIn  [3]complex128
	CurrentOut [3]complex128

	// ProtectLocations records, per phase, the branch index of the
	// protective device that tripped to clear a fault on this branch, or
	// -1 if that phase has no recorded protection event. Populated by
	// fault induction, consumed by restoration.
	ProtectLocations [3]int

	// MeanRepairTimeSec is the device's expected time to restore service,
	// used by reliability accounting. Must be non-negative.
	MeanRepairTimeSec float64

	// Recloser/sectionalizer/fuse bookkeeping, meaningful only when Type
	// is the corresponding protective-device kind.
	RetryCount           int
	MaxRetries           int
	ReattemptIntervalSec float64
	LockedPhases         PhaseSet // phases this recloser has permanently locked out
	Operated             bool     // a recloser or fuse on this branch has tripped since last reset
}

// NewBranch constructs a Branch with defaults matching a non-transformer,
// fully in-service link.
func NewBranch(name string, t LinkType, from, to int, phases PhaseSet) *Branch {
	return &Branch{
		Name:             name,
		Type:             t,
		From:             from,
		To:               to,
		Phases:           phases,
		OrigPhases:       phases,
		Status:           Closed,
		VRatio:           1.0,
		ProtectLocations: [3]int{-1, -1, -1},
	}
}

// EffectivePhases returns the currently energized phase set: the original
// phase set with any faulted phases removed. RemovePhases and
// RestorePhases keep Phases == EffectivePhases().
func (b *Branch) EffectivePhases() PhaseSet {
	return b.OrigPhases &^ b.FaultMask
}

// IsClosed reports whether current can flow on this branch at all.
func (b *Branch) IsClosed() bool { return b.Status == Closed }

// RemovePhases applies a fault phase mask and recomputes Phases, so a
// branch of any link type, fuses and switches included, opens per phase.
func (b *Branch) RemovePhases(mask PhaseSet) {
	b.FaultMask |= mask
	b.Phases = b.EffectivePhases()
}

// RestorePhases clears a previously applied fault mask.
func (b *Branch) RestorePhases(mask PhaseSet) {
	b.FaultMask &^= mask
	b.Phases = b.EffectivePhases()
}
