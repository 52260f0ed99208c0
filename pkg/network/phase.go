// Package network implements the per-phase electrical data model: nodes
// carrying complex voltages and loads, branches carrying 3x3
// impedance/admittance matrices, and the flat BusData/BranchData tables
// consumed by the Newton-Raphson solver.
package network

import "strings"

// PhaseSet is a bit set over {A, B, C, N, D, S}.
type PhaseSet uint8

const (
	PhaseA PhaseSet = 1 << iota
	PhaseB
	PhaseC
	PhaseN
	PhaseD // delta connection
	PhaseS // split-phase (triplex) secondary
)

// PhaseABC is the common three-phase bit combination.
const PhaseABC = PhaseA | PhaseB | PhaseC

// Has reports whether every bit in sub is set in p.
func (p PhaseSet) Has(sub PhaseSet) bool { return p&sub == sub }

// HasAny reports whether any bit in sub is set in p.
func (p PhaseSet) HasAny(sub PhaseSet) bool { return p&sub != 0 }

// Count returns the number of A/B/C phase bits set (not N/D/S).
func (p PhaseSet) Count() int {
	n := 0
	for _, b := range [3]PhaseSet{PhaseA, PhaseB, PhaseC} {
		if p.Has(b) {
			n++
		}
	}
	return n
}

// Index maps PhaseA/B/C to 0/1/2 for indexing into [3]complex128 arrays,
// and -1 for anything else.
func Index(p PhaseSet) int {
	switch p {
	case PhaseA:
		return 0
	case PhaseB:
		return 1
	case PhaseC:
		return 2
	default:
		return -1
	}
}

// ABC is the ordered list of the three phase bits, for range loops that need
// a stable iteration order paired with an index 0..2.
var ABC = [3]PhaseSet{PhaseA, PhaseB, PhaseC}

// Valid enforces the phase-set connection rules: a delta connection
// requires all three phases present, and delta/split-phase are mutually
// exclusive.
func (p PhaseSet) Valid() bool {
	if p.Has(PhaseD) && !p.Has(PhaseABC) {
		return false
	}
	if p.Has(PhaseD) && p.Has(PhaseS) {
		return false
	}
	return true
}

func (p PhaseSet) String() string {
	var sb strings.Builder
	for _, x := range []struct {
		bit PhaseSet
		ch  byte
	}{{PhaseA, 'A'}, {PhaseB, 'B'}, {PhaseC, 'C'}, {PhaseN, 'N'}, {PhaseD, 'D'}, {PhaseS, 'S'}} {
		if p.Has(x.bit) {
			sb.WriteByte(x.ch)
		}
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}

// ParsePhaseSet parses a phase-set string such as "ABC", "AN", "ABCD".
func ParsePhaseSet(s string) PhaseSet {
	var p PhaseSet
	for _, c := range s {
		switch c {
		case 'A', 'a':
			p |= PhaseA
		case 'B', 'b':
			p |= PhaseB
		case 'C', 'c':
			p |= PhaseC
		case 'N', 'n':
			p |= PhaseN
		case 'D', 'd':
			p |= PhaseD
		case 'S', 's':
			p |= PhaseS
		}
	}
	return p
}
