package fault

import (
	"math/rand"

	"distflow/pkg/network"
	"distflow/pkg/perrors"
)

// ReliabilityHook is the external adapter invoked whenever a fault is
// induced or cleared, letting a caller cascade the phase loss to
// downstream islands without this package depending on a reliability
// engine directly.
type ReliabilityHook interface {
	OnFaultCheck(g *network.Graph, branchIdx int, mask network.PhaseSet)
	OnRestore(g *network.Graph, branchIdx int, mask network.PhaseSet)
}

// NoopHook satisfies ReliabilityHook by doing nothing, the default when
// no external reliability engine is wired in.
type NoopHook struct{}

func (NoopHook) OnFaultCheck(*network.Graph, int, network.PhaseSet) {}
func (NoopHook) OnRestore(*network.Graph, int, network.PhaseSet)    {}

// Event is one applied fault, returned by LinkFaultOn so the caller can
// pass it back to LinkFaultOff later.
type Event struct {
	Kind      Kind
	BranchIdx int
	Mask      network.PhaseSet
}

// resolveMask picks the phase-removal mask for a fault kind against a
// branch's currently-present phases, sampling a random still-healthy
// phase for "X" kinds.
func resolveMask(k Kind, present network.PhaseSet, rng *rand.Rand) (network.PhaseSet, error) {
	if !k.isX() {
		mask := k.fixedMask()
		if mask == 0 {
			// Only the OC kinds reach here: OC3 takes every present
			// phase, while OC and OC2 name no phase and are rejected
			// as a configuration error.
			if k.phaseCount() == 3 {
				return present, nil
			}
			return 0, perrors.NewConfigurationError("fault kind", perrors.WithQuantity(k.String()))
		}
		if k.phaseCount() == 3 {
			return present, nil
		}
		return mask & present, nil
	}

	n := k.phaseCount()
	healthy := make([]network.PhaseSet, 0, 3)
	for _, bit := range network.ABC {
		if present.Has(bit) {
			healthy = append(healthy, bit)
		}
	}
	if len(healthy) == 0 {
		return 0, perrors.NewConfigurationError("fault kind", perrors.WithQuantity("no healthy phases present"))
	}
	if len(healthy) == 1 || n == 1 {
		return healthy[rng.Intn(len(healthy))], nil
	}

	// n == 2: sample two distinct healthy phases uniformly.
	if len(healthy) < 2 {
		return healthy[0], nil
	}
	i := rng.Intn(len(healthy))
	j := rng.Intn(len(healthy) - 1)
	if j >= i {
		j++
	}
	return healthy[i] | healthy[j], nil
}

// LinkFaultOn induces a fault on branchIdx: masks the affected phases,
// computes the fault current, walks upstream to the first protective
// device per phase, and invokes the reliability hook. The to-node's
// voltages on the masked phases are saved into LastVoltage for
// LinkFaultOff. NR_admit_change is set on the graph so the
// Newton-Raphson driver rebuilds its Y_bus.
func LinkFaultOn(g *network.Graph, branchIdx int, k Kind, hook ReliabilityHook) (Event, error) {
	b := g.Branches[branchIdx]
	mask, err := resolveMask(k, b.EffectivePhases(), g.RNG())
	if err != nil {
		return Event{}, err
	}

	b.RemovePhases(mask)
	toNode := g.Nodes[b.To]
	for i, bit := range network.ABC {
		if mask.Has(bit) {
			toNode.LastVoltage[i] = toNode.V[i]
		}
	}
	g.MarkDirty()

	if _, err := FaultCurrent(g, branchIdx, mask, k); err != nil {
		// NumericalError here is advisory per the propagation policy: the
		// fault still applies, only the reported current is unavailable.
		if !perrors.IsKind(err, perrors.NumericalError) {
			return Event{}, err
		}
	}

	walkAndTrip(g, branchIdx, mask, k)

	if hook == nil {
		hook = NoopHook{}
	}
	hook.OnFaultCheck(g, branchIdx, mask)

	return Event{Kind: k, BranchIdx: branchIdx, Mask: mask}, nil
}

// walkAndTrip walks upstream from the faulted branch's "to" node toward
// SWING, stopping at the first device that trips under the rules in the
// switch below, and records that device's branch index in ProtectLocations for
// each affected phase.
func walkAndTrip(g *network.Graph, branchIdx int, mask network.PhaseSet, k Kind) {
	b := g.Branches[branchIdx]
	var tripped int = -1

	g.UpstreamWalk(b.To, func(bi int) bool {
		up := g.Branches[bi]
		switch up.Type {
		case network.LinkRecloser:
			up.RetryCount++
			up.Operated = true
			up.LockedPhases |= mask
			up.RemovePhases(mask)
			tripped = bi
			return true
		case network.LinkSectionalizer:
			if recloserOperatedDownstream(g, bi) {
				up.RemovePhases(mask)
				tripped = bi
				return true
			}
			return false
		case network.LinkFuse:
			up.RemovePhases(mask)
			up.Operated = true
			tripped = bi
			return true
		case network.LinkSwitch:
			if k.isSwitchKind() {
				up.RemovePhases(mask)
				tripped = bi
				return true
			}
			return false
		case network.LinkTransformer:
			up.RemovePhases(network.PhaseABC)
			tripped = bi
			return true
		default:
			return false
		}
	})

	if tripped < 0 {
		// Nothing stopped the walk before SWING: remove phases at the
		// source itself.
		swing := g.Swing()
		if swing != nil {
			swing.Phases &^= mask
		}
	}

	for i, bit := range network.ABC {
		if mask.Has(bit) {
			b.ProtectLocations[i] = tripped
		}
	}
}

// recloserOperatedDownstream reports whether any recloser reachable
// downstream of bi (away from SWING) has Operated set, the condition a
// sectionalizer consults before deciding to trip itself.
func recloserOperatedDownstream(g *network.Graph, bi int) bool {
	b := g.Branches[bi]
	for _, childBi := range g.Incident(b.To) {
		if childBi == bi {
			continue
		}
		child := g.Branches[childBi]
		if child.From != b.To {
			continue
		}
		if child.Type == network.LinkRecloser && child.Operated {
			return true
		}
		if recloserOperatedDownstream(g, childBi) {
			return true
		}
	}
	return false
}

// LinkFaultOff clears a previously applied fault event: restores the
// phases at each recorded protective device (unless the upstream supply
// on that phase is itself absent), restores last_voltage on the node,
// and clears the fault mask.
func LinkFaultOff(g *network.Graph, ev Event, hook ReliabilityHook) error {
	b := g.Branches[ev.BranchIdx]

	for i, bit := range network.ABC {
		if !ev.Mask.Has(bit) {
			continue
		}
		devIdx := b.ProtectLocations[i]
		if devIdx >= 0 {
			dev := g.Branches[devIdx]
			if dev.Type == network.LinkTransformer {
				if !g.Nodes[dev.From].HasSource {
					continue // upstream supply itself absent; stay open
				}
				dev.RestorePhases(network.PhaseABC)
			} else {
				if !g.Nodes[dev.From].HasSource {
					continue // upstream supply itself absent; stay open
				}
				dev.LockedPhases &^= bit
				dev.RestorePhases(bit)
			}
			b.ProtectLocations[i] = -1
		}
	}

	b.RestorePhases(ev.Mask)
	toNode := g.Nodes[b.To]
	for i, bit := range network.ABC {
		if ev.Mask.Has(bit) {
			toNode.V[i] = toNode.LastVoltage[i]
		}
	}
	g.MarkDirty()

	if hook == nil {
		hook = NoopHook{}
	}
	hook.OnRestore(g, ev.BranchIdx, ev.Mask)

	return nil
}
