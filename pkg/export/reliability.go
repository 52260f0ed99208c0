package export

import (
	"encoding/json"

	"distflow/pkg/network"
)

// ReliabilityMetrics is the five IEEE 1366 indices the external
// power_metrics adapter computes; this package only carries them through
// to the dump, the way jsondump.cpp pulls them from its own collaborator
// rather than computing them itself.
type ReliabilityMetrics struct {
	SAIFI float64
	SAIDI float64
	CAIDI float64
	ASAI  float64
	MAIFI float64
}

type protectiveDeviceEntry struct {
	Name                 string   `json:"Name"`
	DeviceOpeningStatus []string `json:"Device opening status"`
}

type regulatorEntry struct {
	Name        string `json:"Name"`
	TapPosition []int  `json:"Tap position"`
}

type capacitorEntry struct {
	Name                string   `json:"Name"`
	DeviceOpeningStatus []string `json:"Device opening status"`
}

type protectiveDevices struct {
	Fuse          []protectiveDeviceEntry `json:"Fuse"`
	Recloser      []protectiveDeviceEntry `json:"Recloser"`
	Sectionalizer []protectiveDeviceEntry `json:"Sectionalizer"`
}

type otherDevices struct {
	Capacitor []capacitorEntry `json:"Capacitor"`
	Regulator []regulatorEntry `json:"Regulator"`
}

// Reliability is the root object emitted when write_reliability is true.
type Reliability struct {
	Outputs           map[string]float64 `json:"GridLAB-D reliability outputs"`
	ProtectiveDevices protectiveDevices   `json:"Protective devices"`
	OtherDevices      otherDevices        `json:"Other devices"`
}

// RegulatorState carries a regulator branch's per-phase tap position,
// since Branch itself only stores the tap ratio used in the two-port
// synthesis, not an integer tap step; a caller running the reliability
// dump over regulator branches supplies the tap step separately.
type RegulatorState struct {
	BranchIdx int
	TapA      int
	TapB      int
	TapC      int
}

// CapacitorState carries a capacitor's per-phase switch position; the
// core data model has no capacitor branch kind of its own (capacitors
// are modeled as constant-impedance shunt load on Node.Y), so switch
// state is supplied by the caller from whatever external model tracks
// capacitor control.
type CapacitorState struct {
	Name     string
	SwitchA  bool
	SwitchB  bool
	SwitchC  bool
	PTPhases network.PhaseSet
}

// BuildReliability assembles the reliability JSON object from a solved
// graph's protective-device branches, the supplied IEEE 1366 metrics, and
// caller-supplied regulator/capacitor state snapshots.
func BuildReliability(g *network.Graph, metrics ReliabilityMetrics, regulators []RegulatorState, capacitors []CapacitorState) *Reliability {
	r := &Reliability{
		Outputs: map[string]float64{
			"SAIFI": metrics.SAIFI,
			"SAIDI": metrics.SAIDI,
			"CAIDI": metrics.CAIDI,
			"ASAI":  metrics.ASAI,
			"MAIFI": metrics.MAIFI,
		},
	}

	for _, b := range g.Branches {
		entry := protectiveDeviceEntry{
			Name:                 b.Name,
			DeviceOpeningStatus: openingStatus(b),
		}
		switch b.Type {
		case network.LinkFuse:
			r.ProtectiveDevices.Fuse = append(r.ProtectiveDevices.Fuse, entry)
		case network.LinkRecloser:
			r.ProtectiveDevices.Recloser = append(r.ProtectiveDevices.Recloser, entry)
		case network.LinkSectionalizer:
			r.ProtectiveDevices.Sectionalizer = append(r.ProtectiveDevices.Sectionalizer, entry)
		}
	}

	for _, reg := range regulators {
		if reg.BranchIdx < 0 || reg.BranchIdx >= len(g.Branches) {
			continue
		}
		b := g.Branches[reg.BranchIdx]
		var taps []int
		for i, bit := range network.ABC {
			if !b.Phases.Has(bit) {
				continue
			}
			switch i {
			case 0:
				taps = append(taps, reg.TapA)
			case 1:
				taps = append(taps, reg.TapB)
			case 2:
				taps = append(taps, reg.TapC)
			}
		}
		r.OtherDevices.Regulator = append(r.OtherDevices.Regulator, regulatorEntry{
			Name:        b.Name,
			TapPosition: taps,
		})
	}

	for _, capState := range capacitors {
		var status []string
		for i, bit := range network.ABC {
			if !capState.PTPhases.Has(bit) {
				continue
			}
			switch i {
			case 0:
				status = append(status, boolStatus(capState.SwitchA))
			case 1:
				status = append(status, boolStatus(capState.SwitchB))
			case 2:
				status = append(status, boolStatus(capState.SwitchC))
			}
		}
		r.OtherDevices.Capacitor = append(r.OtherDevices.Capacitor, capacitorEntry{
			Name:                capState.Name,
			DeviceOpeningStatus: status,
		})
	}

	return r
}

// MarshalReliability renders the reliability object as compact JSON.
func MarshalReliability(r *Reliability) ([]byte, error) {
	return json.Marshal(r)
}

func openingStatus(b *network.Branch) []string {
	var status []string
	for _, bit := range network.ABC {
		if !b.OrigPhases.Has(bit) {
			continue
		}
		status = append(status, boolStatus(!b.Phases.Has(bit)))
	}
	return status
}

func boolStatus(open bool) string {
	if open {
		return "1"
	}
	return "0"
}
