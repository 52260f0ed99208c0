package export

import (
	"encoding/json"
	"math"

	"github.com/google/uuid"

	"distflow/internal/consts"
	"distflow/pkg/network"
	"distflow/pkg/perrors"
)

// TopologyOptions gates the topology exporter the way the CLI's
// write_system_info/write_per_unit/system_base/min_node_voltage/
// max_node_voltage flags gate the original dump object.
type TopologyOptions struct {
	Group          string
	PerUnit        bool
	SystemBaseVA   float64
	MinNodeVoltage float64
	MaxNodeVoltage float64
}

// DefaultTopologyOptions mirrors the original dump object's create()
// defaults: no group filter, full (non-per-unit) values, a 100 MVA
// system base, and a 0.8-1.2 pu voltage band written to every bus entry.
func DefaultTopologyOptions() TopologyOptions {
	return TopologyOptions{
		SystemBaseVA:   100e6,
		MinNodeVoltage: 0.8,
		MaxNodeVoltage: 1.2,
	}
}

type generatorEntry struct {
	ID         string     `json:"id"`
	NodeID     string     `json:"node_id"`
	RefVoltage [3]float64 `json:"ref_voltage"`
}

type busEntry struct {
	ID         string     `json:"id"`
	MinVoltage float64    `json:"min_voltage"`
	MaxVoltage float64    `json:"max_voltage"`
	RefVoltage [3]float64 `json:"ref_voltage"`
	HasPhase   [3]bool    `json:"has_phase"`
}

type loadEntry struct {
	ID              string     `json:"id"`
	NodeID          string     `json:"node_id"`
	HasPhase        [3]bool    `json:"has_phase"`
	IsCritical      bool       `json:"is_critical"`
	MaxRealPhase    [3]float64 `json:"max_real_phase"`
	MaxReactivePhase [3]float64 `json:"max_reactive_phase"`
}

type lineEntry struct {
	ID              string  `json:"id"`
	Node1ID         string  `json:"node1_id"`
	Node2ID         string  `json:"node2_id"`
	HasPhase        [3]bool `json:"has_phase"`
	Capacity        float64 `json:"capacity"`
	Length          float64 `json:"length"`
	NumPhases       int     `json:"num_phases"`
	IsTransformer   bool    `json:"is_transformer"`
	LineCode        string  `json:"line_code"`
	ConstructionCost float64 `json:"construction_cost"`
	HardenCost      float64 `json:"harden_cost"`
	SwitchCost      float64 `json:"switch_cost"`
	IsNew           bool    `json:"is_new"`
	CanHarden       bool    `json:"can_harden"`
	CanAddSwitch    bool    `json:"can_add_switch"`
	HasSwitch       bool    `json:"has_switch"`
}

type lineCodeEntry struct {
	LineCode  string        `json:"line_code"`
	NumPhases int           `json:"num_phases"`
	RMatrix   [3][3]float64 `json:"rmatrix"`
	XMatrix   [3][3]float64 `json:"xmatrix"`
}

type topologyProperties struct {
	Generators []generatorEntry `json:"generators"`
	Buses      []busEntry       `json:"buses"`
	Loads      []loadEntry      `json:"loads"`
	Lines      []lineEntry      `json:"lines"`
	LineCodes  []lineCodeEntry  `json:"line_codes"`
}

// Topology is the root object emitted when write_system_info is true.
type Topology struct {
	Schema      string             `json:"$schema"`
	Description string             `json:"description"`
	Properties  topologyProperties `json:"properties"`
}

// placeholderCost is the 1e30 sentinel the original dump uses for costs
// and capacities it does not itself estimate, left for a planning
// adapter to fill in.
const placeholderCost = 1e30

// BuildTopology assembles the topology JSON object from a solved graph.
// Per-unit scaling, when requested, uses Z_base = V_nom^2/(system_base/3)
// per bus and divides every impedance entry by that bus's Z_base.
func BuildTopology(g *network.Graph, opts TopologyOptions) (*Topology, error) {
	if opts.PerUnit && opts.SystemBaseVA <= 0 {
		return nil, perrors.NewConfigurationError("topology export",
			perrors.WithQuantity("system_base"),
			perrors.WithRemedy("defaulted to 100 MVA"))
	}
	base := opts.SystemBaseVA
	if base <= 0 {
		base = 100e6
	}

	t := &Topology{
		Schema:      "http://json-schema.org/draft-04/schema#",
		Description: "This file describes the system topology information (bus and lines) and line configuration data",
	}

	lineCodes := make(map[string]lineCodeEntry)

	ids := make([]string, len(g.Nodes))
	for idx, n := range g.Nodes {
		ids[idx] = nodeID(n, idx)
	}

	for idx, n := range g.Nodes {
		id := ids[idx]
		hasPhase := presentArray(n.Phases)

		if n.BusType == network.SWING {
			t.Properties.Generators = append(t.Properties.Generators, generatorEntry{
				ID:         "gen_" + id,
				NodeID:     id,
				RefVoltage: magnitudes(n.V),
			})
		}

		t.Properties.Buses = append(t.Properties.Buses, busEntry{
			ID:         id,
			MinVoltage: opts.MinNodeVoltage,
			MaxVoltage: opts.MaxNodeVoltage,
			RefVoltage: magnitudes(n.V),
			HasPhase:   hasPhase,
		})

		if n.S != [3]complex128{} || n.Y != [3]complex128{} || n.I != [3]complex128{} {
			maxReal, maxReactive := loadExtremes(n)
			t.Properties.Loads = append(t.Properties.Loads, loadEntry{
				ID:               "load_" + id,
				NodeID:           id,
				HasPhase:         hasPhase,
				IsCritical:       false,
				MaxRealPhase:     maxReal,
				MaxReactivePhase: maxReactive,
			})
		}
	}

	zBaseByNode := make([]float64, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.NominalVoltage > 0 {
			zBaseByNode[i] = n.NominalVoltage * n.NominalVoltage / (base / 3)
		}
	}

	for _, b := range g.Branches {
		from := ids[b.From]
		to := ids[b.To]
		isXfmr := b.Type == network.LinkTransformer || b.Type == network.LinkRegulator
		length := b.LengthFt
		if length == 0 {
			length = 1.0
		}

		t.Properties.Lines = append(t.Properties.Lines, lineEntry{
			ID:               b.Name,
			Node1ID:          from,
			Node2ID:          to,
			HasPhase:         presentArray(b.Phases),
			Capacity:         placeholderCost,
			Length:           length,
			NumPhases:        b.Phases.Count(),
			IsTransformer:    isXfmr,
			LineCode:         b.ConfigName,
			ConstructionCost: placeholderCost,
			HardenCost:       placeholderCost,
			SwitchCost:       placeholderCost,
			IsNew:            false,
			CanHarden:        false,
			CanAddSwitch:     b.Type != network.LinkSwitch,
			HasSwitch:        b.Type == network.LinkSwitch,
		})

		if b.ConfigName == "" || isXfmr {
			continue
		}
		if _, seen := lineCodes[b.ConfigName]; seen {
			continue
		}

		zBase := 1.0
		if opts.PerUnit {
			zBase = zBaseByNode[b.From]
			if zBase == 0 {
				zBase = 1.0
			}
		}

		var miles float64
		if b.LengthFt > 0 {
			miles = b.LengthFt / consts.FeetPerMile
		} else {
			miles = 1.0
		}

		var rmatrix, xmatrix [3][3]float64
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				perMile := b.B[i][j] / complex(miles, 0)
				rmatrix[i][j] = real(perMile) / zBase
				xmatrix[i][j] = imag(perMile) / zBase
			}
		}

		lineCodes[b.ConfigName] = lineCodeEntry{
			LineCode:  b.ConfigName,
			NumPhases: b.Phases.Count(),
			RMatrix:   rmatrix,
			XMatrix:   xmatrix,
		}
	}

	for _, lc := range lineCodes {
		t.Properties.LineCodes = append(t.Properties.LineCodes, lc)
	}

	return t, nil
}

// MarshalTopology renders the topology object as compact JSON, matching
// the original dump's unindented, no-comment-style writer settings.
func MarshalTopology(t *Topology) ([]byte, error) {
	return json.Marshal(t)
}

func nodeID(n *network.Node, idx int) string {
	if n.Name != "" {
		return n.Name
	}
	return uuid.NewString()
}

func presentArray(p network.PhaseSet) [3]bool {
	var out [3]bool
	for i, bit := range network.ABC {
		out[i] = p.Has(bit)
	}
	return out
}

func magnitudes(v [3]complex128) [3]float64 {
	var out [3]float64
	for i, c := range v {
		out[i] = math.Hypot(real(c), imag(c))
	}
	return out
}

func loadExtremes(n *network.Node) (maxReal, maxReactive [3]float64) {
	for p := 0; p < 3; p++ {
		maxReal[p] = real(n.S[p])
		maxReactive[p] = imag(n.S[p])
	}
	return
}
