package modelfile

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"distflow/internal/consts"
	"distflow/pkg/conductor"
	"distflow/pkg/cplx"
	"distflow/pkg/linebuilder"
	"distflow/pkg/network"
	"distflow/pkg/perrors"
)

// Model is the result of loading a document: a populated graph plus the
// resolved solve directive and the bus-name index used to report errors
// against the original YAML names.
type Model struct {
	Graph   *network.Graph
	Solve   SolveSpec
	busIdx  map[string]int
	lineIdx map[string]*conductor.LineConfiguration

	overheadConductors    map[string]*conductor.Overhead
	undergroundConductors map[string]*conductor.Underground
	triplexConductors     map[string]*conductor.Triplex
}

// Load parses and builds a graph from raw YAML bytes.
func Load(data []byte) (*Model, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing model file: %w", err)
	}
	return build(&doc)
}

func build(doc *Document) (*Model, error) {
	seed := doc.Solve.RandomSeed
	if seed == 0 {
		seed = 1
	}
	g := network.NewGraph(seed)

	m := &Model{
		Graph:                 g,
		Solve:                 doc.Solve,
		busIdx:                make(map[string]int),
		lineIdx:               make(map[string]*conductor.LineConfiguration),
		overheadConductors:    make(map[string]*conductor.Overhead),
		undergroundConductors: make(map[string]*conductor.Underground),
		triplexConductors:     make(map[string]*conductor.Triplex),
	}

	if err := m.buildConductors(doc.Conductors); err != nil {
		return nil, err
	}
	if err := buildLineConfigs(doc.Configs, m.lineIdx); err != nil {
		return nil, err
	}
	if err := m.buildBuses(doc.Buses); err != nil {
		return nil, err
	}
	if err := m.applyLoads(doc.Loads); err != nil {
		return nil, err
	}
	if err := m.buildLines(doc.Lines); err != nil {
		return nil, err
	}
	if err := m.buildTransformers(doc.Transformers); err != nil {
		return nil, err
	}
	if g.SwingIndex < 0 {
		return nil, perrors.NewTopologyError("model", perrors.WithQuantity("swing bus"),
			perrors.WithRemedy("declare exactly one bus with bus_type: SWING"))
	}

	return m, nil
}

func (m *Model) buildConductors(specs []ConductorSpec) error {
	for _, c := range specs {
		switch c.Kind {
		case "overhead":
			m.overheadConductors[c.Name] = &conductor.Overhead{
				Name:              c.Name,
				ResistancePerMile: c.ResistancePerMile,
				GMR:               c.GMR,
				DiameterIn:        c.DiameterIn,
				Ratings:           toRatings(c.Ratings),
			}
		case "underground":
			u := &conductor.Underground{
				Name:              c.Name,
				ResistancePerMile: c.ResistancePerMile,
				GMR:               c.GMR,
				DiameterIn:        c.DiameterIn,
				OuterDiameterIn:   c.OuterDiameterIn,
				InsulationRelPerm: c.InsulationRelPerm,
				Ratings:           toRatings(c.Ratings),
			}
			if c.ConcentricNeutral != nil {
				u.ConcentricNeutral = &conductor.ConcentricNeutral{
					StrandGMR:        c.ConcentricNeutral.StrandGMR,
					StrandDiameterIn: c.ConcentricNeutral.StrandDiameterIn,
					StrandResistance: c.ConcentricNeutral.StrandResistance,
					StrandCount:      c.ConcentricNeutral.StrandCount,
					OuterRadius:      c.ConcentricNeutral.OuterRadius,
				}
			}
			if c.TapeShield != nil {
				u.TapeShield = &conductor.TapeShield{
					GMR:        c.TapeShield.GMR,
					Resistance: c.TapeShield.Resistance,
				}
			}
			m.undergroundConductors[c.Name] = u
		case "triplex":
			m.triplexConductors[c.Name] = &conductor.Triplex{
				Name:              c.Name,
				ResistancePerMile: c.ResistancePerMile,
				GMR:               c.GMR,
				OverallDiameterIn: c.DiameterIn,
				InsulationThickIn: c.InsulationThickIn,
				Ratings:           toRatings(c.Ratings),
			}
		default:
			return perrors.NewConfigurationError(c.Name,
				perrors.WithQuantity("conductor kind: "+c.Kind))
		}
	}
	return nil
}

func toRatings(r RatingsSpec) conductor.Ratings {
	return conductor.Ratings{
		SummerContinuous: r.SummerContinuous,
		SummerEmergency:  r.SummerEmergency,
		WinterContinuous: r.WinterContinuous,
		WinterEmergency:  r.WinterEmergency,
	}
}

func buildLineConfigs(specs []LineConfigSpec, out map[string]*conductor.LineConfiguration) error {
	for _, s := range specs {
		cfg := &conductor.LineConfiguration{
			Name:               s.Name,
			PhaseConductors:    s.PhaseConductors,
			UseLineCapacitance: s.UseLineCapacitance,
			Spacing: conductor.Spacing{
				HeightAboveEarth: s.Spacing.HeightAboveEarth,
				Distance:         s.Spacing.Distance,
			},
		}
		switch s.Kind {
		case "overhead":
			cfg.Kind = conductor.KindOverhead
		case "underground":
			cfg.Kind = conductor.KindUnderground
		case "triplex":
			cfg.Kind = conductor.KindTriplex
		default:
			return perrors.NewConfigurationError(s.Name, perrors.WithQuantity("line configuration kind: "+s.Kind))
		}

		if s.UseExplicit {
			var z [3][3]complex128
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					z[i][j] = complex(s.ExplicitZ[i][j][0], s.ExplicitZ[i][j][1])
				}
			}
			cfg.Explicit = &conductor.ExplicitMatrix{Z: z, C: s.ExplicitC, UseC: s.UseLineCapacitance}
		}

		out[s.Name] = cfg
	}
	return nil
}

func (m *Model) buildBuses(specs []BusSpec) error {
	for _, s := range specs {
		phases := network.ParsePhaseSet(s.Phases)
		if !phases.Valid() {
			return perrors.NewConfigurationError(s.Name, perrors.WithQuantity("phase set: "+s.Phases))
		}
		busType, err := parseBusType(s.BusType)
		if err != nil {
			return perrors.NewConfigurationError(s.Name, perrors.WithErr(err))
		}
		if s.NominalVoltage <= 0 {
			return perrors.NewConfigurationError(s.Name, perrors.WithQuantity("nominal_voltage"))
		}

		n := network.NewNode(s.Name, phases, busType, s.NominalVoltage)
		if s.MaxVoltageError > 0 {
			n.MaxVoltageError = s.MaxVoltageError
		}
		for p := 0; p < 3; p++ {
			mag := s.VoltageMag[p]
			if mag == 0 {
				mag = s.NominalVoltage
			}
			n.V[p] = complexFromPolarDeg(mag, s.VoltageAngleDeg[p])
		}
		idx := m.Graph.AddNode(n)
		m.busIdx[s.Name] = idx
	}
	return nil
}

func parseBusType(s string) (network.BusType, error) {
	switch s {
	case "PQ", "":
		return network.PQ, nil
	case "PV":
		return network.PV, nil
	case "SWING":
		return network.SWING, nil
	default:
		return 0, fmt.Errorf("unknown bus_type %q", s)
	}
}

func complexFromPolarDeg(mag, angleDeg float64) complex128 {
	rad := angleDeg * math.Pi / 180
	return complex(mag*math.Cos(rad), mag*math.Sin(rad))
}

func (m *Model) applyLoads(specs []LoadSpec) error {
	for _, s := range specs {
		idx, ok := m.busIdx[s.Bus]
		if !ok {
			return perrors.NewConfigurationError(s.Bus, perrors.WithQuantity("load references unknown bus"))
		}
		n := m.Graph.Nodes[idx]
		for p := 0; p < 3; p++ {
			n.S[p] += complex(s.ConstantPowerKVA[p][0]*1000, s.ConstantPowerKVA[p][1]*1000)
			if s.ConstantImpedanceOhm[p] != 0 {
				n.Y[p] += 1 / complex(s.ConstantImpedanceOhm[p], 0)
			}
			n.I[p] += complex(s.ConstantCurrentAmp[p][0], s.ConstantCurrentAmp[p][1])
		}
	}
	return nil
}

func (m *Model) buildLines(specs []LineSpec) error {
	for _, s := range specs {
		fromIdx, ok := m.busIdx[s.From]
		if !ok {
			return perrors.NewConfigurationError(s.Name, perrors.WithQuantity("unknown from-bus: "+s.From))
		}
		toIdx, ok := m.busIdx[s.To]
		if !ok {
			return perrors.NewConfigurationError(s.Name, perrors.WithQuantity("unknown to-bus: "+s.To))
		}
		phases := network.ParsePhaseSet(s.Phases)

		linkType, err := parseLinkType(s.Type)
		if err != nil {
			return perrors.NewConfigurationError(s.Name, perrors.WithErr(err))
		}

		b := network.NewBranch(s.Name, linkType, fromIdx, toIdx, phases)
		b.ConfigName = s.Config
		b.LengthFt = s.LengthFt
		b.MeanRepairTimeSec = s.MeanRepairTimeSec
		if b.MeanRepairTimeSec < 0 {
			return perrors.NewConfigurationError(s.Name, perrors.WithQuantity("mean_repair_time"))
		}
		b.MaxRetries = s.MaxRetries
		b.ReattemptIntervalSec = s.ReattemptIntervalSec

		if linkType == network.LinkOverhead || linkType == network.LinkUnderground || linkType == network.LinkTriplex {
			cfg, ok := m.lineIdx[s.Config]
			if !ok {
				return perrors.NewConfigurationError(s.Name, perrors.WithQuantity("unknown line configuration: "+s.Config))
			}
			freq := m.Solve.FrequencyHz
			if freq == 0 {
				freq = consts.DefaultFrequencyHz
			}
			earth := m.Solve.EarthResistivity
			if earth == 0 {
				earth = consts.DefaultEarthResistivity
			}
			in := linebuilder.LineInputs{
				Config:   cfg,
				LengthFt: s.LengthFt,
				FreqHz:   freq,
				EarthRho: earth,
				Phases:   phases,
			}
			if !cfg.IsExplicit() {
				if err := m.resolveGeometricInputs(cfg, &in); err != nil {
					return err
				}
			}
			res, err := linebuilder.Build(in)
			if err != nil {
				return err
			}
			b.A, b.B, b.C, b.D = res.A, res.B, res.C, res.D
			b.YFrom, b.YTo = res.YFrom, res.YTo
			b.TriplexTN = res.TriplexTN
		}

		m.Graph.AddBranch(b)
	}
	return nil
}

// resolveGeometricInputs looks up the named conductors a line
// configuration references and populates the matching sub-block of
// LineInputs, so the builder's geometric path has real conductor
// objects to query instead of the zero value.
func (m *Model) resolveGeometricInputs(cfg *conductor.LineConfiguration, in *linebuilder.LineInputs) error {
	switch cfg.Kind {
	case conductor.KindOverhead:
		var ov linebuilder.OverheadInputs
		for i := 0; i < 3; i++ {
			name := cfg.PhaseConductors[i]
			if name == "" {
				continue
			}
			c, ok := m.overheadConductors[name]
			if !ok {
				return perrors.NewConfigurationError(cfg.Name, perrors.WithQuantity("unknown overhead conductor: "+name))
			}
			ov.Conductors[i] = c
		}
		if name := cfg.PhaseConductors[3]; name != "" {
			c, ok := m.overheadConductors[name]
			if !ok {
				return perrors.NewConfigurationError(cfg.Name, perrors.WithQuantity("unknown neutral conductor: "+name))
			}
			ov.Conductors[3] = c
		}
		ov.Spacing = cfg.Spacing
		in.Overhead = ov

	case conductor.KindUnderground:
		var ug linebuilder.UndergroundInputs
		for i := 0; i < 3; i++ {
			name := cfg.PhaseConductors[i]
			if name == "" {
				continue
			}
			c, ok := m.undergroundConductors[name]
			if !ok {
				return perrors.NewConfigurationError(cfg.Name, perrors.WithQuantity("unknown underground conductor: "+name))
			}
			ug.Conductors[i] = c
		}
		if name := cfg.PhaseConductors[3]; name != "" {
			c, ok := m.overheadConductors[name]
			if !ok {
				return perrors.NewConfigurationError(cfg.Name, perrors.WithQuantity("unknown external neutral conductor: "+name))
			}
			ug.ExternalNeutral = c
		}
		ug.Spacing = cfg.Spacing
		in.Underground = ug

	case conductor.KindTriplex:
		name := cfg.PhaseConductors[0]
		c, ok := m.triplexConductors[name]
		if !ok {
			return perrors.NewConfigurationError(cfg.Name, perrors.WithQuantity("unknown triplex conductor: "+name))
		}
		in.Triplex = linebuilder.TriplexInputs{Cable: c}
	}
	return nil
}

func parseLinkType(s string) (network.LinkType, error) {
	switch s {
	case "overhead", "":
		return network.LinkOverhead, nil
	case "underground":
		return network.LinkUnderground, nil
	case "triplex":
		return network.LinkTriplex, nil
	case "switch":
		return network.LinkSwitch, nil
	case "fuse":
		return network.LinkFuse, nil
	case "recloser":
		return network.LinkRecloser, nil
	case "sectionalizer":
		return network.LinkSectionalizer, nil
	default:
		return 0, fmt.Errorf("unknown line type %q", s)
	}
}

func (m *Model) buildTransformers(specs []TransformerSpec) error {
	for _, s := range specs {
		fromIdx, ok := m.busIdx[s.From]
		if !ok {
			return perrors.NewConfigurationError(s.Name, perrors.WithQuantity("unknown from-bus: "+s.From))
		}
		toIdx, ok := m.busIdx[s.To]
		if !ok {
			return perrors.NewConfigurationError(s.Name, perrors.WithQuantity("unknown to-bus: "+s.To))
		}
		phases := network.ParsePhaseSet(s.Phases)

		conn, err := parseConnection(s.Connection)
		if err != nil {
			return perrors.NewConfigurationError(s.Name, perrors.WithErr(err))
		}
		if conn == linebuilder.SplitPhase && phases.Count() > 1 {
			return perrors.NewConfigurationError(s.Name, perrors.WithQuantity("split-phase primary phases: "+s.Phases))
		}
		present := presentFromPhaseSet(phases)

		linkType := network.LinkTransformer
		if s.IsRegulator {
			linkType = network.LinkRegulator
		}
		b := network.NewBranch(s.Name, linkType, fromIdx, toIdx, phases)
		b.ConfigName = s.Name
		b.VRatio = s.VRatio
		if b.VRatio == 0 {
			b.VRatio = 1
		}
		b.Connection = networkConnection(conn)
		b.PrimaryPhase = s.PrimaryPhase

		zLeak := complex(s.ZLeakage[0], s.ZLeakage[1])
		var zLeakMat cplx.Matrix3
		for p := 0; p < 3; p++ {
			zLeakMat[p][p] = zLeak
		}
		inputs := linebuilder.TransformerInputs{
			Connection:   conn,
			VRatio:       b.VRatio,
			Zleakage:     zLeakMat,
			Present:      present,
			PrimaryPhase: s.PrimaryPhase,
		}

		var tp linebuilder.TwoPort
		if s.IsRegulator {
			tp, err = linebuilder.BuildRegulator(linebuilder.RegulatorInputs{
				TransformerInputs: inputs,
				TapRatio:          s.TapRatio,
			})
		} else {
			tp, err = linebuilder.BuildTransformer(inputs)
		}
		if err != nil {
			return err
		}

		b.A, b.B, b.C, b.D = tp.A, tp.B, tp.C, tp.D
		b.YFrom, b.YTo = tp.YFrom, tp.YTo

		m.Graph.AddBranch(b)
	}
	return nil
}

// networkConnection maps the line-builder's connection type to the
// network package's own enum, which computeBranchCurrents dispatches on
// without needing to import linebuilder.
func networkConnection(c linebuilder.ConnectionType) network.TransformerConnection {
	switch c {
	case linebuilder.DeltaDelta:
		return network.ConnDeltaDelta
	case linebuilder.DeltaGroundedWye:
		return network.ConnDeltaGroundedWye
	case linebuilder.SplitPhase:
		return network.ConnSplitPhase
	default:
		return network.ConnWyeWye
	}
}

func parseConnection(s string) (linebuilder.ConnectionType, error) {
	switch s {
	case "wye_wye", "":
		return linebuilder.WyeWye, nil
	case "delta_delta":
		return linebuilder.DeltaDelta, nil
	case "delta_grounded_wye":
		return linebuilder.DeltaGroundedWye, nil
	case "split_phase":
		return linebuilder.SplitPhase, nil
	default:
		return 0, fmt.Errorf("unknown transformer connection %q", s)
	}
}

func presentFromPhaseSet(p network.PhaseSet) [3]bool {
	var present [3]bool
	for i, bit := range network.ABC {
		present[i] = p.Has(bit)
	}
	return present
}
