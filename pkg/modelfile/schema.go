// Package modelfile loads a YAML network description into a populated
// network.Graph, playing the role a netlist parser plays for a circuit
// simulator: it is the only supported way to get topology into the
// core for a standalone run, but the solve packages never import it
// back.
package modelfile

// Document is the top-level YAML shape.
type Document struct {
	Title       string             `yaml:"title"`
	Conductors  []ConductorSpec    `yaml:"conductors"`
	Configs     []LineConfigSpec   `yaml:"line_configurations"`
	Buses       []BusSpec          `yaml:"buses"`
	Loads       []LoadSpec         `yaml:"loads"`
	Lines       []LineSpec         `yaml:"lines"`
	Transformers []TransformerSpec `yaml:"transformers"`
	Solve       SolveSpec          `yaml:"solve"`
}

// ConductorSpec describes one named conductor, tagged by which family it
// belongs to; exactly one of the family blocks should be populated.
type ConductorSpec struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // "overhead", "underground", "triplex"

	ResistancePerMile float64 `yaml:"resistance_per_mile"`
	GMR               float64 `yaml:"gmr"`
	DiameterIn        float64 `yaml:"diameter_in"`

	// Underground-only.
	OuterDiameterIn   float64 `yaml:"outer_diameter_in"`
	InsulationRelPerm float64 `yaml:"insulation_rel_perm"`

	ConcentricNeutral *ConcentricNeutralSpec `yaml:"concentric_neutral"`
	TapeShield        *TapeShieldSpec        `yaml:"tape_shield"`

	// Triplex-only.
	InsulationThickIn float64 `yaml:"insulation_thick_in"`

	Ratings RatingsSpec `yaml:"ratings"`
}

type ConcentricNeutralSpec struct {
	StrandGMR        float64 `yaml:"strand_gmr"`
	StrandDiameterIn float64 `yaml:"strand_diameter_in"`
	StrandResistance float64 `yaml:"strand_resistance"`
	StrandCount      int     `yaml:"strand_count"`
	OuterRadius      float64 `yaml:"outer_radius"`
}

type TapeShieldSpec struct {
	GMR        float64 `yaml:"gmr"`
	Resistance float64 `yaml:"resistance"`
}

type RatingsSpec struct {
	SummerContinuous float64 `yaml:"summer_continuous"`
	SummerEmergency  float64 `yaml:"summer_emergency"`
	WinterContinuous float64 `yaml:"winter_continuous"`
	WinterEmergency  float64 `yaml:"winter_emergency"`
}

// LineConfigSpec names up to four conductors (phase A/B/C/neutral) plus
// spacing, or an explicit matrix override.
type LineConfigSpec struct {
	Name               string     `yaml:"name"`
	Kind               string     `yaml:"kind"`
	PhaseConductors    [4]string  `yaml:"phase_conductors"`
	Spacing            SpacingSpec `yaml:"spacing"`
	ExplicitZ          [3][3][2]float64 `yaml:"explicit_z"` // [real, imag] per cell, Ohm/mile
	ExplicitC          [3][3]float64    `yaml:"explicit_c"` // nF/mile
	UseExplicit        bool       `yaml:"use_explicit"`
	UseLineCapacitance bool       `yaml:"use_line_capacitance"`
}

type SpacingSpec struct {
	HeightAboveEarth [4]float64    `yaml:"height_above_earth"`
	Distance         [4][4]float64 `yaml:"distance"`
}

// BusSpec declares one node.
type BusSpec struct {
	Name           string  `yaml:"name"`
	Phases         string  `yaml:"phases"` // e.g. "ABC", "AN", "ABN"
	BusType        string  `yaml:"bus_type"` // "PQ", "PV", "SWING"
	NominalVoltage float64 `yaml:"nominal_voltage"`
	VoltageMag     [3]float64 `yaml:"voltage_mag"`
	VoltageAngleDeg [3]float64 `yaml:"voltage_angle_deg"`
	MaxVoltageError float64 `yaml:"max_voltage_error"`
}

// LoadSpec attaches constant-power/impedance/current load to a bus.
type LoadSpec struct {
	Bus          string     `yaml:"bus"`
	ConstantPowerKVA  [3][2]float64 `yaml:"constant_power_kva"`  // [real,imag] per phase
	ConstantImpedanceOhm [3]float64 `yaml:"constant_impedance_ohm"`
	ConstantCurrentAmp   [3][2]float64 `yaml:"constant_current_amp"`
	IsCritical bool `yaml:"is_critical"`
}

// LineSpec connects two buses through a named line configuration.
type LineSpec struct {
	Name       string  `yaml:"name"`
	Type       string  `yaml:"type"` // "overhead", "underground", "triplex", "switch", "fuse", "recloser", "sectionalizer"
	From       string  `yaml:"from"`
	To         string  `yaml:"to"`
	Config     string  `yaml:"config"`
	LengthFt   float64 `yaml:"length_ft"`
	Phases     string  `yaml:"phases"`
	MeanRepairTimeSec float64 `yaml:"mean_repair_time_sec"`
	MaxRetries int `yaml:"max_retries"`
	ReattemptIntervalSec float64 `yaml:"reattempt_interval_sec"`
}

// TransformerSpec connects two buses through a transformer or regulator.
type TransformerSpec struct {
	Name         string  `yaml:"name"`
	From         string  `yaml:"from"`
	To           string  `yaml:"to"`
	Connection   string  `yaml:"connection"` // "wye_wye", "delta_delta", "delta_grounded_wye", "split_phase"
	VRatio       float64 `yaml:"v_ratio"`
	ZLeakage     [2]float64 `yaml:"z_leakage"` // [real, imag] per-unit
	Phases       string  `yaml:"phases"`
	IsRegulator  bool    `yaml:"is_regulator"`
	TapRatio     [3]float64 `yaml:"tap_ratio"`
	PrimaryPhase int     `yaml:"primary_phase"` // split-phase only: 0=A,1=B,2=C
}

// SolveSpec is the `.solve` directive: which driver to run and its
// tuning knobs.
type SolveSpec struct {
	Method             string  `yaml:"method"` // "fbs", "gs", "nr"
	MaxIterations      int     `yaml:"max_iterations"`
	Alpha              float64 `yaml:"alpha"` // GS acceleration factor
	FrequencyHz        float64 `yaml:"frequency_hz"`
	EarthResistivity   float64 `yaml:"earth_resistivity"`
	RandomSeed         int64   `yaml:"random_seed"`
}
