package modelfile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"distflow/pkg/modelfile"
	"distflow/pkg/network"
)

const sampleDoc = `
title: feeder sample

conductors:
  - name: "336 ACSR"
    kind: overhead
    resistance_per_mile: 0.306
    gmr: 0.0244
    diameter_in: 0.721
    ratings: { summer_continuous: 530 }
  - name: "4/0 ACSR neutral"
    kind: overhead
    resistance_per_mile: 0.592
    gmr: 0.00814
    diameter_in: 0.563

line_configurations:
  - name: config-601
    kind: overhead
    phase_conductors: ["336 ACSR", "336 ACSR", "336 ACSR", "4/0 ACSR neutral"]
    spacing:
      height_above_earth: [29, 29, 29, 25]
      distance:
        - [0, 2.5, 4.5, 5.0]
        - [2.5, 0, 2.5, 4.272]
        - [4.5, 2.5, 0, 5.656]
        - [5.0, 4.272, 5.656, 0]
  - name: config-explicit
    kind: overhead
    use_explicit: true
    explicit_z:
      - [[0.4576, 1.0780], [0.1560, 0.5017], [0.1535, 0.3849]]
      - [[0.1560, 0.5017], [0.4666, 1.0482], [0.1580, 0.4236]]
      - [[0.1535, 0.3849], [0.1580, 0.4236], [0.4615, 1.0651]]

buses:
  - name: sourcebus
    phases: ABC
    bus_type: SWING
    nominal_voltage: 7200
  - name: mid
    phases: ABC
    bus_type: PQ
    nominal_voltage: 7200
  - name: leaf
    phases: ABC
    bus_type: PQ
    nominal_voltage: 7200

loads:
  - bus: leaf
    constant_power_kva: [[100, 50], [100, 50], [100, 50]]

lines:
  - name: line-601
    type: overhead
    from: sourcebus
    to: mid
    config: config-601
    length_ft: 2000
    phases: ABC
  - name: line-explicit
    type: overhead
    from: mid
    to: leaf
    config: config-explicit
    length_ft: 2500
    phases: ABC

transformers:
  - name: xf-1
    from: sourcebus
    to: mid
    connection: wye_wye
    v_ratio: 1.0
    z_leakage: [0.01, 0.06]
    phases: ABC

solve:
  method: fbs
  max_iterations: 50
`

func TestLoadBuildsGraphFromYAML(t *testing.T) {
	m, err := modelfile.Load([]byte(sampleDoc))
	require.NoError(t, err)
	require.NotNil(t, m.Graph)

	require.Equal(t, 3, len(m.Graph.Nodes))
	require.GreaterOrEqual(t, m.Graph.SwingIndex, 0)

	swing := m.Graph.Nodes[m.Graph.SwingIndex]
	require.Equal(t, "sourcebus", swing.Name)
	require.Equal(t, network.SWING, swing.BusType)

	require.Equal(t, 3, len(m.Graph.Branches))

	geomLine := m.Graph.Branches[0]
	require.Equal(t, "line-601", geomLine.Name)
	require.NotEqual(t, complex128(0), geomLine.B[0][0])

	explicitLine := m.Graph.Branches[1]
	require.Equal(t, "line-explicit", explicitLine.Name)
	require.InDelta(t, 0.4576*2500/5280, real(explicitLine.B[0][0]), 1e-6)

	xf := m.Graph.Branches[2]
	require.Equal(t, network.LinkTransformer, xf.Type)
	require.NotEqual(t, complex128(0), xf.YTo[0][0])

	require.Equal(t, "fbs", m.Solve.Method)
}

func TestLoadRejectsMissingSwing(t *testing.T) {
	const noSwing = `
buses:
  - name: a
    phases: ABC
    bus_type: PQ
    nominal_voltage: 7200
`
	_, err := modelfile.Load([]byte(noSwing))
	require.Error(t, err)
}

func TestLoadRejectsUnknownBusReference(t *testing.T) {
	const badRef = `
buses:
  - name: sourcebus
    phases: ABC
    bus_type: SWING
    nominal_voltage: 7200

lines:
  - name: line-1
    type: switch
    from: sourcebus
    to: nowhere
    phases: ABC
`
	_, err := modelfile.Load([]byte(badRef))
	require.Error(t, err)
}

func TestLoadRejectsUnknownConductorName(t *testing.T) {
	const badConductor = `
line_configurations:
  - name: config-bad
    kind: overhead
    phase_conductors: ["missing", "missing", "missing", ""]
    spacing:
      height_above_earth: [29, 29, 29, 0]
      distance:
        - [0, 2.5, 4.5, 0]
        - [2.5, 0, 2.5, 0]
        - [4.5, 2.5, 0, 0]
        - [0, 0, 0, 0]

buses:
  - name: sourcebus
    phases: ABC
    bus_type: SWING
    nominal_voltage: 7200
  - name: mid
    phases: ABC
    bus_type: PQ
    nominal_voltage: 7200

lines:
  - name: line-1
    type: overhead
    from: sourcebus
    to: mid
    config: config-bad
    length_ft: 1000
    phases: ABC
`
	_, err := modelfile.Load([]byte(badConductor))
	require.Error(t, err)
}
