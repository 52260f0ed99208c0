package linebuilder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"distflow/pkg/conductor"
	"distflow/pkg/cplx"
	"distflow/pkg/linebuilder"
	"distflow/pkg/network"
)

func sampleOverheadConductor() *conductor.Overhead {
	return &conductor.Overhead{
		Name:              "336.4 ACSR",
		ResistancePerMile: 0.306,
		GMR:               0.0244,
		DiameterIn:        0.721,
	}
}

func sampleSpacing() conductor.Spacing {
	s := conductor.Spacing{
		HeightAboveEarth: [4]float64{29, 29, 29, 25},
	}
	dist := [4][4]float64{
		{0, 2.5, 4.5, 5.0},
		{2.5, 0, 2.5, 4.27},
		{4.5, 2.5, 0, 5.66},
		{5.0, 4.27, 5.66, 0},
	}
	s.Distance = dist
	return s
}

func TestOverheadZAbcSymmetric(t *testing.T) {
	cnd := sampleOverheadConductor()
	in := linebuilder.OverheadInputs{
		Conductors: [4]*conductor.Overhead{cnd, cnd, cnd, cnd},
		Spacing:    sampleSpacing(),
		Present:    [3]bool{true, true, true},
	}
	c := linebuilder.NewCoeffs(60, 100)

	z, err := linebuilder.OverheadZAbc(in, c)
	require.NoError(t, err)

	require.InDelta(t, real(z[0][0]), real(z[1][1]), 0.2)
	require.Greater(t, real(z[0][0]), 0.0)
	require.Greater(t, imag(z[0][0]), 0.0)
}

func TestExplicitMatrixSkipsGeometry(t *testing.T) {
	m := &conductor.ExplicitMatrix{
		Z: [3][3]complex128{
			{complex(0.3, 1.0), 0, 0},
			{0, complex(0.3, 1.0), 0},
			{0, 0, complex(0.3, 1.0)},
		},
	}
	z, y := linebuilder.ExplicitZY(m, 5280, 60)
	require.InDelta(t, 0.3, real(z[0][0]), 1e-9)
	require.Equal(t, cplx.Matrix3{}, y)
}

func TestSynthesizeABCDIdentityWhenNoShunt(t *testing.T) {
	z := cplx.Matrix3{
		{complex(0.3, 1.0), 0, 0},
		{0, complex(0.3, 1.0), 0},
		{0, 0, complex(0.3, 1.0)},
	}
	tp, err := linebuilder.Synthesize(z, cplx.Matrix3{}, [3]bool{true, true, true})
	require.NoError(t, err)

	require.Equal(t, cplx.Identity3(), tp.D)
	require.Equal(t, z, tp.B)
}

func TestBuildRejectsZeroLength(t *testing.T) {
	cfg := &conductor.LineConfiguration{Kind: conductor.KindOverhead}
	_, err := linebuilder.Build(linebuilder.LineInputs{
		Config:   cfg,
		LengthFt: 0,
		FreqHz:   60,
		EarthRho: 100,
		Phases:   network.PhaseABC,
	})
	require.Error(t, err)
}

func TestBuildOverheadEndToEnd(t *testing.T) {
	cnd := sampleOverheadConductor()
	cfg := &conductor.LineConfiguration{Kind: conductor.KindOverhead, UseLineCapacitance: false}
	res, err := linebuilder.Build(linebuilder.LineInputs{
		Config:   cfg,
		LengthFt: 5280,
		FreqHz:   60,
		EarthRho: 100,
		Phases:   network.PhaseABC,
		Overhead: linebuilder.OverheadInputs{
			Conductors: [4]*conductor.Overhead{cnd, cnd, cnd, cnd},
			Spacing:    sampleSpacing(),
		},
	})
	require.NoError(t, err)
	require.NotEqual(t, cplx.Matrix3{}, res.B)
	require.Equal(t, cplx.Matrix3{}, res.YFrom)
}
