package linebuilder

import (
	"github.com/hashicorp/go-multierror"

	"distflow/pkg/conductor"
	"distflow/pkg/cplx"
	"distflow/pkg/network"
	"distflow/pkg/perrors"
)

// LineInputs is the top-level request to build a line's two-port
// parameters: a configuration, a length, and the environment (frequency,
// earth resistivity) shared across a solve.
type LineInputs struct {
	Config   *conductor.LineConfiguration
	LengthFt float64
	FreqHz   float64
	EarthRho float64
	Phases   network.PhaseSet

	Overhead    OverheadInputs
	Underground UndergroundInputs
	Triplex     TriplexInputs
}

// BuildResult carries the line's two-port parameters plus any triplex
// neutral back-calculation vector and any non-fatal warnings raised
// while building it (NumericalError, HardwareViolation): the build
// still produced usable, sanitized matrices.
type BuildResult struct {
	TwoPort
	TriplexTN [3]complex128
	Warnings  error
}

// Build derives Z_abc, Y_abc, and the ABCD two-port matrices for a line,
// dispatching on the configuration's kind or its explicit-matrix
// override. A zero-length line is rejected here for Newton-Raphson
// callers; forward-back-sweep callers should detect LengthFt == 0 before
// calling Build and perform parent-child absorption instead.
func Build(in LineInputs) (BuildResult, error) {
	if in.LengthFt == 0 {
		return BuildResult{}, perrors.NewTopologyError("line",
			perrors.WithQuantity("length"),
			perrors.WithRemedy("rejected: zero-length lines are unsupported by Newton-Raphson"))
	}

	present := presentFromPhases(in.Phases)

	var z, y cplx.Matrix3
	var tn [3]complex128
	var warnings *multierror.Error

	switch {
	case in.Config != nil && in.Config.IsExplicit():
		z, y = ExplicitZY(in.Config.Explicit, in.LengthFt, in.FreqHz)
	default:
		c := NewCoeffs(in.FreqHz, in.EarthRho)
		var err error
		switch in.Config.Kind {
		case conductor.KindOverhead:
			z, y, warnings, err = buildOverheadLine(in, c, present)
		case conductor.KindUnderground:
			z, y, warnings, err = buildUndergroundLine(in, c, present)
		case conductor.KindTriplex:
			present = [3]bool{true, true, false}
			z, tn, err = buildTriplexLine(in, c)
		}
		if err != nil {
			return BuildResult{}, err
		}
	}

	if HasNegativeResistance(z) {
		warnings = multierror.Append(warnings, perrors.NewHardwareViolation("line",
			perrors.WithQuantity("series resistance")))
	}

	tp, err := Synthesize(z, y, present)
	if err != nil {
		return BuildResult{}, err
	}
	return BuildResult{TwoPort: tp, TriplexTN: tn, Warnings: warnings.ErrorOrNil()}, nil
}

func presentFromPhases(p network.PhaseSet) [3]bool {
	var present [3]bool
	for i, bit := range network.ABC {
		present[i] = p.Has(bit)
	}
	return present
}

func buildOverheadLine(in LineInputs, c Coeffs, present [3]bool) (z, y cplx.Matrix3, warnings *multierror.Error, err error) {
	ov := in.Overhead
	ov.Present = present
	ov.UseLineCapacitance = in.Config.UseLineCapacitance
	zPerMile, err := OverheadZAbc(ov, c)
	if err != nil {
		return cplx.Matrix3{}, cplx.Matrix3{}, nil, err
	}
	z = ApplyLength(zPerMile, in.LengthFt)

	if !ov.UseLineCapacitance {
		return z, cplx.Matrix3{}, nil, nil
	}
	yPerMile, yErr := OverheadYAbc(ov, in.FreqHz)
	if yErr != nil {
		if !perrors.IsKind(yErr, perrors.NumericalError) {
			return cplx.Matrix3{}, cplx.Matrix3{}, nil, yErr
		}
		return z, cplx.Matrix3{}, multierror.Append(warnings, yErr), nil
	}
	y = ApplyLength(yPerMile, in.LengthFt)
	return z, y, nil, nil
}

func buildUndergroundLine(in LineInputs, c Coeffs, present [3]bool) (z, y cplx.Matrix3, warnings *multierror.Error, err error) {
	ug := in.Underground
	ug.Present = present
	ug.UseLineCapacitance = in.Config.UseLineCapacitance
	zPerMile, err := UndergroundZAbc(ug, c)
	if err != nil {
		return cplx.Matrix3{}, cplx.Matrix3{}, nil, err
	}
	z = ApplyLength(zPerMile, in.LengthFt)

	if !ug.UseLineCapacitance {
		return z, cplx.Matrix3{}, nil, nil
	}
	yPerMile, yErr := UndergroundYAbc(ug, in.FreqHz)
	if yErr != nil {
		if !perrors.IsKind(yErr, perrors.NumericalError) {
			return cplx.Matrix3{}, cplx.Matrix3{}, nil, yErr
		}
		return z, cplx.Matrix3{}, multierror.Append(warnings, yErr), nil
	}
	y = ApplyLength(yPerMile, in.LengthFt)
	return z, y, nil, nil
}

func buildTriplexLine(in LineInputs, c Coeffs) (z cplx.Matrix3, tn [3]complex128, err error) {
	res, err := BuildTriplexZ(in.Triplex, c)
	if err != nil {
		return cplx.Matrix3{}, [3]complex128{}, err
	}
	return ApplyLength(res.Z, in.LengthFt), res.TN, nil
}
