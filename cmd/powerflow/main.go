// Command powerflow reads a YAML model file, runs the requested power-flow
// solver over it, and optionally dumps the topology and reliability JSON
// objects an external planning/reliability tool would consume.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"distflow/pkg/export"
	"distflow/pkg/modelfile"
	"distflow/pkg/network"
	"distflow/pkg/perrors"
	"distflow/pkg/solver"
	"distflow/pkg/util"
)

var (
	group                     = flag.String("group", "", "filter by object group id")
	filenameDumpSystem        = flag.String("filename_dump_system", "", "output path for topology JSON")
	filenameDumpReliability   = flag.String("filename_dump_reliability", "", "output path for reliability JSON")
	runtimeFlag               = flag.String("runtime", "", "simulation time at which to dump (RFC3339), informational only")
	writeSystemInfo           = flag.Bool("write_system_info", false, "emit the topology JSON dump")
	writeReliability          = flag.Bool("write_reliability", false, "emit the reliability JSON dump")
	writePerUnit              = flag.Bool("write_per_unit", false, "scale topology impedances to per-unit")
	systemBase                = flag.Float64("system_base", 100e6, "system base power (VA) for per-unit conversion")
	minNodeVoltage            = flag.Float64("min_node_voltage", 0.8, "per-unit minimum voltage floor exported to the JSON")
	maxNodeVoltage            = flag.Float64("max_node_voltage", 1.2, "per-unit maximum voltage ceiling exported to the JSON")
)

// runcount is a read-only counter of dumps performed during this process's
// lifetime, mirroring the original dump object's runcount property.
var runcount int

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: powerflow [flags] <model.yaml>")
		os.Exit(2)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "powerflow").Logger()

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		logger.Fatal().Err(err).Str("file", flag.Arg(0)).Msg("reading model file")
	}

	model, err := modelfile.Load(data)
	if err != nil {
		logger.Fatal().Err(err).Msg("loading model")
	}
	logger.Info().
		Int("buses", len(model.Graph.Nodes)).
		Int("branches", len(model.Graph.Branches)).
		Str("method", model.Solve.Method).
		Msg("model loaded")

	res, err := runSolve(model, logger)
	if err != nil {
		if perrors.IsKind(err, perrors.ConvergenceFailure) {
			logger.Warn().Err(err).Msg("solve did not converge within the iteration cap")
		} else {
			logger.Fatal().Err(err).Msg("solve failed")
		}
	} else {
		logger.Info().
			Bool("converged", res.Converged).
			Int("iterations", res.Iterations).
			Float64("max_delta", res.MaxDelta).
			Msg("solve finished")
		printResults(model.Graph)
	}

	if *writeSystemInfo {
		dumpTopology(model, logger)
	}
	if *writeReliability {
		dumpReliability(model, logger)
	}

	if *runtimeFlag != "" {
		logger.Debug().Str("runtime", *runtimeFlag).Msg("dump requested at simulation time")
	}
}

// printResults prints each bus's solved per-phase voltage phasors to
// stdout after a solve completes.
func printResults(g *network.Graph) {
	phaseNames := [3]string{"a", "b", "c"}
	for _, n := range g.Nodes {
		for p, bit := range network.ABC {
			if !n.Phases.Has(bit) {
				continue
			}
			fmt.Println(util.FormatPhasor(n.Name+"."+phaseNames[p], n.V[p], "V"))
		}
	}
}

func runSolve(model *modelfile.Model, logger zerolog.Logger) (solver.Result, error) {
	maxIter := model.Solve.MaxIterations
	switch model.Solve.Method {
	case "", "fbs":
		fbs := solver.NewFBS()
		if maxIter > 0 {
			fbs.MaxIterations = maxIter
		}
		return fbs.Solve(model.Graph)
	case "gs":
		gs := solver.NewGS()
		if maxIter > 0 {
			gs.MaxIterations = maxIter
		}
		if model.Solve.Alpha != 0 {
			gs.Alpha = model.Solve.Alpha
		}
		return gs.Solve(model.Graph)
	case "nr":
		nr := solver.NewNR()
		if maxIter > 0 {
			nr.MaxInnerIterations = maxIter
		}
		return nr.Solve(model.Graph)
	default:
		return solver.Result{}, perrors.NewConfigurationError("solve.method",
			perrors.WithQuantity(model.Solve.Method))
	}
}

func dumpTopology(model *modelfile.Model, logger zerolog.Logger) {
	opts := export.TopologyOptions{
		Group:          *group,
		PerUnit:        *writePerUnit,
		SystemBaseVA:   *systemBase,
		MinNodeVoltage: *minNodeVoltage,
		MaxNodeVoltage: *maxNodeVoltage,
	}
	topo, err := export.BuildTopology(model.Graph, opts)
	if err != nil {
		logger.Warn().Err(err).Msg("topology export")
		return
	}
	data, err := export.MarshalTopology(topo)
	if err != nil {
		logger.Error().Err(err).Msg("marshaling topology JSON")
		return
	}
	path := *filenameDumpSystem
	if path == "" {
		path = "JSON_dump_line.json"
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("writing topology JSON")
		return
	}
	runcount++
	logger.Info().Str("path", path).Msg("topology JSON written")
}

func dumpReliability(model *modelfile.Model, logger zerolog.Logger) {
	r := export.BuildReliability(model.Graph, export.ReliabilityMetrics{}, nil, nil)
	data, err := export.MarshalReliability(r)
	if err != nil {
		logger.Error().Err(err).Msg("marshaling reliability JSON")
		return
	}
	path := *filenameDumpReliability
	if path == "" {
		path = "JSON_dump_reliability.json"
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("writing reliability JSON")
		return
	}
	runcount++
	logger.Info().Str("path", path).Msg("reliability JSON written")
}
