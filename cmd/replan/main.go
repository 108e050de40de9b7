package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
	"github.com/lintang-b-s/replanx/pkg/grid"
	"github.com/lintang-b-s/replanx/pkg/logger"
	"github.com/lintang-b-s/replanx/pkg/scenario"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	scenarioFile = flag.String("scenario", "./data/scenarios/detour.yaml", "scenario file to run")
	verify       = flag.Bool("verify", true, "check every plan against a full Dijkstra recompute")
	strict       = flag.Bool("strict", false, "fail when the heuristic breaks consistency")
	maxPath      = flag.Int("max_path_length", 0, "upper bound on extracted path length, 0 keeps the default")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	sc, err := scenario.Load(*scenarioFile)
	if err != nil {
		logger.Fatal("load scenario", zap.String("file", *scenarioFile), zap.Error(err))
	}

	var plannerOpts []dstarlite.Option[grid.Cell]
	if *strict {
		plannerOpts = append(plannerOpts, dstarlite.WithStrictHeuristic[grid.Cell]())
	}
	if *maxPath > 0 {
		plannerOpts = append(plannerOpts, dstarlite.WithMaxPathLength[grid.Cell](*maxPath))
	}

	opts := []scenario.RunOption{scenario.WithLogger(logger), scenario.WithPlannerOptions(plannerOpts...)}
	if *verify {
		opts = append(opts, scenario.WithReferenceCheck())
	}

	report, err := scenario.Run(sc, opts...)
	if err != nil {
		logger.Fatal("run scenario", zap.String("name", sc.Name), zap.Error(err))
	}

	out, err := yaml.Marshal(report)
	if err != nil {
		logger.Fatal("encode report", zap.Error(err))
	}
	fmt.Print(string(out))

	logger.Info("scenario finished", zap.String("name", report.Name), zap.Bool("passed", report.Passed),
		zap.Int("steps", len(report.Steps)), zap.Int("expanded", report.Stats.Expanded),
		zap.Int("replans", report.Stats.Replans))
	if !report.Passed {
		os.Exit(1)
	}
}
