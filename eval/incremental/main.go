package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/lintang-b-s/replanx/pkg/concurrent"
	da "github.com/lintang-b-s/replanx/pkg/datastructure"
	"github.com/lintang-b-s/replanx/pkg/engine/dstarlite"
	"github.com/lintang-b-s/replanx/pkg/engine/routing"
	"github.com/lintang-b-s/replanx/pkg/grid"
	log "github.com/lintang-b-s/replanx/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

var (
	width     = flag.Int("width", 128, "grid width")
	height    = flag.Int("height", 128, "grid height")
	density   = flag.Float64("density", 0.2, "initial obstacle density")
	conn8     = flag.Bool("conn8", false, "use 8-connectivity with the octile heuristic")
	trials    = flag.Int("trials", 32, "number of independent workloads")
	steps     = flag.Int("steps", 50, "replans per workload")
	changes   = flag.Int("changes", 8, "cells toggled before every replan")
	advance   = flag.Int("advance", 2, "cells moved along the current path before every replan")
	seed      = flag.Uint64("seed", 1, "random seed, workload i uses seed+i")
	numWorker = flag.Int("workers", 8, "number of workers")
	outFile   = flag.String("o", "incremental_result.csv", "per-step csv output")
)

type workload struct {
	id   int
	seed uint64
}

type stepRecord struct {
	step        int
	expanded    int
	settled     int
	cost        float64
	refCost     float64
	incremental time.Duration
	full        time.Duration
}

type workloadResult struct {
	id       int
	records  []stepRecord
	mismatch int
	err      error
}

func main() {
	flag.Parse()
	logger, err := log.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	conn := grid.Conn4
	if *conn8 {
		conn = grid.Conn8
	}

	runWorkload := func(w workload) workloadResult {
		res := workloadResult{id: w.id}
		res.records, res.mismatch, res.err = run(w, conn)
		if res.err == nil {
			logger.Sugar().Infof("done workload %v", w.id)
		}
		return res
	}

	workers := concurrent.NewWorkerPool[workload, workloadResult](*numWorker, *trials)
	for i := 0; i < *trials; i++ {
		workers.AddJob(workload{id: i, seed: *seed + uint64(i)})
	}
	workers.Close()
	workers.Start(runWorkload)
	workers.Wait()

	fout, err := os.Create(*outFile)
	if err != nil {
		logger.Fatal("create output", zap.Error(err))
	}
	defer fout.Close()
	bw := bufio.NewWriter(fout)
	defer bw.Flush()
	fmt.Fprintln(bw, "workload step expanded settled cost ref_cost incremental_us full_us")

	var (
		totalExpanded, totalSettled, mismatches, failed int
		totalIncremental, totalFull                     time.Duration
	)
	for res := range workers.CollectResults() {
		if res.err != nil {
			failed++
			logger.Error("workload failed", zap.Int("workload", res.id), zap.Error(res.err))
			continue
		}
		mismatches += res.mismatch
		for _, r := range res.records {
			totalExpanded += r.expanded
			totalSettled += r.settled
			totalIncremental += r.incremental
			totalFull += r.full
			fmt.Fprintf(bw, "%d %d %d %d %s %s %d %d\n", res.id, r.step, r.expanded, r.settled,
				formatCost(r.cost), formatCost(r.refCost), r.incremental.Microseconds(), r.full.Microseconds())
		}
	}

	ratio := 0.0
	if totalSettled > 0 {
		ratio = float64(totalExpanded) / float64(totalSettled)
	}
	logger.Info("incremental replanning evaluation",
		zap.Int("workloads", *trials),
		zap.Int("failed", failed),
		zap.Int("cost_mismatches", mismatches),
		zap.Int("expanded", totalExpanded),
		zap.Int("dijkstra_settled", totalSettled),
		zap.Float64("expansion_ratio", ratio),
		zap.Duration("incremental_time", totalIncremental),
		zap.Duration("full_recompute_time", totalFull),
	)
}

func formatCost(c float64) string {
	if math.IsInf(c, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.4f", c)
}

// run replans one random workload and compares every plan with a full Dijkstra recompute.
func run(w workload, conn grid.Connectivity) ([]stepRecord, int, error) {
	rng := rand.New(rand.NewSource(w.seed))

	g, err := grid.New(*width, *height, conn)
	if err != nil {
		return nil, 0, err
	}
	start := grid.NewCell(0, 0)
	goal := grid.NewCell(*width-1, *height-1)
	for y := 0; y < *height; y++ {
		for x := 0; x < *width; x++ {
			c := grid.NewCell(x, y)
			if c != start && c != goal && rng.Float64() < *density {
				if err := g.SetObstacle(c, true); err != nil {
					return nil, 0, err
				}
			}
		}
	}

	p, err := dstarlite.NewPlanner[grid.Cell](g, grid.HeuristicFor(conn), start, goal)
	if err != nil {
		return nil, 0, err
	}

	records := make([]stepRecord, 0, *steps)
	mismatch := 0
	for step := 0; step < *steps; step++ {
		before := time.Now()
		res, err := p.Plan()
		if err != nil {
			return nil, 0, err
		}
		incremental := time.Since(before)

		before = time.Now()
		dijkstra := routing.NewDijkstra[grid.Cell](g)
		_, refCost, _ := dijkstra.ShortestPath(p.Start(), goal)
		full := time.Since(before)

		if !da.Eq(res.TotalCost, refCost) {
			mismatch++
		}
		records = append(records, stepRecord{
			step:        step,
			expanded:    res.Expanded,
			settled:     dijkstra.GetNumSettledNodes(),
			cost:        res.TotalCost,
			refCost:     refCost,
			incremental: incremental,
			full:        full,
		})

		if p.Start() == goal {
			break
		}
		if res.Found && len(res.Path) > 1 {
			next := res.Path[min(*advance, len(res.Path)-1)]
			if err := p.MoveStart(next); err != nil {
				return nil, 0, err
			}
		}

		batch := make([]dstarlite.EdgeChange[grid.Cell], 0)
		for i := 0; i < *changes; i++ {
			c := grid.NewCell(rng.Intn(*width), rng.Intn(*height))
			if c == p.Start() || c == goal {
				continue
			}
			if g.IsBlocked(c) {
				batch = append(batch, g.UnblockCell(c)...)
			} else {
				batch = append(batch, g.BlockCell(c)...)
			}
		}
		if err := p.NotifyEdgesChanged(batch...); err != nil {
			return nil, 0, err
		}
	}
	return records, mismatch, nil
}
