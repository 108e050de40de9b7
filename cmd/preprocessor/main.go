package main

import (
	"context"
	"flag"

	"github.com/lintang-b-s/replanx/pkg/landmark"
	"github.com/lintang-b-s/replanx/pkg/logger"
	"github.com/lintang-b-s/replanx/pkg/roadgraph"
	"go.uber.org/zap"
)

var (
	mapFile      = flag.String("f", "./data/diy_solo_semarang.osm.pbf", "openstreetmap file")
	graphFile    = flag.String("o", "./data/road.graph.bz2", "output road graph, written as bzip2-compressed text")
	numLandmarks = flag.Int("landmarks", 16, "number of ALT landmarks to precompute, 0 skips them")
	landmarkFile = flag.String("landmark_out", "./data/road.landmark.bz2", "output landmark file")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	graph, err := roadgraph.LoadOSM(context.Background(), *mapFile, logger)
	if err != nil {
		logger.Fatal("parse openstreetmap file", zap.String("file", *mapFile), zap.Error(err))
	}

	if err := graph.WriteGraph(*graphFile); err != nil {
		logger.Fatal("write road graph", zap.String("file", *graphFile), zap.Error(err))
	}
	logger.Info("road graph written", zap.String("file", *graphFile),
		zap.Int("vertices", graph.NumberOfVertices()), zap.Int("edges", graph.NumberOfEdges()))

	if *numLandmarks <= 0 {
		return
	}
	lm := landmark.NewLandmark()
	if err := lm.PreprocessALT(*numLandmarks, graph, logger); err != nil {
		logger.Fatal("compute landmarks", zap.Error(err))
	}
	if err := lm.WriteLandmark(*landmarkFile); err != nil {
		logger.Fatal("write landmarks", zap.String("file", *landmarkFile), zap.Error(err))
	}
	logger.Info("landmarks written", zap.String("file", *landmarkFile), zap.Int("landmarks", len(lm.Landmarks())))
}
