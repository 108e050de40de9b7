package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/lintang-b-s/replanx/pkg"
	"github.com/lintang-b-s/replanx/pkg/grid"
	"github.com/lintang-b-s/replanx/pkg/http"
	"github.com/lintang-b-s/replanx/pkg/http/usecases"
	"github.com/lintang-b-s/replanx/pkg/landmark"
	"github.com/lintang-b-s/replanx/pkg/logger"
	"github.com/lintang-b-s/replanx/pkg/roadgraph"
	"github.com/lintang-b-s/replanx/pkg/spatialindex"
	"github.com/lintang-b-s/replanx/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	mapsDir         = flag.String("maps_dir", "./data/maps", "directory of grid maps (*.map, *.map.bz2) served by name")
	roadGraphFile   = flag.String("road_graph", "", "road graph for road sessions: an OpenStreetMap .osm.pbf or a .graph file written by roadgraph")
	landmarkFile    = flag.String("landmark_file", "", "precomputed landmarks for the road graph, written by the preprocessor")
	numLandmarks    = flag.Int("landmarks", 0, "compute this many landmarks at startup when no landmark file is given, 0 disables")
	useRateLimit    = flag.Bool("rate_limit", false, "apply the token bucket rate limiter to the api")
	strictHeuristic = flag.Bool("strict_heuristic", true, "reject heuristics that break consistency during planning")
)

func main() {
	flag.Parse()
	logger, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := util.ReadConfig(); err != nil {
		logger.Warn("no config file, using defaults", zap.Error(err))
	}
	viper.SetDefault("SESSION_CAPACITY", pkg.DEFAULT_SESSION_CAPACITY)
	viper.SetDefault("SNAP_RADIUS", 0.05)
	viper.SetDefault("MAX_SNAP_RADIUS", 2.0)
	viper.SetDefault("MAX_PATH_LENGTH", 0)

	maps, err := loadMaps(*mapsDir, logger)
	if err != nil {
		logger.Fatal("load grid maps", zap.Error(err))
	}

	ctx, cleanup, err := NewContext()
	if err != nil {
		panic(err)
	}

	var (
		road  *roadgraph.Graph
		rtree *spatialindex.Rtree
	)
	if *roadGraphFile != "" {
		road, err = loadRoadGraph(ctx, *roadGraphFile, logger)
		if err != nil {
			logger.Fatal("load road graph", zap.String("file", *roadGraphFile), zap.Error(err))
		}
		rtree = spatialindex.NewRtree()
		rtree.Build(road, logger)
	}

	var lm *landmark.Landmark
	switch {
	case road == nil:
	case *landmarkFile != "":
		lm, err = landmark.ReadLandmark(*landmarkFile, road.NumberOfVertices())
		if err != nil {
			logger.Fatal("read landmarks", zap.String("file", *landmarkFile), zap.Error(err))
		}
	case *numLandmarks > 0:
		lm = landmark.NewLandmark()
		if err := lm.PreprocessALT(*numLandmarks, road, logger); err != nil {
			logger.Fatal("compute landmarks", zap.Error(err))
		}
	}

	cfg := usecases.SessionServiceConfig{
		Capacity:        viper.GetInt("SESSION_CAPACITY"),
		SnapRadius:      viper.GetFloat64("SNAP_RADIUS"),
		MaxSnapRadius:   viper.GetFloat64("MAX_SNAP_RADIUS"),
		StrictHeuristic: *strictHeuristic,
		MaxPathLength:   viper.GetInt("MAX_PATH_LENGTH"),
	}
	if lm != nil && len(lm.Landmarks()) > 0 {
		cfg.RoadHeuristic = lm.Heuristic(road)
	}
	var spatialIndex usecases.SpatialIndex
	if rtree != nil {
		spatialIndex = rtree
	}
	sessionService, err := usecases.NewSessionService(logger, cfg, maps, road, spatialIndex)
	if err != nil {
		logger.Fatal("create session service", zap.Error(err))
	}

	api := http.NewServer(logger).Use(ctx, *useRateLimit, sessionService)

	signal := http.GracefulShutdown()

	logger.Info("Replanx Engine Server Stopped", zap.String("signal", signal.String()))
	cleanup()
	if err := api.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}
}

func NewContext() (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	cb := func() {
		cancel()
	}

	return ctx, cb, nil
}

// loadMaps reads every map in dir. A map is served under its file name without extensions.
func loadMaps(dir string, logger *zap.Logger) (map[string]*grid.Map, error) {
	maps := make(map[string]*grid.Map)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("grid map directory not found", zap.String("dir", dir))
			return maps, nil
		}
		return nil, err
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".map") || strings.HasSuffix(name, ".map.bz2")) {
			continue
		}
		m, err := grid.ReadMap(filepath.Join(dir, name), grid.Conn4)
		if err != nil {
			return nil, err
		}
		key := strings.TrimSuffix(strings.TrimSuffix(name, ".bz2"), ".map")
		maps[key] = m
		logger.Info("grid map loaded", zap.String("name", key),
			zap.Int("width", m.Grid.Width()), zap.Int("height", m.Grid.Height()))
	}
	return maps, nil
}

func loadRoadGraph(ctx context.Context, file string, logger *zap.Logger) (*roadgraph.Graph, error) {
	if strings.HasSuffix(file, ".osm.pbf") {
		return roadgraph.LoadOSM(ctx, file, logger)
	}
	return roadgraph.ReadGraph(file)
}
