package roadgraph

import (
	"context"
	"io"
	"os"

	"github.com/lintang-b-s/replanx/pkg/geo"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"go.uber.org/zap"
)

var acceptedHighway = map[string]struct{}{
	"motorway":       {},
	"motorway_link":  {},
	"trunk":          {},
	"trunk_link":     {},
	"primary":        {},
	"primary_link":   {},
	"secondary":      {},
	"secondary_link": {},
	"tertiary":       {},
	"tertiary_link":  {},
	"residential":    {},
	"service":        {},
	"road":           {},
	"track":          {},
	"unclassified":   {},
	"living_street":  {},
	"motorroad":      {},
}

type osmWay struct {
	nodes    []osm.NodeID
	forward  bool
	backward bool
}

// OsmLoader turns the highway network of an OpenStreetMap extract into a Graph. Every way node
// becomes a vertex; consecutive nodes become edges whose length is the haversine distance.
type OsmLoader struct {
	logger    *zap.Logger
	wayNodes  map[osm.NodeID]struct{}
	nodeCoord map[osm.NodeID]geo.Coordinate
	ways      []osmWay
}

func NewOsmLoader(logger *zap.Logger) *OsmLoader {
	return &OsmLoader{
		logger:    logger,
		wayNodes:  make(map[osm.NodeID]struct{}),
		nodeCoord: make(map[osm.NodeID]geo.Coordinate),
	}
}

// LoadOSM reads an .osm.pbf file.
func LoadOSM(ctx context.Context, mapFile string, logger *zap.Logger) (*Graph, error) {
	f, err := os.Open(mapFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return NewOsmLoader(logger).Load(func() (osm.Scanner, error) {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		// must not be parallel, node order matters for vertex ids
		return osmpbf.New(ctx, f, 1), nil
	})
}

// Load scans the input twice: the first pass collects the nodes referenced by accepted ways, the
// second keeps their coordinates and the ways themselves.
func (p *OsmLoader) Load(newScanner func() (osm.Scanner, error)) (*Graph, error) {
	scanner, err := newScanner()
	if err != nil {
		return nil, err
	}
	countWays := 0
	for scanner.Scan() {
		way, ok := scanner.Object().(*osm.Way)
		if !ok || len(way.Nodes) < 2 || !acceptOsmWay(way) {
			continue
		}
		countWays++
		if countWays%50000 == 0 {
			p.logger.Sugar().Infof("scanning openstreetmap ways: %d...", countWays)
		}
		for _, n := range way.Nodes {
			p.wayNodes[n.ID] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, err
	}
	scanner.Close()

	scanner, err = newScanner()
	if err != nil {
		return nil, err
	}
	defer scanner.Close()

	p.ways = make([]osmWay, 0, countWays)
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			if _, ok := p.wayNodes[o.ID]; ok {
				p.nodeCoord[o.ID] = geo.NewCoordinate(o.Lat, o.Lon)
			}
		case *osm.Way:
			if len(o.Nodes) < 2 || !acceptOsmWay(o) {
				continue
			}
			p.ways = append(p.ways, p.processWay(o))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	g := p.buildGraph()
	p.logger.Sugar().Infof("number of vertices: %v", g.NumberOfVertices())
	p.logger.Sugar().Infof("number of edges: %v", g.NumberOfEdges())
	return g, nil
}

func (p *OsmLoader) processWay(way *osm.Way) osmWay {
	w := osmWay{
		nodes:    make([]osm.NodeID, 0, len(way.Nodes)),
		forward:  true,
		backward: true,
	}
	for _, n := range way.Nodes {
		w.nodes = append(w.nodes, n.ID)
	}

	okvf, okmvf, okvb, okmvb := getReversedOneWay(way)
	oneway := way.Tags.Find("oneway")
	isOneWay := oneway == "yes" || oneway == "true" || oneway == "1" || oneway == "-1" ||
		way.Tags.Find("junction") == "roundabout" || okvf || okmvf || okvb || okmvb

	if isOneWay {
		if oneway == "-1" || okvf || okmvf {
			// okvf / okmvf = not allowed forward
			w.forward, w.backward = false, true
		} else {
			w.forward, w.backward = true, false
		}
	}
	return w
}

func (p *OsmLoader) buildGraph() *Graph {
	g := NewGraph()
	vertexOf := func(id osm.NodeID) (Index, bool) {
		coord, ok := p.nodeCoord[id]
		if !ok {
			return 0, false
		}
		return g.AddVertex(int64(id), coord), true
	}

	for _, w := range p.ways {
		for i := 1; i < len(w.nodes); i++ {
			if w.nodes[i-1] == w.nodes[i] {
				continue
			}
			u, okU := vertexOf(w.nodes[i-1])
			v, okV := vertexOf(w.nodes[i])
			if !okU || !okV {
				continue
			}
			length := g.Distance(u, v)
			if w.forward {
				_ = g.AddEdge(u, v, length)
			}
			if w.backward {
				_ = g.AddEdge(v, u, length)
			}
		}
	}
	return g
}

func acceptOsmWay(way *osm.Way) bool {
	highway := way.Tags.Find("highway")
	junction := way.Tags.Find("junction")
	if highway != "" {
		if _, ok := acceptedHighway[highway]; ok {
			return true
		}
	} else if junction != "" {
		return true
	}
	return false
}

func isRestricted(value string) bool {
	return value == "no" || value == "restricted"
}

func getReversedOneWay(way *osm.Way) (bool, bool, bool, bool) {
	vehicleForward := way.Tags.Find("vehicle:forward")
	motorVehicleForward := way.Tags.Find("motor_vehicle:forward")
	vehicleBackward := way.Tags.Find("vehicle:backward")
	motorVehicleBackward := way.Tags.Find("motor_vehicle:backward")
	return isRestricted(vehicleForward), isRestricted(motorVehicleForward), isRestricted(vehicleBackward), isRestricted(motorVehicleBackward)
}
