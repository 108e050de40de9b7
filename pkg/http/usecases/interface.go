package usecases

import (
	"github.com/lintang-b-s/replanx/pkg/geo"
	"github.com/lintang-b-s/replanx/pkg/roadgraph"
)

type SpatialIndex interface {
	SnapToVertex(q geo.Coordinate, radius, maxRadius float64) (roadgraph.Index, float64, error)
}
