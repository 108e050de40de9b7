package grid

import (
	"fmt"
	"math"

	"github.com/lintang-b-s/replanx/pkg/util"
)

func Manhattan(a, b Cell) float64 {
	return float64(util.Abs(a.X-b.X) + util.Abs(a.Y-b.Y))
}

// Octile is the exact cost of an obstacle-free 8-connected move sequence.
func Octile(a, b Cell) float64 {
	dx := float64(util.Abs(a.X - b.X))
	dy := float64(util.Abs(a.Y - b.Y))
	return math.Max(dx, dy) + (math.Sqrt2-1)*math.Min(dx, dy)
}

func Euclidean(a, b Cell) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

func Zero(a, b Cell) float64 {
	return 0
}

// HeuristicFor returns the tightest consistent heuristic for the connectivity.
func HeuristicFor(conn Connectivity) func(a, b Cell) float64 {
	if conn == Conn8 {
		return Octile
	}
	return Manhattan
}

// HeuristicByName resolves "manhattan", "octile", "euclidean" or "zero"; "" picks HeuristicFor(conn).
func HeuristicByName(name string, conn Connectivity) (func(a, b Cell) float64, error) {
	switch name {
	case "":
		return HeuristicFor(conn), nil
	case "manhattan":
		return Manhattan, nil
	case "octile":
		return Octile, nil
	case "euclidean":
		return Euclidean, nil
	case "zero":
		return Zero, nil
	default:
		return nil, fmt.Errorf("grid: unknown heuristic %q", name)
	}
}
