package guidance

import (
	"fmt"

	"github.com/lintang-b-s/replanx/pkg/geo"
	"github.com/lintang-b-s/replanx/pkg/roadgraph"
	"github.com/lintang-b-s/replanx/pkg/util"
)

type Graph interface {
	GetVertexCoordinates(v roadgraph.Index) (float64, float64)
	Edge(u, v roadgraph.Index) (*roadgraph.Edge, bool)
}

// Instruction is one maneuver at Vertex followed by Distance km until the next maneuver.
type Instruction struct {
	Sign        TurnSign        `json:"sign"`
	Description string          `json:"description"`
	Vertex      roadgraph.Index `json:"vertex"`
	Point       geo.Coordinate  `json:"point"`
	Bearing     float64         `json:"bearing"`
	Distance    float64         `json:"distance"`
}

type DirectionBuilder struct {
	graph        Graph
	instructions []Instruction
}

func NewDirectionBuilder(graph Graph) *DirectionBuilder {
	return &DirectionBuilder{graph: graph}
}

// GetDrivingDirections turns a vertex path into maneuvers. Consecutive segments whose bearing
// changes by less than 12° are merged into one instruction.
func (db *DirectionBuilder) GetDrivingDirections(path []roadgraph.Index) []Instruction {
	db.instructions = make([]Instruction, 0)
	if len(path) < 2 {
		return db.instructions
	}

	lat, lon := db.graph.GetVertexCoordinates(path[0])
	nextLat, nextLon := db.graph.GetVertexCoordinates(path[1])
	heading := geo.BearingTo(lat, lon, nextLat, nextLon)
	db.add(START, path[0], heading)

	prevInitialBearing := util.DegreeToRadians(heading)
	for i := 1; i < len(path); i++ {
		db.instructions[len(db.instructions)-1].Distance += db.length(path[i-1], path[i])
		if i == len(path)-1 {
			break
		}

		lat, lon = db.graph.GetVertexCoordinates(path[i])
		nextLat, nextLon = db.graph.GetVertexCoordinates(path[i+1])
		sign := getTurnDirection(lat, lon, nextLat, nextLon, prevInitialBearing)
		prevInitialBearing = computeInitialBearing(lat, lon, nextLat, nextLon)
		if sign != CONTINUE_ON_STREET {
			db.add(sign, path[i], util.RadiansToDegree(prevInitialBearing))
		}
	}

	db.add(FINISH, path[len(path)-1], 0)
	return db.instructions
}

func (db *DirectionBuilder) length(u, v roadgraph.Index) float64 {
	e, ok := db.graph.Edge(u, v)
	if !ok {
		return 0
	}
	return e.GetLength()
}

func (db *DirectionBuilder) add(sign TurnSign, v roadgraph.Index, bearing float64) {
	lat, lon := db.graph.GetVertexCoordinates(v)
	db.instructions = append(db.instructions, Instruction{
		Sign:        sign,
		Description: describe(sign, bearing),
		Vertex:      v,
		Point:       geo.NewCoordinate(lat, lon),
		Bearing:     bearing,
	})
}

func describe(sign TurnSign, bearing float64) string {
	switch sign {
	case START:
		return fmt.Sprintf("Head %s", bearingToCompass(bearing))
	case FINISH:
		return "You have arrived at your destination"
	case U_TURN:
		return "Make U-turn"
	case TURN_SHARP_LEFT:
		return "Turn sharp left"
	case TURN_LEFT:
		return "Turn left"
	case TURN_SLIGHT_LEFT:
		return "Turn slight left"
	case TURN_SLIGHT_RIGHT:
		return "Turn slight right"
	case TURN_RIGHT:
		return "Turn right"
	case TURN_SHARP_RIGHT:
		return "Turn sharp right"
	default:
		return "Continue"
	}
}
