package guidance

import (
	"math"

	"github.com/lintang-b-s/replanx/pkg/geo"
	"github.com/lintang-b-s/replanx/pkg/util"
)

type TurnSign int

const (
	U_TURN             TurnSign = -8
	TURN_SHARP_LEFT    TurnSign = -3
	TURN_LEFT          TurnSign = -2
	TURN_SLIGHT_LEFT   TurnSign = -1
	CONTINUE_ON_STREET TurnSign = 0
	TURN_SLIGHT_RIGHT  TurnSign = 1
	TURN_RIGHT         TurnSign = 2
	TURN_SHARP_RIGHT   TurnSign = 3
	FINISH             TurnSign = 4
	START              TurnSign = 101
)

func (s TurnSign) String() string {
	switch s {
	case U_TURN:
		return "U_TURN"
	case TURN_SHARP_LEFT:
		return "TURN_SHARP_LEFT"
	case TURN_LEFT:
		return "TURN_LEFT"
	case TURN_SLIGHT_LEFT:
		return "TURN_SLIGHT_LEFT"
	case CONTINUE_ON_STREET:
		return "CONTINUE_ON_STREET"
	case TURN_SLIGHT_RIGHT:
		return "TURN_SLIGHT_RIGHT"
	case TURN_RIGHT:
		return "TURN_RIGHT"
	case TURN_SHARP_RIGHT:
		return "TURN_SHARP_RIGHT"
	case FINISH:
		return "FINISH"
	case START:
		return "START"
	default:
		return "UNKNOWN"
	}
}

// https://www.movable-type.co.uk/scripts/latlong.html
// initial bearing (bearing from a to b with meridian line crossing a), in radians
func computeInitialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	return util.DegreeToRadians(geo.BearingTo(lat1, lon1, lat2, lon2))
}

// computeDeltaBearing. signed change from prevInitialBearing to the bearing of prev -> cur, in
// radians. Negative is a left turn.
func computeDeltaBearing(prevLat, prevLon, lat, lon, prevInitialBearing float64) float64 {
	initialBearing := computeInitialBearing(prevLat, prevLon, lat, lon)
	prevInitialBearing, initialBearing = alignInitialBearing(prevInitialBearing, initialBearing)
	return initialBearing - prevInitialBearing
}

/*
alignInitialBearing. keeps the difference of two bearings within [-180°, 180°].

	\
	 \ initialBearing (350°)
	  \
	  /
	 /    prevInitialBearing (20°)
	/

350° - 20° = 330° reads as a right turn although it is a left one, so prevInitialBearing gets
+360°. The mirrored case, 10° after 340°, adds 360° to initialBearing.
*/
func alignInitialBearing(prevInitialBearing, initialBearing float64) (float64, float64) {
	dif := util.RadiansToDegree(initialBearing) - util.RadiansToDegree(prevInitialBearing)
	if dif > 180 {
		prevInitialBearing += 2 * math.Pi
	} else if dif < -180 {
		initialBearing += 2 * math.Pi
	}
	return prevInitialBearing, initialBearing
}

func getTurnDirection(prevLat, prevLon, lat, lon, prevInitialBearing float64) TurnSign {
	delta := computeDeltaBearing(prevLat, prevLon, lat, lon, prevInitialBearing)
	deltaDegree := util.RadiansToDegree(math.Abs(delta))
	switch {
	case deltaDegree < 12:
		return CONTINUE_ON_STREET
	case deltaDegree < 40:
		if delta < 0 {
			return TURN_SLIGHT_LEFT
		}
		return TURN_SLIGHT_RIGHT
	case deltaDegree < 105:
		if delta < 0 {
			return TURN_LEFT
		}
		return TURN_RIGHT
	case deltaDegree < 170:
		if delta < 0 {
			return TURN_SHARP_LEFT
		}
		return TURN_SHARP_RIGHT
	default:
		return U_TURN
	}
}

var compassPoints = [8]string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}

func bearingToCompass(bearing float64) string {
	bearing = math.Mod(bearing+360, 360)
	return compassPoints[int(math.Round(bearing/45))%8]
}
