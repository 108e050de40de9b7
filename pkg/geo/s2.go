package geo

import (
	"github.com/golang/geo/s2"
)

func toS2(c Coordinate) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon))
}

// ProjectPointToSegment returns the point on the great-circle segment a-b closest to p.
func ProjectPointToSegment(a, b, p Coordinate) Coordinate {
	projection := s2.Project(toS2(p), toS2(a), toS2(b))
	ll := s2.LatLngFromPoint(projection)
	return NewCoordinate(ll.Lat.Degrees(), ll.Lng.Degrees())
}

// DistanceToSegment returns the distance in km from p to the segment a-b.
func DistanceToSegment(a, b, p Coordinate) float64 {
	return s2.DistanceFromSegment(toS2(p), toS2(a), toS2(b)).Radians() * earthRadiusKM
}

// PointDistance is the s2 angular distance between a and b in km.
func PointDistance(a, b Coordinate) float64 {
	return toS2(a).Distance(toS2(b)).Radians() * earthRadiusKM
}
