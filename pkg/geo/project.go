package geo

import (
	"github.com/mikelor/routing2/pkg/datastructure"

	"github.com/golang/geo/s2"
)

const endpointSnapToleranceM = 0.01

// ProjectPointToSegment projects p onto the segment a-b. The returned
// coordinate is the closest point on the segment; inSegment is false when the
// orthogonal foot falls outside and the projection collapsed to an endpoint.
func ProjectPointToSegment(p, a, b datastructure.Coordinate) (datastructure.Coordinate, bool) {
	pS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon))
	aS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(a.Lat, a.Lon))
	bS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(b.Lat, b.Lon))

	projection := s2.Project(pS2, aS2, bS2)
	projectLatLng := s2.LatLngFromPoint(projection)
	foot := datastructure.NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())

	inSegment := HaversineDistanceM(foot.Lat, foot.Lon, a.Lat, a.Lon) > endpointSnapToleranceM &&
		HaversineDistanceM(foot.Lat, foot.Lon, b.Lat, b.Lon) > endpointSnapToleranceM
	return foot, inSegment
}

// PointLinePerpendicularDistance is the distance in meters from p to its
// closest point on the segment a-b.
func PointLinePerpendicularDistance(a, b, p datastructure.Coordinate) float64 {
	foot, _ := ProjectPointToSegment(p, a, b)
	return HaversineDistanceM(p.Lat, p.Lon, foot.Lat, foot.Lon)
}
