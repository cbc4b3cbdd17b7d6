// Package snap projects arbitrary coordinates onto the nearest acceptable
// edge of a routing network.
package snap

import (
	"fmt"
	"math"

	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/geo"
	"github.com/mikelor/routing2/pkg/graph"
)

const (
	// exactToleranceM: a hit closer than this is treated as exact and ends
	// the search over further edges.
	exactToleranceM = 1.0
)

// AcceptableFunc vetoes candidate edges. It is consulted lazily, at most
// once per edge per snap call.
type AcceptableFunc func(view graph.EdgeView) bool

// RoadSnapper snaps points onto a network. An optional rtree over edge
// bounding boxes accelerates the candidate search; without it candidates
// come from scanning the tiles overlapping the box.
type RoadSnapper struct {
	network *graph.RoutingNetwork
	index   *edgeIndex
}

func NewRoadSnapper(network *graph.RoutingNetwork) *RoadSnapper {
	return &RoadSnapper{network: network}
}

type candidate struct {
	snap     datastructure.SnapPoint
	distance float64
	isVertex bool
}

// SnapInBox returns the acceptable edge with minimum distance from the box
// center, together with the projection offset along it. ErrNotFound when no
// edge within maxDistanceM qualifies.
func (rs *RoadSnapper) SnapInBox(box datastructure.BoundingBox, acceptable AcceptableFunc, maxDistanceM float64) (datastructure.SnapPoint, error) {
	best := candidate{distance: math.MaxFloat64}

	rs.forEachCandidateEdge(box, func(view graph.EdgeView) bool {
		if c, ok := rs.snapToEdge(view, box.Center(), acceptable, maxDistanceM, best.distance); ok {
			best = c
		}
		// a sub-meter hit is exact, stop scanning
		return best.distance >= exactToleranceM
	})

	if best.distance == math.MaxFloat64 {
		return datastructure.SnapPoint{}, fmt.Errorf("snap in box: no acceptable edge within %.0fm: %w", maxDistanceM, datastructure.ErrNotFound)
	}
	return best.snap, nil
}

// SnapAllInBox yields one snap per acceptable candidate edge in the box.
// With excludeVertexSnaps set, edges whose best candidate was an endpoint
// rather than a projected foot are dropped.
func (rs *RoadSnapper) SnapAllInBox(box datastructure.BoundingBox, acceptable AcceptableFunc, maxDistanceM float64, excludeVertexSnaps bool) []datastructure.SnapPoint {
	snaps := make([]datastructure.SnapPoint, 0)

	rs.forEachCandidateEdge(box, func(view graph.EdgeView) bool {
		c, ok := rs.snapToEdge(view, box.Center(), acceptable, maxDistanceM, math.MaxFloat64)
		if !ok {
			return true
		}
		if excludeVertexSnaps && c.isVertex {
			return true
		}
		snaps = append(snaps, c.snap)
		return true
	})

	return snaps
}

// SnapToRoad snaps a point within a square search radius around it.
func (rs *RoadSnapper) SnapToRoad(lat, lon, maxDistanceM float64) (datastructure.SnapPoint, error) {
	dLat := maxDistanceM / 111320.0
	dLon := dLat / math.Cos(geo.DegreeToRadians(lat))
	box := datastructure.NewBoundingBox(lat-dLat, lon-dLon, lat+dLat, lon+dLon)
	return rs.SnapInBox(box, nil, maxDistanceM)
}

// snapToEdge walks the edge shape and returns its best candidate under
// bestSoFar. The acceptable predicate runs at most once, and only when the
// edge actually produces a candidate.
func (rs *RoadSnapper) snapToEdge(view graph.EdgeView, center datastructure.Coordinate, acceptable AcceptableFunc, maxDistanceM, bestSoFar float64) (candidate, bool) {
	shape := view.Shape()
	if len(shape) < 2 {
		return candidate{}, false
	}

	bestDist := math.MaxFloat64
	bestOffsetM := 0.0
	bestIsVertex := false
	totalLength := 0.0
	accepted := false
	acceptChecked := false

	accept := func() bool {
		if !acceptChecked {
			acceptChecked = true
			accepted = acceptable == nil || acceptable(view)
		}
		return accepted
	}

	consider := func(dist, offsetM float64, isVertex bool) {
		if dist > maxDistanceM {
			return
		}
		if dist > bestDist {
			return
		}
		// vertex snaps win only when strictly closer
		if dist == bestDist && isVertex {
			return
		}
		if !accept() {
			return
		}
		bestDist = dist
		bestOffsetM = offsetM
		bestIsVertex = isVertex
	}

	consider(geo.HaversineDistanceM(center.Lat, center.Lon, shape[0].Lat, shape[0].Lon), 0, true)

	for i := 1; i < len(shape); i++ {
		prev, curr := shape[i-1], shape[i]
		segmentStart := totalLength
		totalLength += geo.HaversineDistanceM(prev.Lat, prev.Lon, curr.Lat, curr.Lon)

		consider(geo.HaversineDistanceM(center.Lat, center.Lon, curr.Lat, curr.Lon), totalLength, true)

		foot, inSegment := geo.ProjectPointToSegment(center, prev, curr)
		if inSegment {
			dist := geo.HaversineDistanceM(center.Lat, center.Lon, foot.Lat, foot.Lon)
			offsetM := segmentStart + geo.HaversineDistanceM(prev.Lat, prev.Lon, foot.Lat, foot.Lon)
			consider(dist, offsetM, false)
		}
	}

	if bestDist == math.MaxFloat64 || bestDist >= bestSoFar {
		return candidate{}, false
	}

	return candidate{
		snap: datastructure.SnapPoint{
			EdgeID: view.Canonical(),
			Offset: offsetOf(bestOffsetM, totalLength),
		},
		distance: bestDist,
		isVertex: bestIsVertex,
	}, true
}

// offsetOf converts a cumulative length along the edge into the 16 bit
// offset, clamped to its range.
func offsetOf(offsetM, totalLength float64) uint16 {
	if totalLength <= 0 {
		return 0
	}
	offset := math.Floor(offsetM / totalLength * float64(datastructure.MaxSnapOffset))
	if offset < 0 {
		offset = 0
	} else if offset > float64(datastructure.MaxSnapOffset) {
		offset = float64(datastructure.MaxSnapOffset)
	}
	return uint16(offset)
}

// forEachCandidateEdge yields every edge with at least one endpoint in box,
// each canonical edge once, until fn returns false.
func (rs *RoadSnapper) forEachCandidateEdge(box datastructure.BoundingBox, fn func(view graph.EdgeView) bool) {
	if rs.index != nil {
		rs.index.search(box, fn)
		return
	}

	seen := make(map[datastructure.EdgeID]struct{})
	rs.network.SearchVerticesInBox(box, func(v datastructure.VertexID, _ datastructure.Coordinate) bool {
		stop := false
		rs.network.ForEachVertexEdge(v, func(view graph.EdgeView, _ bool) bool {
			canonical := view.Canonical()
			if _, ok := seen[canonical]; ok {
				return true
			}
			seen[canonical] = struct{}{}
			if !fn(view) {
				stop = true
				return false
			}
			return true
		})
		return !stop
	})
}
