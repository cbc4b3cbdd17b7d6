package datastructure

import (
	"math"

	"github.com/twpayne/go-polyline"
)

type Coordinate struct {
	Lat float64
	Lon float64
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{Lat: lat, Lon: lon}
}

// BoundingBox is a lon/lat aligned rectangle.
type BoundingBox struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

func NewBoundingBox(minLat, minLon, maxLat, maxLon float64) BoundingBox {
	return BoundingBox{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}

func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

func (b BoundingBox) Overlaps(o BoundingBox) bool {
	return b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat &&
		b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon
}

func (b BoundingBox) Center() Coordinate {
	return Coordinate{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// Attribute is one key/value tag on an edge.
type Attribute struct {
	Key   string
	Value string
}

// SnapPoint is a position on an edge. Offset is 0 at the edge's from
// endpoint and MaxSnapOffset at its to endpoint.
type SnapPoint struct {
	EdgeID EdgeID
	Offset uint16
}

const MaxSnapOffset uint16 = math.MaxUint16

// OffsetFactor is the fractional position of the snap along its edge.
func (s SnapPoint) OffsetFactor() float64 {
	return float64(s.Offset) / float64(MaxSnapOffset)
}

// PathSegment is one traversed edge. Forward is false when the edge was
// walked against its native direction.
type PathSegment struct {
	Edge    EdgeID
	Forward bool
}

// Path is an ordered edge walk. Offset1 is measured forward along the first
// segment's traversal direction; Offset2 likewise on the last segment.
// Consecutive segments share a vertex.
type Path struct {
	Segments []PathSegment
	Offset1  uint16
	Offset2  uint16
	Cost     float64
}

// IsNull reports "no route": an unreached target.
func (p *Path) IsNull() bool {
	return p == nil || len(p.Segments) == 0
}

// RenderPath encodes the geometry of a path as a google polyline string.
func RenderPath(path []Coordinate) string {
	coords := make([][]float64, 0, len(path))
	for _, p := range path {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}
