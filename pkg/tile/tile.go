// Package tile owns the per-tile storage of the routing graph: vertex
// coordinates, packed edge records, shape and attribute arenas, the interned
// string table and the turn cost block. All read operations are safe to share
// across readers; append operations are reserved for the unique writer.
package tile

import (
	"math"

	"github.com/mikelor/routing2/pkg/codec"
	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/geo"
)

const (
	// coordinateResolution is the per-axis quantization grid inside a tile.
	coordinateResolution = 1<<12 - 1

	// coordinateWidth is the stored size of one axis value.
	coordinateWidth = 3

	vertexSize = 2 * coordinateWidth

	// nullPointer marks an empty per-vertex head pointer.
	nullPointer uint32 = math.MaxUint32

	// edgeTypeFieldWidth pads the nullable edge type field to a constant
	// width so an edge type rewrite never shifts record offsets.
	edgeTypeFieldWidth = 5

	// maxEdgeRecordSize bounds one encoded edge record: two endpoints, two
	// previous-edge pointers, canonical id, edge type, length, shape and
	// attribute pointers.
	maxEdgeRecordSize = 64
)

// GraphTile is one slippy map cell of the routing graph.
type GraphTile struct {
	zoom   int
	tileID uint32
	bounds datastructure.BoundingBox

	nextVertexID         uint32
	nextEdgeID           uint32 // byte offset of the next edge record
	nextAttributePointer uint32
	nextShapePointer     uint32
	nextStringID         uint32

	pointers    []uint32 // per-vertex head offset into edges
	edges       []byte
	coordinates []byte
	shapes      []byte
	attributes  []byte
	strings     []byte

	stringOffsets []uint32
	stringLookup  map[string]uint32

	turnCosts map[uint32][]TurnCostTable
}

func NewGraphTile(zoom int, tileID uint32) *GraphTile {
	return &GraphTile{
		zoom:         zoom,
		tileID:       tileID,
		bounds:       geo.TileBounds(zoom, tileID),
		pointers:     make([]uint32, 0),
		edges:        make([]byte, 0),
		coordinates:  make([]byte, 0),
		shapes:       make([]byte, 0),
		attributes:   make([]byte, 0),
		strings:      make([]byte, 0),
		stringLookup: make(map[string]uint32),
		turnCosts:    make(map[uint32][]TurnCostTable),
	}
}

func (t *GraphTile) Zoom() int {
	return t.zoom
}

func (t *GraphTile) TileID() uint32 {
	return t.tileID
}

func (t *GraphTile) Bounds() datastructure.BoundingBox {
	return t.bounds
}

func (t *GraphTile) VertexCount() uint32 {
	return t.nextVertexID
}

// AddVertex quantizes lat/lon to the tile grid and appends a new vertex.
func (t *GraphTile) AddVertex(lat, lon float64) datastructure.VertexID {
	localID := t.nextVertexID
	t.nextVertexID++

	latQ := t.quantize(lat, t.bounds.MinLat, t.bounds.MaxLat)
	lonQ := t.quantize(lon, t.bounds.MinLon, t.bounds.MaxLon)

	pos := len(t.coordinates)
	t.coordinates = append(t.coordinates, make([]byte, vertexSize)...)
	codec.WriteFixed(t.coordinates, pos, coordinateWidth, uint64(lonQ))
	codec.WriteFixed(t.coordinates, pos+coordinateWidth, coordinateWidth, uint64(latQ))

	t.pointers = append(t.pointers, nullPointer)

	return datastructure.NewVertexID(t.tileID, localID)
}

// TryGetVertex returns the dequantized coordinate of a local vertex.
func (t *GraphTile) TryGetVertex(v datastructure.VertexID) (datastructure.Coordinate, bool) {
	if v.TileID != t.tileID || v.LocalID >= t.nextVertexID {
		return datastructure.Coordinate{}, false
	}
	pos := int(v.LocalID) * vertexSize
	lonQ := codec.ReadFixed(t.coordinates, pos, coordinateWidth)
	latQ := codec.ReadFixed(t.coordinates, pos+coordinateWidth, coordinateWidth)

	return datastructure.Coordinate{
		Lat: t.dequantize(uint32(latQ), t.bounds.MinLat, t.bounds.MaxLat),
		Lon: t.dequantize(uint32(lonQ), t.bounds.MinLon, t.bounds.MaxLon),
	}, true
}

func (t *GraphTile) quantize(value, min, max float64) uint32 {
	rel := (value - min) / (max - min)
	q := int64(math.Round(rel * coordinateResolution))
	if q < 0 {
		q = 0
	} else if q > coordinateResolution {
		q = coordinateResolution
	}
	return uint32(q)
}

func (t *GraphTile) dequantize(q uint32, min, max float64) float64 {
	return min + float64(q)/coordinateResolution*(max-min)
}
