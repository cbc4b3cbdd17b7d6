package tile

import (
	"fmt"

	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/geo"

	"github.com/kelindar/binary"
)

// tileImage is the serializable mirror of a GraphTile. Arenas are trimmed to
// their logical length; the string lookup map is rebuilt on load.
type tileImage struct {
	Zoom   int
	TileID uint32

	NextVertexID         uint32
	NextEdgeID           uint32
	NextAttributePointer uint32
	NextShapePointer     uint32
	NextStringID         uint32

	Pointers      []uint32
	Edges         []byte
	Coordinates   []byte
	Shapes        []byte
	Attributes    []byte
	Strings       []byte
	StringOffsets []uint32

	TurnCosts map[uint32][]TurnCostTable
}

// Marshal encodes the tile for the container and the tile store.
func (t *GraphTile) Marshal() ([]byte, error) {
	image := tileImage{
		Zoom:                 t.zoom,
		TileID:               t.tileID,
		NextVertexID:         t.nextVertexID,
		NextEdgeID:           t.nextEdgeID,
		NextAttributePointer: t.nextAttributePointer,
		NextShapePointer:     t.nextShapePointer,
		NextStringID:         t.nextStringID,
		Pointers:             t.pointers,
		Edges:                t.edges[:t.nextEdgeID],
		Coordinates:          t.coordinates,
		Shapes:               t.shapes[:t.nextShapePointer],
		Attributes:           t.attributes[:t.nextAttributePointer],
		Strings:              t.strings,
		StringOffsets:        t.stringOffsets,
		TurnCosts:            t.turnCosts,
	}
	return binary.Marshal(image)
}

// Unmarshal decodes a tile written by Marshal.
func Unmarshal(data []byte) (*GraphTile, error) {
	var image tileImage
	if err := binary.Unmarshal(data, &image); err != nil {
		return nil, fmt.Errorf("unmarshal tile: %v: %w", err, datastructure.ErrCorrupt)
	}
	if len(image.Pointers) != int(image.NextVertexID) {
		return nil, fmt.Errorf("unmarshal tile %d: %d head pointers for %d vertices: %w",
			image.TileID, len(image.Pointers), image.NextVertexID, datastructure.ErrCorrupt)
	}

	t := &GraphTile{
		zoom:                 image.Zoom,
		tileID:               image.TileID,
		bounds:               geo.TileBounds(image.Zoom, image.TileID),
		nextVertexID:         image.NextVertexID,
		nextEdgeID:           image.NextEdgeID,
		nextAttributePointer: image.NextAttributePointer,
		nextShapePointer:     image.NextShapePointer,
		nextStringID:         image.NextStringID,
		pointers:             image.Pointers,
		edges:                image.Edges,
		coordinates:          image.Coordinates,
		shapes:               image.Shapes,
		attributes:           image.Attributes,
		strings:              image.Strings,
		stringOffsets:        image.StringOffsets,
		stringLookup:         make(map[string]uint32, image.NextStringID),
		turnCosts:            image.TurnCosts,
	}
	if t.turnCosts == nil {
		t.turnCosts = make(map[uint32][]TurnCostTable)
	}
	for id := uint32(0); id < t.nextStringID; id++ {
		s, _ := t.getString(id)
		t.stringLookup[s] = id
	}
	return t, nil
}
