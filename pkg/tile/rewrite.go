package tile

import (
	"github.com/mikelor/routing2/pkg/codec"
	"github.com/mikelor/routing2/pkg/datastructure"
)

// Clone returns a structural copy of the tile. Mutators clone a tile before
// the first touch so readers of the previous snapshot stay undisturbed.
func (t *GraphTile) Clone() *GraphTile {
	out := &GraphTile{
		zoom:                 t.zoom,
		tileID:               t.tileID,
		bounds:               t.bounds,
		nextVertexID:         t.nextVertexID,
		nextEdgeID:           t.nextEdgeID,
		nextAttributePointer: t.nextAttributePointer,
		nextShapePointer:     t.nextShapePointer,
		nextStringID:         t.nextStringID,

		pointers:      append([]uint32(nil), t.pointers...),
		edges:         append([]byte(nil), t.edges...),
		coordinates:   append([]byte(nil), t.coordinates...),
		shapes:        append([]byte(nil), t.shapes...),
		attributes:    append([]byte(nil), t.attributes...),
		strings:       append([]byte(nil), t.strings...),
		stringOffsets: append([]uint32(nil), t.stringOffsets...),

		stringLookup: make(map[string]uint32, len(t.stringLookup)),
		turnCosts:    make(map[uint32][]TurnCostTable, len(t.turnCosts)),
	}
	for s, id := range t.stringLookup {
		out.stringLookup[s] = id
	}
	for v, tables := range t.turnCosts {
		out.turnCosts[v] = append([]TurnCostTable(nil), tables...)
	}
	return out
}

// ApplyEdgeTypeFunc produces a rewritten tile where every edge's type id is
// replaced by classify(attributes of the edge). Record field widths are
// preserved so offsets, and with them edge ids, stay stable; the edges arena
// is rebuilt and head pointers recomputed, every other arena is shared with
// the receiver.
func (t *GraphTile) ApplyEdgeTypeFunc(classify func(attrs []datastructure.Attribute) uint32) *GraphTile {
	out := &GraphTile{
		zoom:                 t.zoom,
		tileID:               t.tileID,
		bounds:               t.bounds,
		nextVertexID:         t.nextVertexID,
		nextEdgeID:           t.nextEdgeID,
		nextAttributePointer: t.nextAttributePointer,
		nextShapePointer:     t.nextShapePointer,
		nextStringID:         t.nextStringID,

		edges:    append([]byte(nil), t.edges...),
		pointers: make([]uint32, len(t.pointers)),

		coordinates:   t.coordinates,
		shapes:        t.shapes,
		attributes:    t.attributes,
		strings:       t.strings,
		stringOffsets: t.stringOffsets,
		stringLookup:  t.stringLookup,
		turnCosts:     t.turnCosts,
	}
	for i := range out.pointers {
		out.pointers[i] = nullPointer
	}

	t.ForEachEdge(func(rec EdgeRecord) bool {
		typeID := classify(t.Attributes(rec))

		// the edge type field sits right behind the optional canonical id
		fieldPos := int(rec.offset) + rec.size - edgeTypeFieldWidth - trailingFieldsSize(rec)
		writePaddedNullable(out.edges, fieldPos, uint64(typeID), true, edgeTypeFieldWidth)

		relink(out, rec)
		return true
	})

	return out
}

// trailingFieldsSize is the encoded size of the three nullable fields that
// follow the edge type field in a record.
func trailingFieldsSize(rec EdgeRecord) int {
	size := nullableSize(uint64(rec.LengthCM), rec.HasLength)
	size += nullableSize(uint64(rec.shapePointer), rec.hasShape)
	size += nullableSize(uint64(rec.attrPointer), rec.hasAttrs)
	return size
}

func nullableSize(v uint64, present bool) int {
	raw := uint64(0)
	if present {
		raw = v + 1
	}
	return codec.VaruintSize(raw)
}

// relink rebuilds the head pointer chain entries for one record. Records are
// revisited in append order, so the resulting chains match the original.
func relink(out *GraphTile, rec EdgeRecord) {
	out.pointers[rec.From.LocalID] = rec.offset
	if rec.To.TileID == out.tileID {
		out.pointers[rec.To.LocalID] = rec.offset
	}
}
