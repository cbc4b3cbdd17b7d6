package tile

import (
	"fmt"

	"github.com/mikelor/routing2/pkg/codec"
	"github.com/mikelor/routing2/pkg/datastructure"
)

// EdgeDetails carries the optional payload of a new edge.
type EdgeDetails struct {
	Shape       []datastructure.Coordinate
	Attributes  []datastructure.Attribute
	EdgeTypeID  uint32
	HasEdgeType bool
	LengthCM    uint32
	HasLength   bool
}

// EdgeRecord is one decoded edge record.
//
// From is always the locally resident endpoint of a mirror record. ID is the
// id this record answers to inside its tile; Canonical is the id the edge is
// known by globally (equal to ID for same-tile edges).
type EdgeRecord struct {
	ID        datastructure.EdgeID
	Canonical datastructure.EdgeID
	From      datastructure.VertexID
	To        datastructure.VertexID

	prev1, prev2 uint32

	EdgeTypeID  uint32
	HasEdgeType bool
	LengthCM    uint32
	HasLength   bool

	shapePointer uint32
	hasShape     bool
	attrPointer  uint32
	hasAttrs     bool

	offset uint32
	size   int
}

// IsCrossTile reports whether the record's endpoints live in different tiles.
func (r EdgeRecord) IsCrossTile() bool {
	return r.From.TileID != r.To.TileID
}

// AddEdge appends an edge record between v1 and v2.
//
// When v1 is foreign the record is the mirror of an edge owned by another
// tile: the caller must pass the canonical id, and endpoints are swapped so
// the locally resident one is recorded first. Otherwise a fresh id is
// allocated, and for a cross tile edge that id doubles as the canonical
// payload written into the record.
func (t *GraphTile) AddEdge(v1, v2 datastructure.VertexID, canonical datastructure.EdgeID, details EdgeDetails) (datastructure.EdgeID, error) {
	mirror := false
	if v1.TileID != t.tileID {
		if v2.TileID != t.tileID {
			return datastructure.EmptyEdgeID, fmt.Errorf("add edge: no endpoint in tile %d: %w", t.tileID, datastructure.ErrInvalidArgument)
		}
		if canonical.IsEmpty() {
			return datastructure.EmptyEdgeID, fmt.Errorf("add edge: mirror record without canonical id: %w", datastructure.ErrInvalidArgument)
		}
		v1, v2 = v2, v1
		mirror = true
		// keep the stored shape running from the record's From to its To
		if len(details.Shape) > 0 {
			reversed := make([]datastructure.Coordinate, len(details.Shape))
			for i, p := range details.Shape {
				reversed[len(reversed)-1-i] = p
			}
			details.Shape = reversed
		}
	}
	if v1.LocalID >= t.nextVertexID {
		return datastructure.EmptyEdgeID, fmt.Errorf("add edge: vertex %d: %w", v1.LocalID, datastructure.ErrNotFound)
	}
	if v2.TileID == t.tileID && v2.LocalID >= t.nextVertexID {
		return datastructure.EmptyEdgeID, fmt.Errorf("add edge: vertex %d: %w", v2.LocalID, datastructure.ErrNotFound)
	}

	offset := t.nextEdgeID
	crossTile := v1.TileID != v2.TileID

	var id datastructure.EdgeID
	if mirror {
		id = datastructure.NewEdgeID(t.tileID, datastructure.MinCrossID+offset)
	} else {
		id = datastructure.NewEdgeID(t.tileID, offset)
		if crossTile {
			canonical = id
		}
	}

	var shapePointer uint32
	hasShape := len(details.Shape) > 0
	if hasShape {
		shapePointer = t.appendShape(details.Shape)
	}

	var attrPointer uint32
	hasAttrs := len(details.Attributes) > 0
	if hasAttrs {
		attrPointer = t.appendAttributes(details.Attributes)
	}

	t.edges = codec.EnsureCapacity(t.edges, int(offset), maxEdgeRecordSize)
	pos := int(offset)

	pos += t.writeEndpoint(pos, v1)
	pos += t.writeEndpoint(pos, v2)

	// capture the prior adjacency heads before relinking
	pos += writeNullablePointer(t.edges, pos, t.pointers[v1.LocalID])
	if !crossTile {
		pos += writeNullablePointer(t.edges, pos, t.pointers[v2.LocalID])
	} else {
		pos += writeNullablePointer(t.edges, pos, nullPointer)
	}

	if crossTile {
		pos += codec.WriteVaruint(t.edges, pos, canonical.Encode())
	}

	pos += writePaddedNullable(t.edges, pos, uint64(details.EdgeTypeID), details.HasEdgeType, edgeTypeFieldWidth)
	pos += codec.WriteNullableVaruint(t.edges, pos, uint64(details.LengthCM), details.HasLength)
	pos += codec.WriteNullableVaruint(t.edges, pos, uint64(shapePointer), hasShape)
	pos += codec.WriteNullableVaruint(t.edges, pos, uint64(attrPointer), hasAttrs)

	// relink the per-vertex intrusive lists at the new record
	t.pointers[v1.LocalID] = offset
	if !crossTile {
		t.pointers[v2.LocalID] = offset
	}

	t.nextEdgeID = uint32(pos)
	return id, nil
}

// writeEndpoint stores a vertex reference. Local endpoints write their local
// id, foreign ones the full 64 bit encoding; the low bit tells them apart.
func (t *GraphTile) writeEndpoint(pos int, v datastructure.VertexID) int {
	if v.TileID == t.tileID {
		return codec.WriteVaruint(t.edges, pos, uint64(v.LocalID)<<1)
	}
	return codec.WriteVaruint(t.edges, pos, v.Encode()<<1|1)
}

func (t *GraphTile) readEndpoint(pos int) (datastructure.VertexID, int) {
	raw, size := codec.ReadVaruint(t.edges, pos)
	if raw&1 == 0 {
		return datastructure.NewVertexID(t.tileID, uint32(raw>>1)), size
	}
	return datastructure.DecodeVertexID(raw >> 1), size
}

func writeNullablePointer(buf []byte, pos int, pointer uint32) int {
	return codec.WriteNullableVaruint(buf, pos, uint64(pointer), pointer != nullPointer)
}

// writePaddedNullable writes a nullable varint stretched to exactly width
// bytes with continuation padding, so rewrites can patch it in place.
func writePaddedNullable(buf []byte, pos int, v uint64, present bool, width int) int {
	raw := uint64(0)
	if present {
		raw = v + 1
	}
	for i := 0; i < width-1; i++ {
		buf[pos+i] = byte(raw) | 0x80
		raw >>= 7
	}
	buf[pos+width-1] = byte(raw)
	return width
}

// decodeEdge decodes the record starting at offset. The offset must point at
// a record start; records are trusted, corruption detection happens at load.
func (t *GraphTile) decodeEdge(offset uint32) EdgeRecord {
	rec := EdgeRecord{offset: offset}
	pos := int(offset)

	var n int
	rec.From, n = t.readEndpoint(pos)
	pos += n
	rec.To, n = t.readEndpoint(pos)
	pos += n

	var raw uint64
	var present bool
	raw, present, n = codec.ReadNullableVaruint(t.edges, pos)
	pos += n
	rec.prev1 = nullPointer
	if present {
		rec.prev1 = uint32(raw)
	}
	raw, present, n = codec.ReadNullableVaruint(t.edges, pos)
	pos += n
	rec.prev2 = nullPointer
	if present {
		rec.prev2 = uint32(raw)
	}

	if rec.From.TileID != rec.To.TileID {
		raw, n = codec.ReadVaruint(t.edges, pos)
		pos += n
		rec.Canonical = datastructure.DecodeEdgeID(raw)
	}

	raw, present, n = codec.ReadNullableVaruint(t.edges, pos)
	pos += n
	rec.EdgeTypeID, rec.HasEdgeType = uint32(raw), present

	raw, present, n = codec.ReadNullableVaruint(t.edges, pos)
	pos += n
	rec.LengthCM, rec.HasLength = uint32(raw), present

	raw, present, n = codec.ReadNullableVaruint(t.edges, pos)
	pos += n
	rec.shapePointer, rec.hasShape = uint32(raw), present

	raw, present, n = codec.ReadNullableVaruint(t.edges, pos)
	pos += n
	rec.attrPointer, rec.hasAttrs = uint32(raw), present

	rec.size = pos - int(offset)

	if rec.From.TileID == rec.To.TileID {
		rec.ID = datastructure.NewEdgeID(t.tileID, offset)
		rec.Canonical = rec.ID
	} else if rec.Canonical.TileID == t.tileID {
		rec.ID = rec.Canonical
	} else {
		rec.ID = datastructure.NewEdgeID(t.tileID, datastructure.MinCrossID+offset)
	}

	return rec
}

// GetEdge returns the record behind a local or mirror id.
func (t *GraphTile) GetEdge(id datastructure.EdgeID) (EdgeRecord, error) {
	if id.TileID != t.tileID {
		return EdgeRecord{}, fmt.Errorf("get edge: tile %d does not own %d: %w", t.tileID, id.TileID, datastructure.ErrNotFound)
	}
	offset := id.LocalID
	if id.IsCross() {
		offset -= datastructure.MinCrossID
	}
	if offset >= t.nextEdgeID {
		return EdgeRecord{}, fmt.Errorf("get edge: offset %d: %w", offset, datastructure.ErrNotFound)
	}
	return t.decodeEdge(offset), nil
}

// ForEachEdge calls fn for every edge record in append order until fn
// returns false.
func (t *GraphTile) ForEachEdge(fn func(rec EdgeRecord) bool) {
	for offset := uint32(0); offset < t.nextEdgeID; {
		rec := t.decodeEdge(offset)
		if !fn(rec) {
			return
		}
		offset += uint32(rec.size)
	}
}

// ForEachVertexEdge walks the intrusive adjacency chain of a local vertex,
// newest record first, until fn returns false.
func (t *GraphTile) ForEachVertexEdge(localID uint32, fn func(rec EdgeRecord) bool) {
	if localID >= uint32(len(t.pointers)) {
		return
	}
	vertex := datastructure.NewVertexID(t.tileID, localID)

	for offset := t.pointers[localID]; offset != nullPointer; {
		rec := t.decodeEdge(offset)
		if !fn(rec) {
			return
		}
		if rec.From == vertex {
			offset = rec.prev1
		} else {
			offset = rec.prev2
		}
	}
}
