package tile

import (
	"github.com/mikelor/routing2/pkg/codec"
	"github.com/mikelor/routing2/pkg/datastructure"
)

// coordinateScale is the fixed point scale of shape coordinates, 1e-6 degree.
const coordinateScale = 1e6

// internString returns the dense id of s, appending it to the string arena
// when unseen.
func (t *GraphTile) internString(s string) uint32 {
	if id, ok := t.stringLookup[s]; ok {
		return id
	}
	id := t.nextStringID
	t.nextStringID++

	offset := uint32(len(t.strings))
	t.strings = codec.EnsureCapacity(t.strings, len(t.strings), codec.MaxVarintLen64+len(s))
	pos := int(offset)
	pos += codec.WriteVaruint(t.strings, pos, uint64(len(s)))
	copy(t.strings[pos:], s)
	t.strings = t.strings[:pos+len(s)]

	t.stringOffsets = append(t.stringOffsets, offset)
	t.stringLookup[s] = id
	return id
}

func (t *GraphTile) getString(id uint32) (string, bool) {
	if id >= t.nextStringID {
		return "", false
	}
	pos := int(t.stringOffsets[id])
	length, n := codec.ReadVaruint(t.strings, pos)
	start := pos + n
	return string(t.strings[start : start+int(length)]), true
}

// appendAttributes writes a bag as a run of interned (key, value) id pairs
// and returns its pointer into the attribute arena.
func (t *GraphTile) appendAttributes(attrs []datastructure.Attribute) uint32 {
	pointer := t.nextAttributePointer

	need := codec.MaxVarintLen64 * (1 + 2*len(attrs))
	t.attributes = codec.EnsureCapacity(t.attributes, int(pointer), need)

	pos := int(pointer)
	pos += codec.WriteVaruint(t.attributes, pos, uint64(len(attrs)))
	for _, a := range attrs {
		pos += codec.WriteVaruint(t.attributes, pos, uint64(t.internString(a.Key)))
		pos += codec.WriteVaruint(t.attributes, pos, uint64(t.internString(a.Value)))
	}

	t.nextAttributePointer = uint32(pos)
	return pointer
}

// Attributes decodes the attribute bag of an edge record. Edges without a
// bag yield nil.
func (t *GraphTile) Attributes(rec EdgeRecord) []datastructure.Attribute {
	if !rec.hasAttrs {
		return nil
	}
	pos := int(rec.attrPointer)
	count, n := codec.ReadVaruint(t.attributes, pos)
	pos += n

	attrs := make([]datastructure.Attribute, 0, count)
	for i := uint64(0); i < count; i++ {
		keyID, n := codec.ReadVaruint(t.attributes, pos)
		pos += n
		valueID, n := codec.ReadVaruint(t.attributes, pos)
		pos += n

		key, _ := t.getString(uint32(keyID))
		value, _ := t.getString(uint32(valueID))
		attrs = append(attrs, datastructure.Attribute{Key: key, Value: value})
	}
	return attrs
}

// appendShape writes a shape as a point count followed by zigzag deltas of
// 1e-6 degree fixed point coordinates, first point absolute.
func (t *GraphTile) appendShape(shape []datastructure.Coordinate) uint32 {
	pointer := t.nextShapePointer

	need := codec.MaxVarintLen64 * (1 + 2*len(shape))
	t.shapes = codec.EnsureCapacity(t.shapes, int(pointer), need)

	pos := int(pointer)
	pos += codec.WriteVaruint(t.shapes, pos, uint64(len(shape)))

	var prevLat, prevLon int64
	for _, p := range shape {
		lat := int64(roundFixed(p.Lat))
		lon := int64(roundFixed(p.Lon))
		pos += codec.WriteZigzagVarint(t.shapes, pos, lat-prevLat)
		pos += codec.WriteZigzagVarint(t.shapes, pos, lon-prevLon)
		prevLat, prevLon = lat, lon
	}

	t.nextShapePointer = uint32(pos)
	return pointer
}

func roundFixed(degree float64) int64 {
	if degree < 0 {
		return int64(degree*coordinateScale - 0.5)
	}
	return int64(degree*coordinateScale + 0.5)
}

func (t *GraphTile) readShape(pointer uint32) []datastructure.Coordinate {
	pos := int(pointer)
	count, n := codec.ReadVaruint(t.shapes, pos)
	pos += n

	shape := make([]datastructure.Coordinate, 0, count)
	var lat, lon int64
	for i := uint64(0); i < count; i++ {
		dLat, n := codec.ReadZigzagVarint(t.shapes, pos)
		pos += n
		dLon, n := codec.ReadZigzagVarint(t.shapes, pos)
		pos += n
		lat += dLat
		lon += dLon
		shape = append(shape, datastructure.Coordinate{
			Lat: float64(lat) / coordinateScale,
			Lon: float64(lon) / coordinateScale,
		})
	}
	return shape
}

// Shape returns the full geometry of an edge record from its from endpoint
// to its to endpoint. Without a stored shape it falls back to the two
// endpoint coordinates; ok is false when a foreign endpoint would be needed
// and the caller has to resolve it through the neighbouring tile.
func (t *GraphTile) Shape(rec EdgeRecord) ([]datastructure.Coordinate, bool) {
	if rec.hasShape {
		return t.readShape(rec.shapePointer), true
	}

	from, okFrom := t.TryGetVertex(rec.From)
	to, okTo := t.TryGetVertex(rec.To)
	if !okFrom || !okTo {
		return nil, false
	}
	return []datastructure.Coordinate{from, to}, true
}
