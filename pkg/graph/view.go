package graph

import (
	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/geo"
	"github.com/mikelor/routing2/pkg/tile"
	"github.com/mikelor/routing2/pkg/util"
)

// EdgeView is an immutable view positioned at one edge record. It is the
// surface cost callbacks see; everything on it reads from the snapshot's
// byte arenas and is safe to share across readers.
type EdgeView struct {
	network *RoutingNetwork
	tile    *tile.GraphTile
	rec     tile.EdgeRecord
}

// ID is the id the record answers to in its own tile (a mirror id on the
// mirror side of a cross tile edge).
func (e EdgeView) ID() datastructure.EdgeID {
	return e.rec.ID
}

// Canonical is the edge's global identity, shared by both records of a
// cross tile edge.
func (e EdgeView) Canonical() datastructure.EdgeID {
	return e.rec.Canonical
}

// FromVertex is the edge's first endpoint in canonical orientation.
func (e EdgeView) FromVertex() datastructure.VertexID {
	if e.rec.ID.IsCross() {
		return e.rec.To
	}
	return e.rec.From
}

// ToVertex is the edge's second endpoint in canonical orientation.
func (e EdgeView) ToVertex() datastructure.VertexID {
	if e.rec.ID.IsCross() {
		return e.rec.From
	}
	return e.rec.To
}

func (e EdgeView) EdgeTypeID() (uint32, bool) {
	return e.rec.EdgeTypeID, e.rec.HasEdgeType
}

// EdgeTypeBag resolves the edge type id through the network's edge type
// index.
func (e EdgeView) EdgeTypeBag() ([]datastructure.Attribute, bool) {
	if !e.rec.HasEdgeType {
		return nil, false
	}
	return e.network.edgeTypes.GetBag(e.rec.EdgeTypeID)
}

// Attributes is the full attribute bag of the edge.
func (e EdgeView) Attributes() []datastructure.Attribute {
	return e.tile.Attributes(e.rec)
}

// Shape is the edge geometry in canonical orientation. A mirror record
// without a stored shape resolves its foreign endpoint through the
// neighbouring tile.
func (e EdgeView) Shape() []datastructure.Coordinate {
	shape, ok := e.tile.Shape(e.rec)
	if !ok {
		shape = e.resolveEndpointShape()
	}
	if e.rec.ID.IsCross() {
		return util.ReverseG(shape)
	}
	return shape
}

func (e EdgeView) resolveEndpointShape() []datastructure.Coordinate {
	from, okFrom := e.network.TryGetVertex(e.rec.From)
	to, okTo := e.network.TryGetVertex(e.rec.To)
	if !okFrom || !okTo {
		return nil
	}
	return []datastructure.Coordinate{from, to}
}

// LengthM is the edge length in meters, preferring the stored value over
// geometry.
func (e EdgeView) LengthM() float64 {
	if e.rec.HasLength {
		return float64(e.rec.LengthCM) / 100.0
	}
	shape := e.Shape()
	length := 0.0
	for i := 1; i < len(shape); i++ {
		length += geo.HaversineDistanceM(shape[i-1].Lat, shape[i-1].Lon, shape[i].Lat, shape[i].Lon)
	}
	return length
}

// TurnCostTables returns the tables of the vertex the view is about to
// leave through; vertex must be an endpoint of the edge.
func (e EdgeView) TurnCostTables(v datastructure.VertexID) []tile.TurnCostTable {
	t := e.network.getTile(v.TileID)
	if t == nil {
		return nil
	}
	return t.TurnCostTables(v)
}

// EdgeEnumerator walks every canonical edge of the network, tile by tile in
// append order. Mirror records are skipped so a cross tile edge shows once.
type EdgeEnumerator struct {
	network *RoutingNetwork
	tileIDs []uint32
	tileIdx int
	pending []tile.EdgeRecord
	current EdgeView
}

// GetEdgeEnumerator returns an enumerator over the network snapshot.
func (n *RoutingNetwork) GetEdgeEnumerator() *EdgeEnumerator {
	return &EdgeEnumerator{network: n, tileIDs: n.TileIDs()}
}

// Next advances to the next canonical edge.
func (e *EdgeEnumerator) Next() bool {
	for {
		if len(e.pending) > 0 {
			rec := e.pending[0]
			e.pending = e.pending[1:]
			t := e.network.getTile(rec.ID.TileID)
			e.current = EdgeView{network: e.network, tile: t, rec: rec}
			return true
		}
		if e.tileIdx >= len(e.tileIDs) {
			return false
		}
		tileID := e.tileIDs[e.tileIdx]
		e.tileIdx++
		t := e.network.getTile(tileID)
		if t == nil {
			continue
		}
		t.ForEachEdge(func(rec tile.EdgeRecord) bool {
			if !rec.ID.IsCross() {
				e.pending = append(e.pending, rec)
			}
			return true
		})
	}
}

// Current is the edge the enumerator is positioned at.
func (e *EdgeEnumerator) Current() EdgeView {
	return e.current
}

// ForEachVertexEdge walks the adjacency chain of a vertex: every edge record
// in the vertex's tile that lists it as an endpoint, newest first.
func (n *RoutingNetwork) ForEachVertexEdge(v datastructure.VertexID, fn func(view EdgeView, forward bool) bool) {
	t := n.getTile(v.TileID)
	if t == nil {
		return
	}
	t.ForEachVertexEdge(v.LocalID, func(rec tile.EdgeRecord) bool {
		view := EdgeView{network: n, tile: t, rec: rec}
		// forward means leaving v travels the edge in canonical orientation
		forward := view.FromVertex() == v
		return fn(view, forward)
	})
}
