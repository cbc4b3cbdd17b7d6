// Package graph assembles tiles into a routing network and manages the
// read / write / mutate / publish lifecycle around it.
package graph

import (
	"fmt"
	"sync"

	"github.com/mikelor/routing2/pkg/attrindex"
	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/geo"
	"github.com/mikelor/routing2/pkg/tile"

	"go.uber.org/zap"
)

// TileProvider demand loads tiles the network does not hold yet. Fetch may
// block while the provider materializes the tile; it returns nil for tiles
// that do not exist. The network does not cache beyond keeping fetched
// tiles; cache policy belongs to the provider.
type TileProvider interface {
	Fetch(tileID uint32) *tile.GraphTile
}

type tileEntry struct {
	tile               *tile.GraphTile
	edgeTypeGeneration int
}

// RoutingNetwork is one immutable-to-readers snapshot of the graph: a sparse
// collection of tiles at a fixed zoom plus the attribute set indexes the
// tiles were written against.
type RoutingNetwork struct {
	zoom int

	tilesMu sync.RWMutex
	tiles   map[uint32]*tileEntry

	edgeTypes     *attrindex.AttributeSetIndex
	turnCostTypes *attrindex.AttributeSetIndex

	provider TileProvider

	guard *lifecycleGuard
	db    *RouterDb
	log   *zap.Logger
}

func NewRoutingNetwork(zoom int, logger *zap.Logger) *RoutingNetwork {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoutingNetwork{
		zoom:          zoom,
		tiles:         make(map[uint32]*tileEntry),
		edgeTypes:     attrindex.New(nil),
		turnCostTypes: attrindex.New(nil),
		guard:         &lifecycleGuard{},
		log:           logger,
	}
}

// AssembleNetwork builds a network value from loaded tiles and indexes, as
// the persistence container does.
func AssembleNetwork(zoom int, tiles []*tile.GraphTile, edgeTypes, turnCostTypes *attrindex.AttributeSetIndex, logger *zap.Logger) *RoutingNetwork {
	n := NewRoutingNetwork(zoom, logger)
	if edgeTypes != nil {
		n.edgeTypes = edgeTypes
	}
	if turnCostTypes != nil {
		n.turnCostTypes = turnCostTypes
	}
	for _, t := range tiles {
		n.tiles[t.TileID()] = &tileEntry{tile: t, edgeTypeGeneration: n.edgeTypes.Generation()}
	}
	return n
}

func (n *RoutingNetwork) Zoom() int {
	return n.zoom
}

func (n *RoutingNetwork) EdgeTypes() *attrindex.AttributeSetIndex {
	return n.edgeTypes
}

func (n *RoutingNetwork) TurnCostTypes() *attrindex.AttributeSetIndex {
	return n.turnCostTypes
}

// SetTileProvider installs the demand load hook.
func (n *RoutingNetwork) SetTileProvider(p TileProvider) {
	n.provider = p
}

func (n *RoutingNetwork) getTile(tileID uint32) *tile.GraphTile {
	n.tilesMu.RLock()
	entry, ok := n.tiles[tileID]
	n.tilesMu.RUnlock()
	if !ok {
		return nil
	}
	return entry.tile
}

// notify gives the provider a chance to materialize a tile before it is
// read. Invoked by box searches; a blocking provider blocks the caller.
func (n *RoutingNetwork) notify(tileID uint32) {
	if n.provider == nil {
		return
	}
	n.tilesMu.RLock()
	_, ok := n.tiles[tileID]
	n.tilesMu.RUnlock()
	if ok {
		return
	}
	fetched := n.provider.Fetch(tileID)
	if fetched == nil {
		return
	}
	n.tilesMu.Lock()
	if _, ok := n.tiles[tileID]; !ok {
		n.tiles[tileID] = &tileEntry{tile: fetched, edgeTypeGeneration: n.edgeTypes.Generation()}
	}
	n.tilesMu.Unlock()
}

// ensureTile returns the tile owning tileID, creating it when absent.
// Writer-side only.
func (n *RoutingNetwork) ensureTile(tileID uint32) *tile.GraphTile {
	n.tilesMu.Lock()
	defer n.tilesMu.Unlock()
	entry, ok := n.tiles[tileID]
	if !ok {
		entry = &tileEntry{
			tile:               tile.NewGraphTile(n.zoom, tileID),
			edgeTypeGeneration: n.edgeTypes.Generation(),
		}
		n.tiles[tileID] = entry
	}
	return entry.tile
}

// TileIDs returns the ids of all resident tiles.
func (n *RoutingNetwork) TileIDs() []uint32 {
	n.tilesMu.RLock()
	defer n.tilesMu.RUnlock()
	ids := make([]uint32, 0, len(n.tiles))
	for id := range n.tiles {
		ids = append(ids, id)
	}
	return ids
}

// GetTile returns a resident tile by id.
func (n *RoutingNetwork) GetTile(tileID uint32) (*tile.GraphTile, error) {
	t := n.getTile(tileID)
	if t == nil {
		return nil, fmt.Errorf("get tile %d: %w", tileID, datastructure.ErrNotFound)
	}
	return t, nil
}

// TryGetVertex resolves a vertex id to its coordinate.
func (n *RoutingNetwork) TryGetVertex(v datastructure.VertexID) (datastructure.Coordinate, bool) {
	t := n.getTile(v.TileID)
	if t == nil {
		return datastructure.Coordinate{}, false
	}
	return t.TryGetVertex(v)
}

// GetEdge resolves an edge id, canonical or mirror, to a view.
func (n *RoutingNetwork) GetEdge(id datastructure.EdgeID) (EdgeView, error) {
	t := n.getTile(id.TileID)
	if t == nil {
		return EdgeView{}, fmt.Errorf("get edge: tile %d: %w", id.TileID, datastructure.ErrNotFound)
	}
	rec, err := t.GetEdge(id)
	if err != nil {
		return EdgeView{}, err
	}
	return EdgeView{network: n, tile: t, rec: rec}, nil
}

// SearchVerticesInBox yields every vertex whose coordinate falls inside box,
// notifying the tile provider for each candidate tile first.
func (n *RoutingNetwork) SearchVerticesInBox(box datastructure.BoundingBox, fn func(v datastructure.VertexID, c datastructure.Coordinate) bool) {
	for _, tileID := range n.tileIDsInBox(box) {
		t := n.getTile(tileID)
		if t == nil {
			continue
		}
		for localID := uint32(0); localID < t.VertexCount(); localID++ {
			v := datastructure.NewVertexID(tileID, localID)
			c, ok := t.TryGetVertex(v)
			if !ok || !box.Contains(c.Lat, c.Lon) {
				continue
			}
			if !fn(v, c) {
				return
			}
		}
	}
}

// tileIDsInBox enumerates the tile grid cells overlapping box and notifies
// the provider for each.
func (n *RoutingNetwork) tileIDsInBox(box datastructure.BoundingBox) []uint32 {
	minID := geo.TileID(n.zoom, box.MaxLat, box.MinLon) // tile rows grow southward
	maxID := geo.TileID(n.zoom, box.MinLat, box.MaxLon)
	minX, minY := geo.TileXY(n.zoom, minID)
	maxX, maxY := geo.TileXY(n.zoom, maxID)

	ids := make([]uint32, 0, (maxX-minX+1)*(maxY-minY+1))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			tileID := y*geo.TileCount(n.zoom) + x
			n.notify(tileID)
			ids = append(ids, tileID)
		}
	}
	return ids
}
