package graph

import (
	"fmt"

	"github.com/mikelor/routing2/pkg/attrindex"
	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/geo"
	"github.com/mikelor/routing2/pkg/tile"

	"go.uber.org/zap"
)

// GraphMutator is the exclusive copy-on-write handle. It builds the next
// network generation, cloning each tile on first touch; readers keep the
// previous snapshot until Commit swaps it out in one pointer store.
type GraphMutator struct {
	base     *RoutingNetwork
	next     *RoutingNetwork
	touched  map[uint32]struct{}
	released bool
}

// GetMutator hands out the mutator. Fails with ErrInvalidState while a
// writer or another mutator is alive.
func (n *RoutingNetwork) GetMutator() (*GraphMutator, error) {
	if err := n.guard.acquire(stateMutatorOut); err != nil {
		return nil, fmt.Errorf("get mutator: %w", err)
	}

	next := &RoutingNetwork{
		zoom:          n.zoom,
		tiles:         make(map[uint32]*tileEntry),
		edgeTypes:     n.edgeTypes,
		turnCostTypes: n.turnCostTypes,
		provider:      n.provider,
		guard:         n.guard,
		db:            n.db,
		log:           n.log,
	}
	n.tilesMu.RLock()
	for id, entry := range n.tiles {
		next.tiles[id] = entry
	}
	n.tilesMu.RUnlock()

	n.log.Debug("graph mutator acquired", zap.Int("tiles", len(next.tiles)))
	return &GraphMutator{
		base:    n,
		next:    next,
		touched: make(map[uint32]struct{}),
	}, nil
}

// tileForWrite returns the next generation's writable copy of a tile,
// cloning the shared one on first touch.
func (m *GraphMutator) tileForWrite(tileID uint32) *tile.GraphTile {
	if _, ok := m.touched[tileID]; ok {
		return m.next.tiles[tileID].tile
	}
	m.touched[tileID] = struct{}{}

	m.next.tilesMu.Lock()
	defer m.next.tilesMu.Unlock()
	entry, ok := m.next.tiles[tileID]
	if !ok {
		entry = &tileEntry{
			tile:               tile.NewGraphTile(m.next.zoom, tileID),
			edgeTypeGeneration: m.next.edgeTypes.Generation(),
		}
		m.next.tiles[tileID] = entry
		return entry.tile
	}
	clone := &tileEntry{tile: entry.tile.Clone(), edgeTypeGeneration: entry.edgeTypeGeneration}
	m.next.tiles[tileID] = clone
	return clone.tile
}

func (m *GraphMutator) AddVertex(lat, lon float64) (datastructure.VertexID, error) {
	if m.released {
		return datastructure.EmptyVertexID, fmt.Errorf("add vertex: mutator released: %w", datastructure.ErrInvalidState)
	}
	tileID := geo.TileID(m.next.zoom, lat, lon)
	return m.tileForWrite(tileID).AddVertex(lat, lon), nil
}

func (m *GraphMutator) AddEdge(v1, v2 datastructure.VertexID, details EdgeDetails) (datastructure.EdgeID, error) {
	if m.released {
		return datastructure.EmptyEdgeID, fmt.Errorf("add edge: mutator released: %w", datastructure.ErrInvalidState)
	}
	return addEdge(m.next, m.tileForWrite, v1, v2, details)
}

func (m *GraphMutator) AddTurnCosts(v datastructure.VertexID, attrs []datastructure.Attribute, edges []datastructure.EdgeID, costs [][]float64) error {
	if m.released {
		return fmt.Errorf("add turn costs: mutator released: %w", datastructure.ErrInvalidState)
	}
	return addTurnCosts(m.next, m.tileForWrite, v, attrs, edges, costs)
}

// UpdateEdgeTypes installs a new edge type index and rewrites every tile
// whose recorded generation lags it. Tiles rewritten through the new index
// reuse ids for bags whose classification did not change.
func (m *GraphMutator) UpdateEdgeTypes(index *attrindex.AttributeSetIndex) {
	if m.released {
		return
	}
	m.next.edgeTypes = index

	m.next.tilesMu.Lock()
	defer m.next.tilesMu.Unlock()
	for id, entry := range m.next.tiles {
		if entry.edgeTypeGeneration == index.Generation() {
			continue
		}
		m.next.tiles[id] = &tileEntry{
			tile:               index.Update(entry.tile),
			edgeTypeGeneration: index.Generation(),
		}
		m.touched[id] = struct{}{}
	}
}

// Commit atomically publishes the next generation as Latest and releases
// the mutator.
func (m *GraphMutator) Commit() *RoutingNetwork {
	if m.released {
		return m.next
	}
	m.released = true
	if m.next.db != nil {
		m.next.db.publish(m.next)
	}
	m.next.guard.release()
	m.next.log.Debug("graph mutator committed", zap.Int("touched_tiles", len(m.touched)))
	return m.next
}

// Release abandons the pending generation. Safe to call after Commit.
func (m *GraphMutator) Release() {
	if m.released {
		return
	}
	m.released = true
	m.base.guard.release()
	m.base.log.Debug("graph mutator released without commit")
}
