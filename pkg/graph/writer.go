package graph

import (
	"fmt"

	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/geo"
	"github.com/mikelor/routing2/pkg/tile"
)

// EdgeDetails is the optional payload of a new edge at the network level.
// The edge type id and length are derived when absent: the type from the
// network's edge type index over Attributes, the length from the geometry.
type EdgeDetails struct {
	Shape      []datastructure.Coordinate
	Attributes []datastructure.Attribute
	LengthCM   uint32
	HasLength  bool
}

// GraphWriter is the exclusive append only handle over the current network.
// Readers are logically frozen while one is out.
type GraphWriter struct {
	network  *RoutingNetwork
	released bool
}

// GetWriter hands out the writer. Fails with ErrInvalidState while another
// writer or a mutator is alive.
func (n *RoutingNetwork) GetWriter() (*GraphWriter, error) {
	if err := n.guard.acquire(stateWriterOut); err != nil {
		return nil, fmt.Errorf("get writer: %w", err)
	}
	n.log.Debug("graph writer acquired")
	return &GraphWriter{network: n}, nil
}

// Release returns the lifecycle to idle. Safe to call more than once.
func (w *GraphWriter) Release() {
	if w.released {
		return
	}
	w.released = true
	w.network.guard.release()
	w.network.log.Debug("graph writer released")
}

// AddVertex places a vertex in the tile owning its coordinate.
func (w *GraphWriter) AddVertex(lat, lon float64) (datastructure.VertexID, error) {
	if w.released {
		return datastructure.EmptyVertexID, fmt.Errorf("add vertex: writer released: %w", datastructure.ErrInvalidState)
	}
	tileID := geo.TileID(w.network.zoom, lat, lon)
	return w.network.ensureTile(tileID).AddVertex(lat, lon), nil
}

// AddEdge appends an edge between two existing vertices. A cross tile edge
// writes its canonical record into v1's tile and a mirror record into v2's.
func (w *GraphWriter) AddEdge(v1, v2 datastructure.VertexID, details EdgeDetails) (datastructure.EdgeID, error) {
	if w.released {
		return datastructure.EmptyEdgeID, fmt.Errorf("add edge: writer released: %w", datastructure.ErrInvalidState)
	}
	return addEdge(w.network, w.network.ensureTile, v1, v2, details)
}

// AddTurnCosts attaches an NxN turn cost matrix to a vertex, interning the
// attribute bag as a turn cost type.
func (w *GraphWriter) AddTurnCosts(v datastructure.VertexID, attrs []datastructure.Attribute, edges []datastructure.EdgeID, costs [][]float64) error {
	if w.released {
		return fmt.Errorf("add turn costs: writer released: %w", datastructure.ErrInvalidState)
	}
	return addTurnCosts(w.network, w.network.ensureTile, v, attrs, edges, costs)
}

// addEdge is the shared writer/mutator edge append. tileFor returns the
// writable tile owning a tile id.
func addEdge(n *RoutingNetwork, tileFor func(uint32) *tile.GraphTile, v1, v2 datastructure.VertexID, details EdgeDetails) (datastructure.EdgeID, error) {
	tileDetails := tile.EdgeDetails{
		Shape:      details.Shape,
		Attributes: details.Attributes,
		LengthCM:   details.LengthCM,
		HasLength:  details.HasLength,
	}
	if len(details.Attributes) > 0 {
		tileDetails.EdgeTypeID = n.edgeTypes.Get(details.Attributes)
		tileDetails.HasEdgeType = true
	}
	if !tileDetails.HasLength {
		if length, ok := edgeLengthCM(n, v1, v2, details.Shape); ok {
			tileDetails.LengthCM = length
			tileDetails.HasLength = true
		}
	}

	canonical, err := tileFor(v1.TileID).AddEdge(v1, v2, datastructure.EmptyEdgeID, tileDetails)
	if err != nil {
		return datastructure.EmptyEdgeID, err
	}
	if v1.TileID != v2.TileID {
		if _, err := tileFor(v2.TileID).AddEdge(v1, v2, canonical, tileDetails); err != nil {
			return datastructure.EmptyEdgeID, err
		}
	}
	return canonical, nil
}

func edgeLengthCM(n *RoutingNetwork, v1, v2 datastructure.VertexID, shape []datastructure.Coordinate) (uint32, bool) {
	if len(shape) == 0 {
		from, okFrom := n.TryGetVertex(v1)
		to, okTo := n.TryGetVertex(v2)
		if !okFrom || !okTo {
			return 0, false
		}
		shape = []datastructure.Coordinate{from, to}
	}
	length := 0.0
	for i := 1; i < len(shape); i++ {
		length += geo.HaversineDistanceM(shape[i-1].Lat, shape[i-1].Lon, shape[i].Lat, shape[i].Lon)
	}
	return uint32(length * 100.0), true
}

func addTurnCosts(n *RoutingNetwork, tileFor func(uint32) *tile.GraphTile, v datastructure.VertexID, attrs []datastructure.Attribute, edges []datastructure.EdgeID, costs [][]float64) error {
	return tileFor(v.TileID).AddTurnCosts(v, tile.TurnCostTable{
		TurnCostTypeID: n.turnCostTypes.Get(attrs),
		Edges:          edges,
		Costs:          costs,
	})
}
