package tile

import (
	"fmt"

	"github.com/mikelor/routing2/pkg/datastructure"
)

// TurnCostTable is one NxN cost matrix over the ordered incident edges of a
// vertex, keyed by a turn cost type id. Costs[i][j] is the cost of arriving
// on Edges[i] and leaving on Edges[j].
type TurnCostTable struct {
	TurnCostTypeID uint32
	Edges          []datastructure.EdgeID
	Costs          [][]float64
}

// Cost looks up the turn cost from one incident edge to another. ok is false
// when either edge does not participate in the table.
func (table TurnCostTable) Cost(from, to datastructure.EdgeID) (float64, bool) {
	fromIdx, toIdx := -1, -1
	for i, e := range table.Edges {
		if e == from {
			fromIdx = i
		}
		if e == to {
			toIdx = i
		}
	}
	if fromIdx < 0 || toIdx < 0 {
		return 0, false
	}
	return table.Costs[fromIdx][toIdx], true
}

// AddTurnCosts attaches a turn cost table to a local vertex.
func (t *GraphTile) AddTurnCosts(v datastructure.VertexID, table TurnCostTable) error {
	if v.TileID != t.tileID || v.LocalID >= t.nextVertexID {
		return fmt.Errorf("add turn costs: vertex %d/%d: %w", v.TileID, v.LocalID, datastructure.ErrNotFound)
	}
	if len(table.Costs) != len(table.Edges) {
		return fmt.Errorf("add turn costs: %d rows for %d edges: %w", len(table.Costs), len(table.Edges), datastructure.ErrInvalidArgument)
	}
	for _, row := range table.Costs {
		if len(row) != len(table.Edges) {
			return fmt.Errorf("add turn costs: ragged matrix: %w", datastructure.ErrInvalidArgument)
		}
	}

	t.turnCosts[v.LocalID] = append(t.turnCosts[v.LocalID], table)
	return nil
}

// TurnCostTables returns the tables attached to a local vertex, oldest first.
func (t *GraphTile) TurnCostTables(v datastructure.VertexID) []TurnCostTable {
	if v.TileID != t.tileID {
		return nil
	}
	return t.turnCosts[v.LocalID]
}
