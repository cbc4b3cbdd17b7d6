package kv

import (
	"context"
	"testing"

	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/geo"
	"github.com/mikelor/routing2/pkg/graph"
	"github.com/mikelor/routing2/pkg/tile"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testZoom = 14

func openTestStore(t *testing.T) *TileStore {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewTileStore(db)
}

func TestPutAndGetTile(t *testing.T) {
	store := openTestStore(t)

	tl := tile.NewGraphTile(testZoom, geo.TileID(testZoom, 0.0005, 0.0005))
	a := tl.AddVertex(0.0001, 0.0001)
	b := tl.AddVertex(0.0009, 0.0009)
	id, err := tl.AddEdge(a, b, datastructure.EmptyEdgeID, tile.EdgeDetails{
		Attributes: []datastructure.Attribute{{Key: "highway", Value: "residential"}},
	})
	require.NoError(t, err)

	require.NoError(t, store.PutTile(tl))

	loaded, err := store.GetTile(tl.TileID())
	require.NoError(t, err)
	assert.Equal(t, tl.VertexCount(), loaded.VertexCount())

	rec, err := loaded.GetEdge(id)
	require.NoError(t, err)
	assert.Equal(t, []datastructure.Attribute{{Key: "highway", Value: "residential"}}, loaded.Attributes(rec))
}

func TestGetMissingTile(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetTile(42)
	assert.ErrorIs(t, err, ErrTileNotFound)
	assert.Nil(t, store.Fetch(42))
}

func TestPutNetworkAndDemandLoad(t *testing.T) {
	store := openTestStore(t)

	db := graph.NewRouterDb(testZoom, nil)
	w, err := db.Latest().GetWriter()
	require.NoError(t, err)
	a, _ := w.AddVertex(0.0001, 0.0001)
	b, _ := w.AddVertex(0.0001, 0.0009)
	_, err = w.AddEdge(a, b, graph.EdgeDetails{})
	require.NoError(t, err)
	w.Release()

	require.NoError(t, store.PutNetwork(context.Background(), db.Latest()))

	// a fresh empty network demand loads the stored tile during box search
	fresh := graph.NewRouterDb(testZoom, nil)
	fresh.Latest().SetTileProvider(store)

	box := datastructure.NewBoundingBox(0.0, 0.0, 0.001, 0.001)
	found := 0
	fresh.Latest().SearchVerticesInBox(box, func(datastructure.VertexID, datastructure.Coordinate) bool {
		found++
		return true
	})
	assert.Equal(t, 2, found)
}
