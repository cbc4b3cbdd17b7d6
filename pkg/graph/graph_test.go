package graph

import (
	"testing"

	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/geo"
	"github.com/mikelor/routing2/pkg/tile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testZoom = 14

func buildSmallNetwork(t *testing.T) (*RouterDb, []datastructure.VertexID, []datastructure.EdgeID) {
	t.Helper()
	db := NewRouterDb(testZoom, nil)
	w, err := db.Latest().GetWriter()
	require.NoError(t, err)
	defer w.Release()

	a, _ := w.AddVertex(0.0001, 0.0001)
	b, _ := w.AddVertex(0.0001, 0.0009)
	c, _ := w.AddVertex(0.0009, 0.0009)

	ab, err := w.AddEdge(a, b, EdgeDetails{Attributes: []datastructure.Attribute{{Key: "highway", Value: "residential"}}})
	require.NoError(t, err)
	bc, err := w.AddEdge(b, c, EdgeDetails{Attributes: []datastructure.Attribute{{Key: "highway", Value: "residential"}}})
	require.NoError(t, err)

	return db, []datastructure.VertexID{a, b, c}, []datastructure.EdgeID{ab, bc}
}

func TestWriterMutatorExclusion(t *testing.T) {
	db := NewRouterDb(testZoom, nil)
	network := db.Latest()

	w, err := network.GetWriter()
	require.NoError(t, err)

	_, err = network.GetWriter()
	assert.ErrorIs(t, err, datastructure.ErrInvalidState)
	_, err = network.GetMutator()
	assert.ErrorIs(t, err, datastructure.ErrInvalidState)

	w.Release()
	w.Release() // idempotent

	m, err := network.GetMutator()
	require.NoError(t, err)
	_, err = network.GetWriter()
	assert.ErrorIs(t, err, datastructure.ErrInvalidState)
	m.Release()

	_, err = network.GetWriter()
	assert.NoError(t, err)
}

func TestWriterAddsInPlace(t *testing.T) {
	db, vertices, edges := buildSmallNetwork(t)
	network := db.Latest()

	got, ok := network.TryGetVertex(vertices[0])
	require.True(t, ok)
	assert.Less(t, geo.HaversineDistanceM(0.0001, 0.0001, got.Lat, got.Lon), 1.0)

	view, err := network.GetEdge(edges[0])
	require.NoError(t, err)
	assert.Equal(t, vertices[0], view.FromVertex())
	assert.Equal(t, vertices[1], view.ToVertex())
	assert.Greater(t, view.LengthM(), 0.0)
	assert.Equal(t, []datastructure.Attribute{{Key: "highway", Value: "residential"}}, view.Attributes())
}

func countEdges(n *RoutingNetwork) int {
	count := 0
	it := n.GetEdgeEnumerator()
	for it.Next() {
		count++
	}
	return count
}

func TestMutatorPublication(t *testing.T) {
	db, vertices, _ := buildSmallNetwork(t)
	before := db.Latest()
	require.Equal(t, 2, countEdges(before))

	m, err := db.Latest().GetMutator()
	require.NoError(t, err)

	d, err := m.AddVertex(0.0005, 0.0005)
	require.NoError(t, err)
	_, err = m.AddEdge(vertices[0], d, EdgeDetails{})
	require.NoError(t, err)

	// readers on the old snapshot are unaffected pre-commit
	assert.Equal(t, 2, countEdges(before))
	assert.Same(t, before, db.Latest())

	after := m.Commit()
	assert.Same(t, after, db.Latest())
	assert.Equal(t, 3, countEdges(after))

	// the old snapshot still reads the old state
	assert.Equal(t, 2, countEdges(before))
}

func TestMutatorReleaseWithoutCommit(t *testing.T) {
	db, vertices, _ := buildSmallNetwork(t)
	before := db.Latest()

	m, err := before.GetMutator()
	require.NoError(t, err)
	_, err = m.AddEdge(vertices[0], vertices[2], EdgeDetails{})
	require.NoError(t, err)
	m.Release()

	assert.Same(t, before, db.Latest())
	assert.Equal(t, 2, countEdges(db.Latest()))

	// lifecycle is idle again
	w, err := db.Latest().GetWriter()
	require.NoError(t, err)
	w.Release()
}

func TestCrossTileEdgeCountsOnce(t *testing.T) {
	db := NewRouterDb(testZoom, nil)
	w, err := db.Latest().GetWriter()
	require.NoError(t, err)
	defer w.Release()

	a, _ := w.AddVertex(0.0001, -0.0001)
	b, _ := w.AddVertex(0.0001, 0.0001)
	require.NotEqual(t, a.TileID, b.TileID)

	ab, err := w.AddEdge(a, b, EdgeDetails{})
	require.NoError(t, err)

	assert.Equal(t, 1, countEdges(db.Latest()))

	// the mirror side resolves to the same canonical id
	var mirrorCanonical datastructure.EdgeID
	db.Latest().ForEachVertexEdge(b, func(view EdgeView, forward bool) bool {
		mirrorCanonical = view.Canonical()
		assert.False(t, forward)
		return true
	})
	assert.Equal(t, ab, mirrorCanonical)
}

func TestSearchVerticesInBox(t *testing.T) {
	db, _, _ := buildSmallNetwork(t)

	box := datastructure.NewBoundingBox(0.0000, 0.0000, 0.0005, 0.0099)
	found := 0
	db.Latest().SearchVerticesInBox(box, func(v datastructure.VertexID, c datastructure.Coordinate) bool {
		assert.True(t, box.Contains(c.Lat, c.Lon))
		found++
		return true
	})
	assert.Equal(t, 2, found) // a and b, not c
}

func TestUpdateEdgeTypesRewritesStaleTiles(t *testing.T) {
	db, _, edges := buildSmallNetwork(t)
	before := db.Latest()

	view, err := before.GetEdge(edges[0])
	require.NoError(t, err)
	oldType, ok := view.EdgeTypeID()
	require.True(t, ok)

	// classification collapses every bag to its highway value only
	next := before.EdgeTypes().Next(func(bag []datastructure.Attribute) []datastructure.Attribute {
		for _, attr := range bag {
			if attr.Key == "highway" {
				return []datastructure.Attribute{attr}
			}
		}
		return nil
	})
	require.Equal(t, before.EdgeTypes().Generation()+1, next.Generation())

	m, err := before.GetMutator()
	require.NoError(t, err)
	m.UpdateEdgeTypes(next)
	after := m.Commit()

	view, err = after.GetEdge(edges[0])
	require.NoError(t, err)
	newType, ok := view.EdgeTypeID()
	require.True(t, ok)

	bag, ok := after.EdgeTypes().GetBag(newType)
	require.True(t, ok)
	assert.Equal(t, []datastructure.Attribute{{Key: "highway", Value: "residential"}}, bag)

	// the previous snapshot still resolves through the old index
	oldView, err := before.GetEdge(edges[0])
	require.NoError(t, err)
	gotOld, _ := oldView.EdgeTypeID()
	assert.Equal(t, oldType, gotOld)
}

type stubProvider struct {
	tiles   map[uint32]*tile.GraphTile
	fetches []uint32
}

func (p *stubProvider) Fetch(tileID uint32) *tile.GraphTile {
	p.fetches = append(p.fetches, tileID)
	return p.tiles[tileID]
}

func TestTileProviderDemandLoad(t *testing.T) {
	loaded := tile.NewGraphTile(testZoom, geo.TileID(testZoom, 0.0005, 0.0005))
	loaded.AddVertex(0.0005, 0.0005)

	provider := &stubProvider{tiles: map[uint32]*tile.GraphTile{loaded.TileID(): loaded}}

	db := NewRouterDb(testZoom, nil)
	db.Latest().SetTileProvider(provider)

	box := datastructure.NewBoundingBox(0.0, 0.0, 0.001, 0.001)
	found := 0
	db.Latest().SearchVerticesInBox(box, func(datastructure.VertexID, datastructure.Coordinate) bool {
		found++
		return true
	})
	assert.Equal(t, 1, found)
	assert.NotEmpty(t, provider.fetches)

	// second search does not refetch resident tiles
	fetchesBefore := len(provider.fetches)
	db.Latest().SearchVerticesInBox(box, func(datastructure.VertexID, datastructure.Coordinate) bool { return true })
	for _, id := range provider.fetches[fetchesBefore:] {
		assert.NotEqual(t, loaded.TileID(), id)
	}
}
