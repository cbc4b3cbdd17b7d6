package attrindex

import (
	"testing"

	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/geo"
	"github.com/mikelor/routing2/pkg/tile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInternsAndReuses(t *testing.T) {
	idx := New(nil)

	bag := []datastructure.Attribute{{Key: "highway", Value: "residential"}}
	id := idx.Get(bag)
	assert.Equal(t, id, idx.Get(bag))
	assert.Equal(t, 1, idx.Count())

	other := idx.Get([]datastructure.Attribute{{Key: "highway", Value: "motorway"}})
	assert.NotEqual(t, id, other)
}

func TestCanonicalizationOrderInsensitive(t *testing.T) {
	idx := New(nil)

	a := idx.Get([]datastructure.Attribute{
		{Key: "highway", Value: "residential"},
		{Key: "oneway", Value: "yes"},
	})
	b := idx.Get([]datastructure.Attribute{
		{Key: "oneway", Value: "yes"},
		{Key: "highway", Value: "residential"},
	})
	assert.Equal(t, a, b)
}

func TestCanonicalizationDropsDuplicateKeys(t *testing.T) {
	idx := New(nil)

	a := idx.Get([]datastructure.Attribute{
		{Key: "highway", Value: "residential"},
		{Key: "highway", Value: "motorway"},
	})
	b := idx.Get([]datastructure.Attribute{{Key: "highway", Value: "residential"}})
	assert.Equal(t, a, b)
}

func TestClassifyFuncShrinksBags(t *testing.T) {
	highwayOnly := func(bag []datastructure.Attribute) []datastructure.Attribute {
		for _, attr := range bag {
			if attr.Key == "highway" {
				return []datastructure.Attribute{attr}
			}
		}
		return nil
	}
	idx := New(highwayOnly)

	a := idx.Get([]datastructure.Attribute{
		{Key: "highway", Value: "residential"},
		{Key: "name", Value: "a"},
	})
	b := idx.Get([]datastructure.Attribute{
		{Key: "highway", Value: "residential"},
		{Key: "name", Value: "b"},
	})
	assert.Equal(t, a, b)
}

func TestNextPreservesIdsAndBumpsGeneration(t *testing.T) {
	idx := New(nil)
	bag := []datastructure.Attribute{{Key: "highway", Value: "residential"}}
	id := idx.Get(bag)

	next := idx.Next(func(b []datastructure.Attribute) []datastructure.Attribute { return b })
	assert.Equal(t, idx.Generation()+1, next.Generation())
	assert.Equal(t, id, next.Get(bag))

	// the old index is untouched
	assert.Equal(t, 0, idx.Generation())
}

func TestUpdateRewritesTile(t *testing.T) {
	zoom := 14
	tl := tile.NewGraphTile(zoom, geo.TileID(zoom, 0.0005, 0.0005))
	a := tl.AddVertex(0.0001, 0.0001)
	b := tl.AddVertex(0.0009, 0.0009)

	idx := New(func(bag []datastructure.Attribute) []datastructure.Attribute {
		for _, attr := range bag {
			if attr.Key == "highway" {
				return []datastructure.Attribute{attr}
			}
		}
		return nil
	})

	attrs := []datastructure.Attribute{
		{Key: "highway", Value: "residential"},
		{Key: "name", Value: "anywhere"},
	}
	id, err := tl.AddEdge(a, b, datastructure.EmptyEdgeID, tile.EdgeDetails{
		Attributes: attrs,
		EdgeTypeID: idx.Get(attrs),
		HasEdgeType: true,
	})
	require.NoError(t, err)

	rewritten := idx.Update(tl)
	rec, err := rewritten.GetEdge(id)
	require.NoError(t, err)
	assert.Equal(t, idx.Get(attrs), rec.EdgeTypeID)

	bag, ok := idx.GetBag(rec.EdgeTypeID)
	require.True(t, ok)
	assert.Equal(t, []datastructure.Attribute{{Key: "highway", Value: "residential"}}, bag)
}

func TestMarshalRoundTrip(t *testing.T) {
	idx := New(nil)
	bag := []datastructure.Attribute{{Key: "highway", Value: "residential"}}
	id := idx.Get(bag)
	next := idx.Next(nil)

	data, err := next.Marshal()
	require.NoError(t, err)

	loaded, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Generation())
	assert.Equal(t, id, loaded.Get(bag))
	assert.Equal(t, 1, loaded.Count())
}
