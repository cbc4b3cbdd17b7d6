package osmparser

import (
	"testing"

	"github.com/mikelor/routing2/pkg/graph"

	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptWay(t *testing.T) {
	residential := &osm.Way{Tags: osm.Tags{{Key: "highway", Value: "residential"}}}
	assert.True(t, acceptWay(residential))

	footway := &osm.Way{Tags: osm.Tags{{Key: "highway", Value: "footway"}}}
	assert.False(t, acceptWay(footway))

	building := &osm.Way{Tags: osm.Tags{{Key: "building", Value: "yes"}}}
	assert.False(t, acceptWay(building))
}

func TestEmitWaySplitsAtJunctions(t *testing.T) {
	p := NewParser(nil, nil)

	// way 1-2-3-4 where 3 is shared with another way
	way := &osm.Way{
		ID:    1,
		Nodes: osm.WayNodes{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}},
		Tags:  osm.Tags{{Key: "highway", Value: "residential"}},
	}
	for i, ref := range []int64{1, 2, 3, 4} {
		p.nodeUse[ref] = 1
		p.coords[ref] = nodeCoord{lat: 0.00001, lon: float64(i) * 0.0001}
	}
	p.nodeUse[3] = 2 // junction
	p.endpoints[1] = struct{}{}
	p.endpoints[4] = struct{}{}

	db := graph.NewRouterDb(14, nil)
	w, err := db.Latest().GetWriter()
	require.NoError(t, err)
	defer w.Release()

	require.NoError(t, p.emitWay(way, w))

	// two edges: 1-3 (node 2 as shape) and 3-4
	count := 0
	it := db.Latest().GetEdgeEnumerator()
	for it.Next() {
		count++
		assert.Equal(t, "residential", findAttr(t, it.Current(), "highway"))
	}
	assert.Equal(t, 2, count)

	// nodes 1, 3, 4 became vertices; node 2 did not
	assert.Len(t, p.vertexFor, 3)
	assert.NotContains(t, p.vertexFor, int64(2))
}

func TestTagFilterDropsTags(t *testing.T) {
	p := NewParser(func(key, value string) bool { return key == "highway" }, nil)

	attrs := p.filterTags(osm.Tags{
		{Key: "highway", Value: "residential"},
		{Key: "name", Value: "somewhere"},
	})
	require.Len(t, attrs, 1)
	assert.Equal(t, "highway", attrs[0].Key)
}

func TestElevationClimbAttribute(t *testing.T) {
	climbing := func(lat, lon float64) float64 { return lon * 10000 }
	p := NewParser(nil, climbing)

	way := &osm.Way{
		ID:    1,
		Nodes: osm.WayNodes{{ID: 1}, {ID: 2}},
		Tags:  osm.Tags{{Key: "highway", Value: "residential"}},
	}
	p.nodeUse[1] = 1
	p.nodeUse[2] = 1
	p.coords[1] = nodeCoord{lat: 0.00001, lon: 0.0}
	p.coords[2] = nodeCoord{lat: 0.00001, lon: 0.001}
	p.endpoints[1] = struct{}{}
	p.endpoints[2] = struct{}{}

	db := graph.NewRouterDb(14, nil)
	w, err := db.Latest().GetWriter()
	require.NoError(t, err)
	defer w.Release()

	require.NoError(t, p.emitWay(way, w))

	it := db.Latest().GetEdgeEnumerator()
	require.True(t, it.Next())
	assert.Equal(t, "10.0", findAttr(t, it.Current(), "climb"))
}

func findAttr(t *testing.T, view graph.EdgeView, key string) string {
	t.Helper()
	for _, attr := range view.Attributes() {
		if attr.Key == key {
			return attr.Value
		}
	}
	return ""
}
