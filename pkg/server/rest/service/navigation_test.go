package service

import (
	"context"
	"testing"

	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testZoom = 14

func buildServiceNetwork(t *testing.T) *graph.RouterDb {
	t.Helper()
	db := graph.NewRouterDb(testZoom, nil)
	w, err := db.Latest().GetWriter()
	require.NoError(t, err)
	defer w.Release()

	a, _ := w.AddVertex(0.00001, 0.0)
	b, _ := w.AddVertex(0.00001, 0.001)
	c, _ := w.AddVertex(0.00001, 0.002)

	attrs := []datastructure.Attribute{{Key: "highway", Value: "residential"}}
	_, err = w.AddEdge(a, b, graph.EdgeDetails{Attributes: attrs})
	require.NoError(t, err)
	_, err = w.AddEdge(b, c, graph.EdgeDetails{Attributes: attrs})
	require.NoError(t, err)

	return db
}

func TestShortestPathService(t *testing.T) {
	db := buildServiceNetwork(t)
	svc := NewNavigationService(db, nil)

	route, err := svc.ShortestPath(context.Background(), 0.0001, 0.0002, 0.0001, 0.0018, "car")
	require.NoError(t, err)

	assert.NotEmpty(t, route.Polyline)
	assert.Equal(t, 2, route.EdgeCount)
	// ~178m of the ~222m line between the snap points
	assert.InDelta(t, 178, route.DistanceM, 10)
	assert.Greater(t, route.Cost, 0.0)
}

func TestShortestPathUnknownCosting(t *testing.T) {
	db := buildServiceNetwork(t)
	svc := NewNavigationService(db, nil)

	_, err := svc.ShortestPath(context.Background(), 0.0001, 0.0002, 0.0001, 0.0018, "hovercraft")
	assert.ErrorIs(t, err, datastructure.ErrInvalidArgument)
}

func TestShortestPathNoSnap(t *testing.T) {
	db := buildServiceNetwork(t)
	svc := NewNavigationService(db, nil)

	// far away from any edge
	_, err := svc.ShortestPath(context.Background(), 10.0, 10.0, 0.0001, 0.0018, "car")
	assert.ErrorIs(t, err, datastructure.ErrNotFound)
}

func TestShortestPathNoRoute(t *testing.T) {
	db := graph.NewRouterDb(testZoom, nil)
	w, err := db.Latest().GetWriter()
	require.NoError(t, err)

	a, _ := w.AddVertex(0.00001, 0.0)
	b, _ := w.AddVertex(0.00001, 0.001)
	w.AddEdge(a, b, graph.EdgeDetails{Attributes: []datastructure.Attribute{{Key: "highway", Value: "residential"}}})

	x, _ := w.AddVertex(0.02, 0.02)
	y, _ := w.AddVertex(0.02, 0.021)
	w.AddEdge(x, y, graph.EdgeDetails{Attributes: []datastructure.Attribute{{Key: "highway", Value: "residential"}}})
	w.Release()

	svc := NewNavigationService(db, nil)
	_, err = svc.ShortestPath(context.Background(), 0.0001, 0.0005, 0.0201, 0.0205, "car")
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestSnapService(t *testing.T) {
	db := buildServiceNetwork(t)
	svc := NewNavigationService(db, nil)

	snapped, err := svc.Snap(context.Background(), 0.0001, 0.0002)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, snapped.OffsetFactor, 0.02)
	assert.Equal(t, []datastructure.Attribute{{Key: "highway", Value: "residential"}}, snapped.Attributes)
}

func TestOnewayRespected(t *testing.T) {
	db := graph.NewRouterDb(testZoom, nil)
	w, err := db.Latest().GetWriter()
	require.NoError(t, err)

	a, _ := w.AddVertex(0.00001, 0.0)
	b, _ := w.AddVertex(0.00001, 0.001)
	w.AddEdge(a, b, graph.EdgeDetails{Attributes: []datastructure.Attribute{
		{Key: "highway", Value: "residential"},
		{Key: "oneway", Value: "yes"},
	}})
	w.Release()

	svc := NewNavigationService(db, nil)

	// with the flow
	_, err = svc.ShortestPath(context.Background(), 0.0001, 0.0002, 0.0001, 0.0008, "car")
	assert.NoError(t, err)

	// against the flow there is no admissible direction
	_, err = svc.ShortestPath(context.Background(), 0.0001, 0.0008, 0.0001, 0.0002, "car")
	assert.ErrorIs(t, err, ErrNoRoute)
}
