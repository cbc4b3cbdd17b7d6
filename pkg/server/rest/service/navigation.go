package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/engine/routingalgorithm"
	"github.com/mikelor/routing2/pkg/graph"
	"github.com/mikelor/routing2/pkg/snap"
	"github.com/mikelor/routing2/pkg/util"

	"go.uber.org/zap"
)

var ErrNoRoute = errors.New("no route found")

const snapMaxDistanceM = 300.0

// NavigationService answers snap and shortest path queries against the
// latest published network snapshot.
type NavigationService struct {
	db  *graph.RouterDb
	log *zap.Logger

	// one Dijkstra per worker; instances keep their arenas across calls
	searchPool sync.Pool
}

func NewNavigationService(db *graph.RouterDb, logger *zap.Logger) *NavigationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NavigationService{db: db, log: logger}
	s.searchPool.New = func() any { return routingalgorithm.NewDijkstra() }
	return s
}

type RouteSummary struct {
	Polyline  string
	DistanceM float64
	Cost      float64
	EdgeCount int
}

type SnapSummary struct {
	Edge         datastructure.EdgeID
	Offset       uint16
	OffsetFactor float64
	Attributes   []datastructure.Attribute
}

func costingByName(name string) (routingalgorithm.CostFunc, error) {
	switch name {
	case "", "car":
		return routingalgorithm.TravelTimeCost(), nil
	case "shortest":
		return routingalgorithm.DistanceCost(), nil
	default:
		return nil, fmt.Errorf("unknown costing %q: %w", name, datastructure.ErrInvalidArgument)
	}
}

// ShortestPath snaps both endpoints and runs the edge based search between
// them.
func (s *NavigationService) ShortestPath(ctx context.Context, srcLat, srcLon, dstLat, dstLon float64, costing string) (*RouteSummary, error) {
	cost, err := costingByName(costing)
	if err != nil {
		return nil, err
	}

	network := s.db.Latest()
	snapper := snap.NewRoadSnapper(network)

	source, err := snapper.SnapToRoad(srcLat, srcLon, snapMaxDistanceM)
	if err != nil {
		return nil, fmt.Errorf("snap source: %w", err)
	}
	target, err := snapper.SnapToRoad(dstLat, dstLon, snapMaxDistanceM)
	if err != nil {
		return nil, fmt.Errorf("snap target: %w", err)
	}

	searcher := s.searchPool.Get().(*routingalgorithm.Dijkstra)
	defer s.searchPool.Put(searcher)

	cancelled := func(datastructure.VertexID) bool { return ctx.Err() != nil }
	path := searcher.RunOneToOne(network, source, target, cost, &routingalgorithm.Options{Settled: cancelled})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if path.IsNull() {
		return nil, ErrNoRoute
	}

	geometry, distance := s.pathGeometry(network, path)
	s.log.Debug("shortest path answered",
		zap.Int("segments", len(path.Segments)),
		zap.Float64("cost", path.Cost),
		zap.Float64("distance_m", distance),
	)

	return &RouteSummary{
		Polyline:  datastructure.RenderPath(geometry),
		DistanceM: util.RoundFloat(distance, 1),
		Cost:      util.RoundFloat(path.Cost, 3),
		EdgeCount: len(path.Segments),
	}, nil
}

// Snap returns the nearest acceptable edge for a point.
func (s *NavigationService) Snap(ctx context.Context, lat, lon float64) (*SnapSummary, error) {
	network := s.db.Latest()
	snapper := snap.NewRoadSnapper(network)

	snapped, err := snapper.SnapToRoad(lat, lon, snapMaxDistanceM)
	if err != nil {
		return nil, err
	}
	view, err := network.GetEdge(snapped.EdgeID)
	if err != nil {
		return nil, err
	}
	return &SnapSummary{
		Edge:         snapped.EdgeID,
		Offset:       snapped.Offset,
		OffsetFactor: util.RoundFloat(snapped.OffsetFactor(), 5),
		Attributes:   view.Attributes(),
	}, nil
}

// pathGeometry concatenates the full segment shapes in traversal order. The
// returned distance counts only the part of the first and last edges between
// the path offsets; their shapes are not cut at the offsets.
func (s *NavigationService) pathGeometry(network *graph.RoutingNetwork, path *datastructure.Path) ([]datastructure.Coordinate, float64) {
	geometry := make([]datastructure.Coordinate, 0)
	distance := 0.0

	for i, segment := range path.Segments {
		view, err := network.GetEdge(segment.Edge)
		if err != nil {
			continue
		}
		shape := view.Shape()
		if !segment.Forward {
			shape = util.ReverseG(shape)
		}

		length := view.LengthM()
		switch {
		case len(path.Segments) == 1:
			distance += length * absFactorDiff(path.Offset1, path.Offset2)
		case i == 0:
			distance += length * (1 - factor(path.Offset1))
		case i == len(path.Segments)-1:
			distance += length * factor(path.Offset2)
		default:
			distance += length
		}

		if len(geometry) > 0 && len(shape) > 0 && geometry[len(geometry)-1] == shape[0] {
			shape = shape[1:]
		}
		geometry = append(geometry, shape...)
	}
	return geometry, distance
}

func factor(offset uint16) float64 {
	return float64(offset) / float64(datastructure.MaxSnapOffset)
}

func absFactorDiff(a, b uint16) float64 {
	fa, fb := factor(a), factor(b)
	if fa > fb {
		return fa - fb
	}
	return fb - fa
}
