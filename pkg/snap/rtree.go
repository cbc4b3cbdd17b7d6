package snap

import (
	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/graph"

	"github.com/dhconnelly/rtreego"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50

	// degenerate bounding boxes (a perfectly straight edge) get a hair of
	// extent so the rtree accepts them
	minRectExtent = 1e-9
)

type edgeLeaf struct {
	rect rtreego.Rect
	id   datastructure.EdgeID
}

func (l *edgeLeaf) Bounds() rtreego.Rect {
	return l.rect
}

type edgeIndex struct {
	network *graph.RoutingNetwork
	rtree   *rtreego.Rtree
}

// BuildIndex bulk loads an rtree over the bounding boxes of every canonical
// edge of the network. Snaps issued afterwards query the rtree instead of
// scanning tiles. The index belongs to the snapshot it was built from;
// rebuild after a mutator commit.
func (rs *RoadSnapper) BuildIndex() {
	index := &edgeIndex{
		network: rs.network,
		rtree:   rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren),
	}

	it := rs.network.GetEdgeEnumerator()
	for it.Next() {
		view := it.Current()
		shape := view.Shape()
		if len(shape) == 0 {
			continue
		}
		index.rtree.Insert(&edgeLeaf{rect: shapeRect(shape), id: view.Canonical()})
	}

	rs.index = index
}

func shapeRect(shape []datastructure.Coordinate) rtreego.Rect {
	minLat, minLon := shape[0].Lat, shape[0].Lon
	maxLat, maxLon := minLat, minLon
	for _, p := range shape[1:] {
		minLat = min(minLat, p.Lat)
		minLon = min(minLon, p.Lon)
		maxLat = max(maxLat, p.Lat)
		maxLon = max(maxLon, p.Lon)
	}
	rect, _ := rtreego.NewRect(
		rtreego.Point{minLat, minLon},
		[]float64{max(maxLat-minLat, minRectExtent), max(maxLon-minLon, minRectExtent)},
	)
	return rect
}

func (x *edgeIndex) search(box datastructure.BoundingBox, fn func(view graph.EdgeView) bool) {
	rect, _ := rtreego.NewRect(
		rtreego.Point{box.MinLat, box.MinLon},
		[]float64{max(box.MaxLat-box.MinLat, minRectExtent), max(box.MaxLon-box.MinLon, minRectExtent)},
	)

	for _, spatial := range x.rtree.SearchIntersect(rect) {
		leaf := spatial.(*edgeLeaf)
		view, err := x.network.GetEdge(leaf.id)
		if err != nil {
			continue
		}
		if !fn(view) {
			return
		}
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
