// Package osmparser streams an OpenStreetMap pbf extract into a graph
// writer: accepted ways become edges split at junction nodes, with interior
// nodes kept as edge shape.
package osmparser

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/graph"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/schollz/progressbar/v3"
)

// TagFilterFunc decides which tags of an accepted way are kept as edge
// attributes.
type TagFilterFunc func(key, value string) bool

// ElevationFunc augments coordinates with an elevation in meters. When set,
// every edge carries its total positive climb as a "climb" attribute.
type ElevationFunc func(lat, lon float64) float64

var skipHighway = map[string]struct{}{
	"footway":      {},
	"construction": {},
	"cycleway":     {},
	"path":         {},
	"pedestrian":   {},
	"busway":       {},
	"steps":        {},
	"bridleway":    {},
	"corridor":     {},
	"proposed":     {},
	"abandoned":    {},
	"platform":     {},
	"raceway":      {},
	"elevator":     {},
}

type nodeCoord struct {
	lat float64
	lon float64
}

type Parser struct {
	tagFilter TagFilterFunc
	elevation ElevationFunc

	nodeUse   map[int64]int
	endpoints map[int64]struct{}
	coords    map[int64]nodeCoord
	vertexFor map[int64]datastructure.VertexID
}

func NewParser(tagFilter TagFilterFunc, elevation ElevationFunc) *Parser {
	return &Parser{
		tagFilter: tagFilter,
		elevation: elevation,
		nodeUse:   make(map[int64]int),
		endpoints: make(map[int64]struct{}),
		coords:    make(map[int64]nodeCoord),
		vertexFor: make(map[int64]datastructure.VertexID),
	}
}

func acceptWay(way *osm.Way) bool {
	highway := way.Tags.Find("highway")
	if highway == "" {
		return false
	}
	_, skip := skipHighway[highway]
	return !skip
}

// Parse streams the pbf file in three passes: mark the nodes of accepted
// ways, collect their coordinates, then emit vertices and edges through the
// writer.
func (p *Parser) Parse(ctx context.Context, pbfPath string, w *graph.GraphWriter) error {
	if err := p.scan(ctx, pbfPath, "scanning ways", func(o osm.Object) error {
		way, ok := o.(*osm.Way)
		if !ok || !acceptWay(way) {
			return nil
		}
		for _, node := range way.Nodes {
			p.nodeUse[int64(node.ID)]++
		}
		if len(way.Nodes) > 0 {
			p.endpoints[int64(way.Nodes[0].ID)] = struct{}{}
			p.endpoints[int64(way.Nodes[len(way.Nodes)-1].ID)] = struct{}{}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := p.scan(ctx, pbfPath, "scanning nodes", func(o osm.Object) error {
		node, ok := o.(*osm.Node)
		if !ok {
			return nil
		}
		ref := int64(node.ID)
		if _, used := p.nodeUse[ref]; used {
			p.coords[ref] = nodeCoord{lat: node.Lat, lon: node.Lon}
		}
		return nil
	}); err != nil {
		return err
	}

	return p.scan(ctx, pbfPath, "building edges", func(o osm.Object) error {
		way, ok := o.(*osm.Way)
		if !ok || !acceptWay(way) {
			return nil
		}
		return p.emitWay(way, w)
	})
}

func (p *Parser) scan(ctx context.Context, pbfPath, label string, fn func(osm.Object) error) error {
	file, err := os.Open(pbfPath)
	if err != nil {
		return err
	}
	defer file.Close()

	bar := progressbar.Default(-1, label)
	defer bar.Finish()

	scanner := osmpbf.New(ctx, file, runtime.GOMAXPROCS(0))
	defer scanner.Close()

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled")
		default:
		}
		if err := fn(scanner.Object()); err != nil {
			return err
		}
		bar.Add(1)
	}
	return scanner.Err()
}

// isJunction reports whether a node splits a way into separate edges.
func (p *Parser) isJunction(ref int64) bool {
	if _, ok := p.endpoints[ref]; ok {
		return true
	}
	return p.nodeUse[ref] > 1
}

func (p *Parser) vertexOf(ref int64, w *graph.GraphWriter) (datastructure.VertexID, error) {
	if v, ok := p.vertexFor[ref]; ok {
		return v, nil
	}
	coord, ok := p.coords[ref]
	if !ok {
		return datastructure.EmptyVertexID, fmt.Errorf("way node %d without coordinate: %w", ref, datastructure.ErrNotFound)
	}
	v, err := w.AddVertex(coord.lat, coord.lon)
	if err != nil {
		return datastructure.EmptyVertexID, err
	}
	p.vertexFor[ref] = v
	return v, nil
}

// emitWay splits one way at its junction nodes and appends an edge per
// segment, interior nodes becoming the edge shape.
func (p *Parser) emitWay(way *osm.Way, w *graph.GraphWriter) error {
	attrs := p.filterTags(way.Tags)

	segmentStart := 0
	for i := 1; i < len(way.Nodes); i++ {
		ref := int64(way.Nodes[i].ID)
		if i < len(way.Nodes)-1 && !p.isJunction(ref) {
			continue
		}

		v1, err := p.vertexOf(int64(way.Nodes[segmentStart].ID), w)
		if err != nil {
			return err
		}
		v2, err := p.vertexOf(ref, w)
		if err != nil {
			return err
		}

		shape := make([]datastructure.Coordinate, 0, i-segmentStart+1)
		for j := segmentStart; j <= i; j++ {
			coord, ok := p.coords[int64(way.Nodes[j].ID)]
			if !ok {
				continue
			}
			shape = append(shape, datastructure.Coordinate{Lat: coord.lat, Lon: coord.lon})
		}

		if _, err := w.AddEdge(v1, v2, graph.EdgeDetails{
			Shape:      shape,
			Attributes: p.withClimb(attrs, shape),
		}); err != nil {
			return err
		}
		segmentStart = i
	}
	return nil
}

func (p *Parser) filterTags(tags osm.Tags) []datastructure.Attribute {
	attrs := make([]datastructure.Attribute, 0, len(tags))
	for _, tag := range tags {
		if p.tagFilter != nil && !p.tagFilter(tag.Key, tag.Value) {
			continue
		}
		attrs = append(attrs, datastructure.Attribute{Key: tag.Key, Value: tag.Value})
	}
	return attrs
}

// withClimb appends the total positive climb over the shape when an
// elevation callback is installed.
func (p *Parser) withClimb(attrs []datastructure.Attribute, shape []datastructure.Coordinate) []datastructure.Attribute {
	if p.elevation == nil || len(shape) < 2 {
		return attrs
	}
	climb := 0.0
	prev := p.elevation(shape[0].Lat, shape[0].Lon)
	for _, c := range shape[1:] {
		ele := p.elevation(c.Lat, c.Lon)
		if ele > prev {
			climb += ele - prev
		}
		prev = ele
	}
	out := append(append([]datastructure.Attribute(nil), attrs...),
		datastructure.Attribute{Key: "climb", Value: strconv.FormatFloat(climb, 'f', 1, 64)})
	return out
}
