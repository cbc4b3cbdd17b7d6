// Package routingalgorithm implements the edge based one to many Dijkstra
// over a routing network snapshot. Search states are (edge, vertex) pairs so
// turn costs apply and immediate u-turns are excluded.
package routingalgorithm

import (
	"math"

	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/graph"
	"github.com/mikelor/routing2/pkg/util"
)

const (
	// DoNotExpand from a cost callback marks an edge that may not be
	// expanded; any value at or above it is treated the same.
	DoNotExpand = math.MaxFloat64

	// maxVisits caps the search tree as a runaway safety net.
	maxVisits = 1 << 20

	// maxPreviousEdges bounds the trailing edge list handed to the cost
	// callback, newest first. Via-way turn restrictions need a handful.
	maxPreviousEdges = 8
)

// DirectedEdge is an edge view plus the direction it is about to be
// traversed in. Forward follows the edge's canonical orientation.
type DirectedEdge struct {
	graph.EdgeView
	Forward bool
}

// CostFunc weighs one directed edge. previousEdges is the trailing
// canonical edge id list along the search path, newest first. An edge cost
// <= 0 means the edge cannot be traversed; >= DoNotExpand means do not
// expand past it. A negative turn cost means the turn is forbidden.
type CostFunc func(edge DirectedEdge, previousEdges []datastructure.EdgeID) (edgeCost, turnCost float64)

// Options carries the optional veto callbacks. Returning true from Settled
// skips the popped vertex without settling or expanding it; a callback that
// returns true for every vertex drains the queue without expanding, which
// doubles as cooperative cancellation. Returning true from Queued keeps a
// vertex out of the queue.
type Options struct {
	Settled func(v datastructure.VertexID) bool
	Queued  func(v datastructure.VertexID) bool
}

// visit is one step of the search tree: edge just traversed, vertex landed
// at.
type visit struct {
	edge     datastructure.EdgeID
	vertex   datastructure.VertexID
	forward  bool
	previous int32
	cost     float64
}

const noPrevious = int32(-1)

type target struct {
	snap        datastructure.SnapPoint
	bestCost    float64
	bestPointer int32
	direct      *datastructure.Path
}

// Dijkstra retains its heap, path tree and settled set across calls; every
// run clears them at entry. Use one instance per thread.
type Dijkstra struct {
	visits  []visit
	queue   *datastructure.MinHeap[int32]
	settled map[datastructure.VertexID]struct{}
	scratch []datastructure.EdgeID
}

func NewDijkstra() *Dijkstra {
	return &Dijkstra{
		queue:   datastructure.NewMinHeap[int32](),
		settled: make(map[datastructure.VertexID]struct{}),
	}
}

func (d *Dijkstra) reset() {
	d.visits = d.visits[:0]
	d.queue.Clear()
	clear(d.settled)
}

// RunOneToOne is RunOneToMany with a single target.
func (d *Dijkstra) RunOneToOne(n *graph.RoutingNetwork, source, tgt datastructure.SnapPoint, cost CostFunc, opts *Options) *datastructure.Path {
	return d.RunOneToMany(n, source, []datastructure.SnapPoint{tgt}, cost, opts)[0]
}

// RunOneToMany computes one least cost path per target, nil where the
// target is unreachable. Results are deterministic for deterministic cost
// callbacks over the same snapshot.
func (d *Dijkstra) RunOneToMany(n *graph.RoutingNetwork, source datastructure.SnapPoint, snaps []datastructure.SnapPoint, cost CostFunc, opts *Options) []*datastructure.Path {
	d.reset()
	if opts == nil {
		opts = &Options{}
	}

	targets := make([]target, len(snaps))
	targetsByEdge := make(map[datastructure.EdgeID][]int)
	for i, snap := range snaps {
		targets[i] = target{snap: snap, bestCost: math.MaxFloat64, bestPointer: noPrevious}
		targetsByEdge[snap.EdgeID] = append(targetsByEdge[snap.EdgeID], i)
	}

	if d.inject(n, source, targets, cost) {
		d.relax(n, source, targets, targetsByEdge, cost, opts)
	}

	paths := make([]*datastructure.Path, len(targets))
	for i := range targets {
		paths[i] = d.reconstruct(source, &targets[i])
	}
	return paths
}

// inject seeds the queue with the two possible directions on the source
// edge and short circuits targets sharing that edge. Returns false when
// neither direction is traversable.
func (d *Dijkstra) inject(n *graph.RoutingNetwork, source datastructure.SnapPoint, targets []target, cost CostFunc) bool {
	view, err := n.GetEdge(source.EdgeID)
	if err != nil {
		return false
	}
	sourceFactor := source.OffsetFactor()

	injected := false
	for _, forward := range []bool{true, false} {
		edgeCost, _ := cost(DirectedEdge{EdgeView: view, Forward: forward}, nil)
		if edgeCost <= 0 || edgeCost >= DoNotExpand {
			continue
		}
		injected = true

		var landing datastructure.VertexID
		var partial float64
		if forward {
			landing = view.ToVertex()
			partial = edgeCost * (1 - sourceFactor)
		} else {
			landing = view.FromVertex()
			partial = edgeCost * sourceFactor
		}
		d.push(visit{edge: view.Canonical(), vertex: landing, forward: forward, previous: noPrevious, cost: partial})

		for i := range targets {
			t := &targets[i]
			if t.snap.EdgeID != source.EdgeID {
				continue
			}
			d.shortCircuit(t, source, forward, edgeCost)
		}
	}
	return injected
}

// shortCircuit records the immediate on-edge path from the source to a
// target on the same edge, when the traversal direction matches. A target
// at the exact source offset is a zero cost path in the first admissible
// direction.
func (d *Dijkstra) shortCircuit(t *target, source datastructure.SnapPoint, forward bool, edgeCost float64) {
	sourceFactor := source.OffsetFactor()
	targetFactor := t.snap.OffsetFactor()

	var directCost float64
	switch {
	case t.snap.Offset == source.Offset:
		directCost = 0
	case forward && t.snap.Offset > source.Offset:
		directCost = edgeCost * (targetFactor - sourceFactor)
	case !forward && t.snap.Offset < source.Offset:
		directCost = edgeCost * (sourceFactor - targetFactor)
	default:
		return
	}
	if directCost >= t.bestCost {
		return
	}

	offset1, offset2 := source.Offset, t.snap.Offset
	if !forward {
		offset1 = datastructure.MaxSnapOffset - offset1
		offset2 = datastructure.MaxSnapOffset - offset2
	}
	t.bestCost = directCost
	t.bestPointer = noPrevious
	t.direct = &datastructure.Path{
		Segments: []datastructure.PathSegment{{Edge: t.snap.EdgeID, Forward: forward}},
		Offset1:  offset1,
		Offset2:  offset2,
		Cost:     directCost,
	}
}

func (d *Dijkstra) push(v visit) {
	pointer := int32(len(d.visits))
	d.visits = append(d.visits, v)
	d.queue.Insert(v.cost, pointer)
}

func (d *Dijkstra) relax(n *graph.RoutingNetwork, source datastructure.SnapPoint, targets []target, targetsByEdge map[datastructure.EdgeID][]int, cost CostFunc, opts *Options) {
	for d.queue.Size() > 0 && len(d.visits) < maxVisits {
		node, _ := d.queue.ExtractMin()
		pointer := node.Item
		current := d.visits[pointer]

		if _, ok := d.settled[current.vertex]; ok {
			continue
		}
		if opts.Settled != nil && opts.Settled(current.vertex) {
			continue
		}
		if current.cost >= worstTargetCost(targets) {
			return
		}
		d.settled[current.vertex] = struct{}{}

		previousEdges := d.trailingEdges(pointer)

		n.ForEachVertexEdge(current.vertex, func(view graph.EdgeView, forward bool) bool {
			canonical := view.Canonical()
			if canonical == current.edge {
				// no immediate u-turns
				return true
			}

			edgeCost, turnCost := cost(DirectedEdge{EdgeView: view, Forward: forward}, previousEdges)
			if edgeCost <= 0 || edgeCost >= DoNotExpand || turnCost < 0 {
				return true
			}

			for _, idx := range targetsByEdge[canonical] {
				t := &targets[idx]
				fraction := t.snap.OffsetFactor()
				if !forward {
					fraction = 1 - fraction
				}
				targetCost := current.cost + turnCost + edgeCost*fraction
				if targetCost < t.bestCost {
					t.bestCost = targetCost
					t.bestPointer = int32(len(d.visits))
					t.direct = nil
					d.visits = append(d.visits, visit{
						edge: canonical, vertex: current.vertex, forward: forward,
						previous: pointer, cost: targetCost,
					})
				}
			}

			head := view.ToVertex()
			if !forward {
				head = view.FromVertex()
			}
			if opts.Queued != nil && opts.Queued(head) {
				return true
			}
			if len(d.visits) >= maxVisits {
				return false
			}
			d.push(visit{
				edge: canonical, vertex: head, forward: forward,
				previous: pointer, cost: current.cost + turnCost + edgeCost,
			})
			return true
		})
	}
}

// worstTargetCost is the pruning bound: the most expensive current best
// over all targets; unreached targets keep it unbounded.
func worstTargetCost(targets []target) float64 {
	worst := 0.0
	for i := range targets {
		if targets[i].bestCost > worst {
			worst = targets[i].bestCost
		}
	}
	return worst
}

// trailingEdges collects the canonical edges leading to a visit, newest
// first, bounded by maxPreviousEdges.
func (d *Dijkstra) trailingEdges(pointer int32) []datastructure.EdgeID {
	d.scratch = d.scratch[:0]
	for p := pointer; p != noPrevious && len(d.scratch) < maxPreviousEdges; p = d.visits[p].previous {
		d.scratch = append(d.scratch, d.visits[p].edge)
	}
	return d.scratch
}

// reconstruct walks the path tree from a target's best pointer back to an
// injection visit.
func (d *Dijkstra) reconstruct(source datastructure.SnapPoint, t *target) *datastructure.Path {
	if t.direct != nil {
		return t.direct
	}
	if t.bestPointer == noPrevious {
		return nil
	}

	segments := make([]datastructure.PathSegment, 0)
	for p := t.bestPointer; p != noPrevious; p = d.visits[p].previous {
		segments = append(segments, datastructure.PathSegment{Edge: d.visits[p].edge, Forward: d.visits[p].forward})
	}
	segments = util.ReverseG(segments)

	offset1 := source.Offset
	if !segments[0].Forward {
		offset1 = datastructure.MaxSnapOffset - offset1
	}
	offset2 := t.snap.Offset
	if !segments[len(segments)-1].Forward {
		offset2 = datastructure.MaxSnapOffset - offset2
	}

	return &datastructure.Path{
		Segments: segments,
		Offset1:  offset1,
		Offset2:  offset2,
		Cost:     t.bestCost,
	}
}
