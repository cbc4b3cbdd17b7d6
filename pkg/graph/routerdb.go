package graph

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mikelor/routing2/pkg/datastructure"

	"go.uber.org/zap"
)

type lifecycleState int

const (
	stateIdle lifecycleState = iota
	stateWriterOut
	stateMutatorOut
)

func (s lifecycleState) String() string {
	switch s {
	case stateWriterOut:
		return "writer-out"
	case stateMutatorOut:
		return "mutator-out"
	default:
		return "idle"
	}
}

// lifecycleGuard enforces "at most one writer or one mutator". It is shared
// by every network generation published through the same RouterDb.
type lifecycleGuard struct {
	mu    sync.Mutex
	state lifecycleState
}

func (g *lifecycleGuard) acquire(want lifecycleState) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != stateIdle {
		return fmt.Errorf("acquire %v while %v: %w", want, g.state, datastructure.ErrInvalidState)
	}
	g.state = want
	return nil
}

func (g *lifecycleGuard) release() {
	g.mu.Lock()
	g.state = stateIdle
	g.mu.Unlock()
}

// RouterDb owns the Latest published network. Publication is a single
// pointer swap; readers holding an older snapshot keep walking it.
type RouterDb struct {
	latest atomic.Pointer[RoutingNetwork]
	log    *zap.Logger
}

func NewRouterDb(zoom int, logger *zap.Logger) *RouterDb {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := &RouterDb{log: logger}
	network := NewRoutingNetwork(zoom, logger)
	network.db = db
	db.latest.Store(network)
	return db
}

// Latest returns the current published network snapshot.
func (db *RouterDb) Latest() *RoutingNetwork {
	return db.latest.Load()
}

// SetLatest installs a network loaded from persistence as the published
// snapshot, adopting it into this db's lifecycle.
func (db *RouterDb) SetLatest(n *RoutingNetwork) {
	n.db = db
	if old := db.latest.Load(); old != nil {
		n.guard = old.guard
	}
	db.latest.Store(n)
}

func (db *RouterDb) publish(n *RoutingNetwork) {
	db.latest.Store(n)
	db.log.Info("published routing network",
		zap.Int("zoom", n.zoom),
		zap.Int("tiles", len(n.TileIDs())),
		zap.Int("edge_type_generation", n.edgeTypes.Generation()),
	)
}
