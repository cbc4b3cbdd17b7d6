// Package attrindex interns attribute bags into compact ids. Two indexes
// exist per graph, one for edge types and one for turn cost types; each
// carries a classification function that reduces a full bag to the subset
// that decides the id.
package attrindex

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/tile"

	"github.com/kelindar/binary"
)

// ClassifyFunc reduces a full attribute bag to its classification bag.
type ClassifyFunc func([]datastructure.Attribute) []datastructure.Attribute

// AttributeSetIndex maps classification bags to stable small integer ids.
// Interning is additive; replacing the classification function produces a
// new index at the next generation, keeping existing ids.
type AttributeSetIndex struct {
	mu         sync.Mutex
	bags       [][]datastructure.Attribute
	lookup     map[string]uint32
	classify   ClassifyFunc
	generation int
}

func New(classify ClassifyFunc) *AttributeSetIndex {
	return &AttributeSetIndex{
		lookup:   make(map[string]uint32),
		classify: classify,
	}
}

func (x *AttributeSetIndex) Generation() int {
	return x.generation
}

func (x *AttributeSetIndex) Count() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.bags)
}

// Get returns the id of the classification of bag, interning it when new.
func (x *AttributeSetIndex) Get(bag []datastructure.Attribute) uint32 {
	classified := bag
	if x.classify != nil {
		classified = x.classify(bag)
	}
	canonical := canonicalize(classified)
	key := bagKey(canonical)

	x.mu.Lock()
	defer x.mu.Unlock()

	if id, ok := x.lookup[key]; ok {
		return id
	}
	id := uint32(len(x.bags))
	x.bags = append(x.bags, canonical)
	x.lookup[key] = id
	return id
}

// GetBag returns the canonical bag behind an id.
func (x *AttributeSetIndex) GetBag(id uint32) ([]datastructure.Attribute, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if id >= uint32(len(x.bags)) {
		return nil, false
	}
	return x.bags[id], true
}

// Next returns a new index using classify, one generation up. Interned bags
// keep their ids so tiles rewritten through the new index reuse records
// whose classification did not change.
func (x *AttributeSetIndex) Next(classify ClassifyFunc) *AttributeSetIndex {
	x.mu.Lock()
	defer x.mu.Unlock()

	next := &AttributeSetIndex{
		bags:       append([][]datastructure.Attribute(nil), x.bags...),
		lookup:     make(map[string]uint32, len(x.lookup)),
		classify:   classify,
		generation: x.generation + 1,
	}
	for key, id := range x.lookup {
		next.lookup[key] = id
	}
	return next
}

// Update rewrites every edge type id of a tile through this index.
func (x *AttributeSetIndex) Update(t *tile.GraphTile) *tile.GraphTile {
	return t.ApplyEdgeTypeFunc(x.Get)
}

// canonicalize sorts the bag by key and drops duplicate keys, first
// occurrence winning.
func canonicalize(bag []datastructure.Attribute) []datastructure.Attribute {
	seen := make(map[string]struct{}, len(bag))
	canonical := make([]datastructure.Attribute, 0, len(bag))
	for _, attr := range bag {
		if _, ok := seen[attr.Key]; ok {
			continue
		}
		seen[attr.Key] = struct{}{}
		canonical = append(canonical, attr)
	}
	sort.Slice(canonical, func(i, j int) bool {
		return canonical[i].Key < canonical[j].Key
	})
	return canonical
}

func bagKey(bag []datastructure.Attribute) string {
	var sb strings.Builder
	for _, attr := range bag {
		sb.WriteString(attr.Key)
		sb.WriteByte(0)
		sb.WriteString(attr.Value)
		sb.WriteByte(0)
	}
	return sb.String()
}

type indexImage struct {
	Bags       [][]datastructure.Attribute
	Generation int
}

// Marshal encodes the interned tables. The classification function does not
// persist; a reloaded index classifies with identity until the profile layer
// installs its function via Next.
func (x *AttributeSetIndex) Marshal() ([]byte, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return binary.Marshal(indexImage{Bags: x.bags, Generation: x.generation})
}

func Unmarshal(data []byte) (*AttributeSetIndex, error) {
	var image indexImage
	if err := binary.Unmarshal(data, &image); err != nil {
		return nil, fmt.Errorf("unmarshal attribute index: %v: %w", err, datastructure.ErrCorrupt)
	}
	x := &AttributeSetIndex{
		bags:       image.Bags,
		lookup:     make(map[string]uint32, len(image.Bags)),
		generation: image.Generation,
	}
	for id, bag := range x.bags {
		x.lookup[bagKey(bag)] = uint32(id)
	}
	return x, nil
}
