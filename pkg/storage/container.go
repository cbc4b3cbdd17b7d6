// Package storage frames a routing network, its attribute set indexes and a
// metadata bag into a versioned container stream.
package storage

import (
	"fmt"
	"io"
	"runtime"

	"github.com/mikelor/routing2/pkg/attrindex"
	"github.com/mikelor/routing2/pkg/datastructure"
	"github.com/mikelor/routing2/pkg/graph"
	"github.com/mikelor/routing2/pkg/tile"

	"github.com/kelindar/binary"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
)

// ContainerVersion governs format compatibility. A reader rejects any other
// value.
const ContainerVersion = 1

type containerImage struct {
	Zoom          int
	Tiles         [][]byte
	EdgeTypes     []byte
	TurnCostTypes []byte
	Metadata      []datastructure.Attribute
}

// WriteContainer frames the network into w: one version byte, then the zstd
// compressed body. Tiles marshal in parallel.
func WriteContainer(w io.Writer, n *graph.RoutingNetwork, metadata []datastructure.Attribute) error {
	if _, err := w.Write([]byte{ContainerVersion}); err != nil {
		return err
	}

	tileIDs := n.TileIDs()
	blobs := make([][]byte, len(tileIDs))

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, tileID := range tileIDs {
		i, tileID := i, tileID
		g.Go(func() error {
			t, err := n.GetTile(tileID)
			if err != nil {
				return err
			}
			blobs[i], err = t.Marshal()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	edgeTypes, err := n.EdgeTypes().Marshal()
	if err != nil {
		return err
	}
	turnCostTypes, err := n.TurnCostTypes().Marshal()
	if err != nil {
		return err
	}

	body, err := binary.Marshal(containerImage{
		Zoom:          n.Zoom(),
		Tiles:         blobs,
		EdgeTypes:     edgeTypes,
		TurnCostTypes: turnCostTypes,
		Metadata:      metadata,
	})
	if err != nil {
		return err
	}

	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if _, err := encoder.Write(body); err != nil {
		encoder.Close()
		return err
	}
	return encoder.Close()
}

// ReadContainer is the inverse of WriteContainer. The returned network is
// detached; install it with RouterDb.SetLatest.
func ReadContainer(r io.Reader) (*graph.RoutingNetwork, []datastructure.Attribute, error) {
	version := make([]byte, 1)
	if _, err := io.ReadFull(r, version); err != nil {
		return nil, nil, fmt.Errorf("read container version: %v: %w", err, datastructure.ErrCorrupt)
	}
	if version[0] != ContainerVersion {
		return nil, nil, fmt.Errorf("container version %d, want %d: %w", version[0], ContainerVersion, datastructure.ErrCorrupt)
	}

	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read container: %v: %w", err, datastructure.ErrCorrupt)
	}
	defer decoder.Close()

	body, err := io.ReadAll(decoder)
	if err != nil {
		return nil, nil, fmt.Errorf("read container body: %v: %w", err, datastructure.ErrCorrupt)
	}

	var image containerImage
	if err := binary.Unmarshal(body, &image); err != nil {
		return nil, nil, fmt.Errorf("unmarshal container: %v: %w", err, datastructure.ErrCorrupt)
	}

	tiles := make([]*tile.GraphTile, 0, len(image.Tiles))
	for _, blob := range image.Tiles {
		t, err := tile.Unmarshal(blob)
		if err != nil {
			return nil, nil, err
		}
		tiles = append(tiles, t)
	}

	edgeTypes, err := attrindex.Unmarshal(image.EdgeTypes)
	if err != nil {
		return nil, nil, err
	}
	turnCostTypes, err := attrindex.Unmarshal(image.TurnCostTypes)
	if err != nil {
		return nil, nil, err
	}

	return graph.AssembleNetwork(image.Zoom, tiles, edgeTypes, turnCostTypes, nil), image.Metadata, nil
}
