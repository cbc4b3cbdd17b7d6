// Package kv persists graph tiles in badger and serves them back on demand
// as the network's tile provider.
package kv

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mikelor/routing2/pkg/graph"
	"github.com/mikelor/routing2/pkg/tile"

	"github.com/dgraph-io/badger/v4"
)

var ErrTileNotFound = errors.New("tile not found")

type TileStore struct {
	db *badger.DB
}

func NewTileStore(db *badger.DB) *TileStore {
	return &TileStore{db}
}

func tileKey(tileID uint32) []byte {
	return []byte(fmt.Sprintf("tile/%d", tileID))
}

// PutTile stores one tile as a compressed blob.
func (s *TileStore) PutTile(t *tile.GraphTile) error {
	blob, err := encodeTile(t)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(tileKey(t.TileID()), blob)
	})
}

// PutNetwork stores every resident tile of a network in batches.
func (s *TileStore) PutNetwork(ctx context.Context, n *graph.RoutingNetwork) error {
	batch := s.db.NewWriteBatch()
	defer batch.Cancel()

	count := 0
	for _, tileID := range n.TileIDs() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled")
		default:
		}

		view, err := n.GetTile(tileID)
		if err != nil {
			return err
		}
		blob, err := encodeTile(view)
		if err != nil {
			return err
		}
		if err := batch.Set(tileKey(tileID), blob); err != nil {
			return err
		}
		count++
	}

	if err := batch.Flush(); err != nil {
		log.Printf("error saving tiles: %v", err)
		return err
	}
	log.Printf("saving %d tiles done", count)
	return nil
}

// GetTile loads one tile, ErrTileNotFound when absent.
func (s *TileStore) GetTile(tileID uint32) (*tile.GraphTile, error) {
	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(tileKey(tileID))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrTileNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeTile(blob)
}

// Fetch implements graph.TileProvider. Missing tiles and decode failures
// yield nil; the network treats both as "tile does not exist".
func (s *TileStore) Fetch(tileID uint32) *tile.GraphTile {
	t, err := s.GetTile(tileID)
	if err != nil {
		if !errors.Is(err, ErrTileNotFound) {
			log.Printf("fetch tile %d: %v", tileID, err)
		}
		return nil
	}
	return t
}

func (s *TileStore) Close() {
	s.db.Close()
}
