package kv

import (
	"github.com/mikelor/routing2/pkg/tile"

	"github.com/DataDog/zstd"
)

func encodeTile(t *tile.GraphTile) ([]byte, error) {
	bb, err := t.Marshal()
	if err != nil {
		return nil, err
	}
	return compress(bb)
}

func decodeTile(blob []byte) (*tile.GraphTile, error) {
	bb, err := decompress(blob)
	if err != nil {
		return nil, err
	}
	return tile.Unmarshal(bb)
}

func compress(bb []byte) ([]byte, error) {
	var bbCompressed []byte
	bbCompressed, err := zstd.Compress(bbCompressed, bb)
	if err != nil {
		return []byte{}, err
	}
	return bbCompressed, nil
}

func decompress(bbCompressed []byte) ([]byte, error) {
	var bb []byte
	bb, err := zstd.Decompress(bb, bbCompressed)
	if err != nil {
		return []byte{}, err
	}
	return bb, nil
}
