package storage

import (
	"context"
	"sync"

	"github.com/janelia-flyem/octview/octview"
)

// MemoryStore is an in-memory tile source, mainly for tests and small
// synthetic datasets.
type MemoryStore struct {
	mu    sync.RWMutex
	tiles map[TileKey][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tiles: make(map[TileKey][]byte)}
}

// PutTile stores a tile payload.
func (s *MemoryStore) PutTile(k TileKey, payload []byte) {
	s.mu.Lock()
	s.tiles[k] = payload
	s.mu.Unlock()
}

// GetTile implements TileSource.
func (s *MemoryStore) GetTile(ctx context.Context, k TileKey) ([]byte, error) {
	s.mu.RLock()
	payload, found := s.tiles[k]
	s.mu.RUnlock()
	if !found {
		return nil, ErrTileNotFound
	}
	return payload, nil
}

// NumTiles returns how many tiles are stored.
func (s *MemoryStore) NumTiles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tiles)
}

func (s *MemoryStore) Close() {}

// SyntheticSource generates deterministic tile payloads on demand, used by
// ingest tooling and tests that need data without a real image on disk.
// Each payload is a tile-sized buffer with a gradient derived from the key.
type SyntheticSource struct {
	TileShape octview.Shape2d
}

// GetTile implements TileSource.
func (s SyntheticSource) GetTile(ctx context.Context, k TileKey) ([]byte, error) {
	n := s.TileShape.Rows() * s.TileShape.Cols()
	payload := make([]byte, n)
	seed := byte(uint32(k.Scale)*31 + uint32(k.Row)*7 + uint32(k.Col)*13)
	for i := range payload {
		payload[i] = seed + byte(i%251)
	}
	return payload, nil
}

func (s SyntheticSource) Close() {}
