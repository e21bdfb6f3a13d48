/*
Package storage provides tile fetch backends for the chunk loading service:
a Badger-backed local tile store, an HTTP tile source, and an in-memory
source for tests and synthetic data.  Stored payloads are serialized with
octview.SerializeData (compression + checksum).
*/
package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/janelia-flyem/octview/chunks"
)

// ErrTileNotFound is returned by sources when no tile exists at a key.
var ErrTileNotFound = errors.New("tile not found")

// Key classes prefix every stored key so tile data and metadata can share
// one key-value store.
const (
	keyUnknown byte = iota
	keyMetadata
	keyTile
)

// TileKey addresses one stored tile: a scale (resolution level) and a
// (row, col) grid coordinate.
type TileKey struct {
	Scale uint8
	Row   int32
	Col   int32
}

func (k TileKey) String() string {
	return fmt.Sprintf("scale %d tile (%d,%d)", k.Scale, k.Row, k.Col)
}

// Bytes returns the store key: class byte, scale byte, then big-endian row
// and col so keys sort spatially within a scale.
func (k TileKey) Bytes() []byte {
	buf := make([]byte, 10)
	buf[0] = keyTile
	buf[1] = k.Scale
	binary.BigEndian.PutUint32(buf[2:6], uint32(k.Row))
	binary.BigEndian.PutUint32(buf[6:10], uint32(k.Col))
	return buf
}

// DecodeTileKey parses a store key produced by TileKey.Bytes.
func DecodeTileKey(b []byte) (TileKey, error) {
	if len(b) != 10 || b[0] != keyTile {
		return TileKey{}, fmt.Errorf("expected 10-byte tile key, got %d bytes", len(b))
	}
	return TileKey{
		Scale: b[1],
		Row:   int32(binary.BigEndian.Uint32(b[2:6])),
		Col:   int32(binary.BigEndian.Uint32(b[6:10])),
	}, nil
}

// TileSource supplies tile payloads for one data source.  GetTile returns
// ErrTileNotFound for keys with no data.
type TileSource interface {
	GetTile(ctx context.Context, k TileKey) ([]byte, error)
	Close()
}

// SourceFetcher adapts per-data TileSources to the chunk loading service's
// Fetcher contract.  It routes each request key by its DataID.
type SourceFetcher struct {
	mu      sync.RWMutex
	sources map[chunks.DataID]TileSource
}

func NewSourceFetcher() *SourceFetcher {
	return &SourceFetcher{sources: make(map[chunks.DataID]TileSource)}
}

// AddSource registers the tile source for a data id, replacing any previous
// one.
func (f *SourceFetcher) AddSource(id chunks.DataID, src TileSource) {
	f.mu.Lock()
	f.sources[id] = src
	f.mu.Unlock()
}

// Fetch implements chunks.Fetcher.
func (f *SourceFetcher) Fetch(ctx context.Context, key chunks.Key) ([]byte, error) {
	f.mu.RLock()
	src, found := f.sources[key.DataID]
	f.mu.RUnlock()
	if !found {
		return nil, fmt.Errorf("no tile source registered for data %q", key.DataID)
	}
	loc := key.Location
	return src.GetTile(ctx, TileKey{
		Scale: uint8(loc.Level),
		Row:   int32(loc.Row),
		Col:   int32(loc.Col),
	})
}

// Close shuts down all registered sources.
func (f *SourceFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, src := range f.sources {
		src.Close()
	}
	f.sources = make(map[chunks.DataID]TileSource)
}
