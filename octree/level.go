package octree

import (
	"fmt"
	"sync"

	"github.com/janelia-flyem/octview/octview"
)

// LevelInfo describes one resolution level of an octree.  Immutable after
// construction.
type LevelInfo struct {
	// LevelIndex is 0 for the finest (full resolution) level.
	LevelIndex int

	// TileShape is the fixed tile size in pixels at this level.
	TileShape octview.Shape2d

	// Downsample is the downsample factor relative to level 0, always
	// 2^LevelIndex.
	Downsample int

	// GridShape is the number of tile rows and columns at this level.
	GridShape octview.Shape2d
}

func (info LevelInfo) String() string {
	return fmt.Sprintf("level %d: %s grid of %s tiles, downsample %d",
		info.LevelIndex, info.GridShape, info.TileShape, info.Downsample)
}

// Level is a single resolution level: a 2d grid of fixed-size tiles at one
// downsample factor.  Chunk grid cells are created on demand; creation is
// guarded so intersections may be computed from multiple goroutines.
type Level struct {
	info    LevelInfo
	sliceID uint64

	mu     sync.Mutex
	chunks map[octview.TileCoord]*Chunk
}

func newLevel(sliceID uint64, info LevelInfo) *Level {
	return &Level{
		info:    info,
		sliceID: sliceID,
		chunks:  make(map[octview.TileCoord]*Chunk),
	}
}

// Info returns the immutable level description.
func (l *Level) Info() LevelInfo { return l.info }

// GetChunk returns the chunk at (row, col), creating it if this grid cell
// has not been accessed before.  Out-of-bounds coordinates return a
// RangeError.
func (l *Level) GetChunk(row, col int) (*Chunk, error) {
	grid := l.info.GridShape
	if row < 0 || row >= grid.Rows() || col < 0 || col >= grid.Cols() {
		return nil, rangeErrorf("tile (%d,%d) outside level %d grid %s",
			row, col, l.info.LevelIndex, grid)
	}
	tc := octview.TileCoord{row, col}

	l.mu.Lock()
	defer l.mu.Unlock()
	chunk, found := l.chunks[tc]
	if !found {
		chunk = newChunk(Location{
			SliceID: l.sliceID,
			Level:   l.info.LevelIndex,
			Row:     row,
			Col:     col,
		})
		l.chunks[tc] = chunk
	}
	return chunk, nil
}

// LookupChunk returns the chunk at (row, col) if its grid cell has already
// been accessed, without creating one.
func (l *Level) LookupChunk(row, col int) (*Chunk, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	chunk, found := l.chunks[octview.TileCoord{row, col}]
	return chunk, found
}

// NumTrackedChunks returns how many grid cells have been materialized.
func (l *Level) NumTrackedChunks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chunks)
}
