/*
Package octree indexes a multiscale 2d image as a stack of tile grids, one
per resolution level.  Despite the name it is a quadtree-like structure:
level 0 covers the full resolution image, and each subsequent level halves
both grid dimensions (rounding up) until a single tile covers everything.
*/
package octree

import (
	"github.com/janelia-flyem/octview/octview"
)

// Tree is a per-data-source stack of levels from finest (level 0) to a
// coarsest level whose grid is 1x1.  A Tree is owned exclusively by one
// slice and carries that slice's id, which is stamped into every chunk
// location so asynchronous load completions can be validated against the
// slice that requested them.
type Tree struct {
	sliceID   uint64
	baseShape octview.Shape2d
	tileShape octview.Shape2d
	levels    []*Level
}

// New builds the level stack for a base image shape and tile shape.  A
// ConfigError is returned for non-positive tile or base dimensions.
func New(sliceID uint64, baseShape, tileShape octview.Shape2d) (*Tree, error) {
	if tileShape.Rows() <= 0 || tileShape.Cols() <= 0 {
		return nil, configErrorf("tile shape %s must have positive dimensions", tileShape)
	}
	if baseShape.Rows() <= 0 || baseShape.Cols() <= 0 {
		return nil, configErrorf("base image shape %s must have positive dimensions", baseShape)
	}

	t := &Tree{
		sliceID:   sliceID,
		baseShape: baseShape,
		tileShape: tileShape,
	}

	grid := octview.Shape2d{
		octview.DivCeil(baseShape.Rows(), tileShape.Rows()),
		octview.DivCeil(baseShape.Cols(), tileShape.Cols()),
	}
	for levelIndex := 0; ; levelIndex++ {
		info := LevelInfo{
			LevelIndex: levelIndex,
			TileShape:  tileShape,
			Downsample: 1 << levelIndex,
			GridShape:  grid,
		}
		t.levels = append(t.levels, newLevel(sliceID, info))
		if grid.Rows() == 1 && grid.Cols() == 1 {
			break
		}
		grid = octview.Shape2d{
			octview.DivCeil(grid.Rows(), 2),
			octview.DivCeil(grid.Cols(), 2),
		}
	}
	return t, nil
}

// SliceID returns the id of the slice that owns this tree.
func (t *Tree) SliceID() uint64 { return t.sliceID }

// BaseShape returns the full resolution image shape in pixels.
func (t *Tree) BaseShape() octview.Shape2d { return t.baseShape }

// TileShape returns the fixed tile shape used at every level.
func (t *Tree) TileShape() octview.Shape2d { return t.tileShape }

// NumLevels returns the number of resolution levels.
func (t *Tree) NumLevels() int { return len(t.levels) }

// Level returns the level at the given index or a RangeError.
func (t *Tree) Level(levelIndex int) (*Level, error) {
	if levelIndex < 0 || levelIndex >= len(t.levels) {
		return nil, rangeErrorf("octree level %d is not in range(0, %d)", levelIndex, len(t.levels))
	}
	return t.levels[levelIndex], nil
}

// Levels returns all levels ordered finest to coarsest.
func (t *Tree) Levels() []*Level { return t.levels }

// GetChunk returns the chunk at (levelIndex, row, col), creating it on
// first access.  Bad indices return a RangeError.
func (t *Tree) GetChunk(levelIndex, row, col int) (*Chunk, error) {
	level, err := t.Level(levelIndex)
	if err != nil {
		return nil, err
	}
	return level.GetChunk(row, col)
}
