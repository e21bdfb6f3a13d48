package octree

import (
	"math"

	"github.com/janelia-flyem/octview/octview"
)

// View is an ephemeral description of what a camera is looking at: the
// world-space visible rectangle, the canvas size in pixels, and whether the
// resolution level should be chosen automatically.  Views are produced by an
// external viewport controller per pan/zoom event and never persisted.
type View struct {
	// Bounds is the visible rectangle in world (data) coordinates.
	Bounds octview.Rect

	// Canvas is the canvas size in (rows, cols) pixels.
	Canvas octview.Shape2d

	// AutoLevel chooses the resolution level from the data/canvas ratio.
	// When false the caller pins the level.
	AutoLevel bool
}

// DataWidth returns the visible extent along columns in world units.
func (v View) DataWidth() float64 { return v.Bounds.Width() }

// SelectLevel returns the level of detail for a view given the currently
// pinned level and the number of available levels.  When the view does not
// ask for automatic selection, the pinned level is returned unchanged.
// Otherwise we choose a level where texels in the octree tiles are around
// the same size as screen pixels: each level doubles texel size, so
// floor(log2(ratio)) finds the coarsest level whose texel size does not
// exceed screen pixel size, clamped to the coarsest available level.
func SelectLevel(v View, pinnedLevel, numLevels int) int {
	if !v.AutoLevel {
		return pinnedLevel
	}
	ratio := v.DataWidth() / float64(v.Canvas.Cols())
	if ratio <= 1 {
		return 0 // Show the best we've got.
	}
	return min(int(math.Floor(math.Log2(ratio))), numLevels-1)
}
