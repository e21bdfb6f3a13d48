package octree

import (
	"fmt"
	"math"

	"github.com/janelia-flyem/octview/octview"
)

// Intersection is the set of tiles at one level overlapped by a view.  It is
// computed fresh per query and never cached across viewport changes.
type Intersection struct {
	level *Level

	// Inclusive start, exclusive end of overlapped tile rows and columns.
	rowRange [2]int
	colRange [2]int
}

// Intersect maps a view's world rectangle into a level's tile grid and clips
// it to the grid bounds.  A degenerate (zero-size) view yields an empty
// intersection, not an error.
func Intersect(level *Level, v View) Intersection {
	isect := Intersection{level: level}
	if v.Bounds.Empty() {
		return isect
	}
	info := level.Info()

	// World-space extent of one tile at this level.
	tileRows := float64(info.TileShape.Rows() * info.Downsample)
	tileCols := float64(info.TileShape.Cols() * info.Downsample)

	grid := info.GridShape
	isect.rowRange = [2]int{
		clampTileIndex(math.Floor(v.Bounds.MinRow/tileRows), grid.Rows()),
		clampTileIndex(math.Ceil(v.Bounds.MaxRow/tileRows), grid.Rows()),
	}
	isect.colRange = [2]int{
		clampTileIndex(math.Floor(v.Bounds.MinCol/tileCols), grid.Cols()),
		clampTileIndex(math.Ceil(v.Bounds.MaxCol/tileCols), grid.Cols()),
	}
	return isect
}

// clampTileIndex clamps a float tile index to [0, n] before conversion, so
// huge view bounds cannot overflow the int conversion.  NaN clamps to 0.
func clampTileIndex(x float64, n int) int {
	if !(x > 0) {
		return 0
	}
	if x > float64(n) {
		return n
	}
	return int(x)
}

// Level returns the level this intersection was computed against.
func (isect Intersection) Level() *Level { return isect.level }

// IsEmpty is true if no tiles are overlapped.
func (isect Intersection) IsEmpty() bool {
	return isect.rowRange[0] >= isect.rowRange[1] || isect.colRange[0] >= isect.colRange[1]
}

// NumTiles returns how many tiles are overlapped.
func (isect Intersection) NumTiles() int {
	if isect.IsEmpty() {
		return 0
	}
	return (isect.rowRange[1] - isect.rowRange[0]) * (isect.colRange[1] - isect.colRange[0])
}

// TileCoords returns the overlapped tile coordinates in row-major order.
func (isect Intersection) TileCoords() []octview.TileCoord {
	if isect.IsEmpty() {
		return nil
	}
	coords := make([]octview.TileCoord, 0, isect.NumTiles())
	for row := isect.rowRange[0]; row < isect.rowRange[1]; row++ {
		for col := isect.colRange[0]; col < isect.colRange[1]; col++ {
			coords = append(coords, octview.TileCoord{row, col})
		}
	}
	return coords
}

// Chunks returns the chunks for every overlapped tile.  With create true,
// chunks are materialized on first access; otherwise only already-tracked
// chunks are returned.
func (isect Intersection) Chunks(create bool) []*Chunk {
	if isect.IsEmpty() {
		return nil
	}
	chunks := make([]*Chunk, 0, isect.NumTiles())
	for row := isect.rowRange[0]; row < isect.rowRange[1]; row++ {
		for col := isect.colRange[0]; col < isect.colRange[1]; col++ {
			if create {
				chunk, err := isect.level.GetChunk(row, col)
				if err != nil {
					// Ranges are clipped to the grid above, so this is
					// unreachable short of a bug.
					octview.Errorf("intersection chunk fetch: %v\n", err)
					continue
				}
				chunks = append(chunks, chunk)
			} else if chunk, found := isect.level.LookupChunk(row, col); found {
				chunks = append(chunks, chunk)
			}
		}
	}
	return chunks
}

func (isect Intersection) String() string {
	return fmt.Sprintf("intersection level %d rows [%d,%d) cols [%d,%d)",
		isect.level.Info().LevelIndex,
		isect.rowRange[0], isect.rowRange[1], isect.colRange[0], isect.colRange[1])
}
