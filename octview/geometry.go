package octview

import "fmt"

// Shape2d holds a 2d extent in (rows, cols) order, matching image indexing.
type Shape2d [2]int

func (s Shape2d) Rows() int { return s[0] }
func (s Shape2d) Cols() int { return s[1] }

func (s Shape2d) String() string {
	return fmt.Sprintf("(%d,%d)", s[0], s[1])
}

// TileCoord addresses one tile within a level's grid in (row, col) order.
type TileCoord [2]int

func (tc TileCoord) Row() int { return tc[0] }
func (tc TileCoord) Col() int { return tc[1] }

func (tc TileCoord) String() string {
	return fmt.Sprintf("(%d,%d)", tc[0], tc[1])
}

// Rect is an axis-aligned rectangle in world (data) coordinates, using
// (row, col) order like the rest of the image indexing.  Max bounds are
// exclusive.
type Rect struct {
	MinRow, MinCol float64
	MaxRow, MaxCol float64
}

// Width returns the extent along columns.
func (r Rect) Width() float64 { return r.MaxCol - r.MinCol }

// Height returns the extent along rows.
func (r Rect) Height() float64 { return r.MaxRow - r.MinRow }

// Empty is true if the rectangle covers no area.
func (r Rect) Empty() bool {
	return r.MaxRow <= r.MinRow || r.MaxCol <= r.MinCol
}

func (r Rect) String() string {
	return fmt.Sprintf("[%g:%g, %g:%g]", r.MinRow, r.MaxRow, r.MinCol, r.MaxCol)
}

// DivCeil returns ceil(a/b) for positive b.
func DivCeil(a, b int) int {
	return (a + b - 1) / b
}
