package octree

import (
	"errors"
	"testing"

	"github.com/janelia-flyem/octview/octview"
)

func TestLevelGeometry(t *testing.T) {
	tree, err := New(1, octview.Shape2d{4096, 4096}, octview.Shape2d{256, 256})
	if err != nil {
		t.Fatalf("unable to build octree: %v", err)
	}
	if tree.NumLevels() != 5 {
		t.Fatalf("expected 5 levels for 4096^2 image with 256 tiles, got %d", tree.NumLevels())
	}
	expectedGrids := []octview.Shape2d{{16, 16}, {8, 8}, {4, 4}, {2, 2}, {1, 1}}
	for i, level := range tree.Levels() {
		info := level.Info()
		if info.GridShape != expectedGrids[i] {
			t.Errorf("level %d: expected grid %s, got %s", i, expectedGrids[i], info.GridShape)
		}
		if info.Downsample != 1<<i {
			t.Errorf("level %d: expected downsample %d, got %d", i, 1<<i, info.Downsample)
		}
		if info.LevelIndex != i {
			t.Errorf("level %d: bad level index %d", i, info.LevelIndex)
		}
	}
}

func TestLevelGeometryNonSquare(t *testing.T) {
	// 10000 x 3000 with 512 tiles: level 0 grid is (6, 20); halving rounds up
	// until 1x1.
	tree, err := New(1, octview.Shape2d{3000, 10000}, octview.Shape2d{512, 512})
	if err != nil {
		t.Fatalf("unable to build octree: %v", err)
	}
	grids := []octview.Shape2d{{6, 20}, {3, 10}, {2, 5}, {1, 3}, {1, 2}, {1, 1}}
	if tree.NumLevels() != len(grids) {
		t.Fatalf("expected %d levels, got %d", len(grids), tree.NumLevels())
	}
	for i, level := range tree.Levels() {
		if level.Info().GridShape != grids[i] {
			t.Errorf("level %d: expected grid %s, got %s", i, grids[i], level.Info().GridShape)
		}
	}
	last := tree.Levels()[tree.NumLevels()-1].Info()
	if last.GridShape != (octview.Shape2d{1, 1}) {
		t.Errorf("coarsest level grid should be (1,1), got %s", last.GridShape)
	}
}

func TestSmallImageSingleLevel(t *testing.T) {
	tree, err := New(1, octview.Shape2d{100, 200}, octview.Shape2d{256, 256})
	if err != nil {
		t.Fatalf("unable to build octree: %v", err)
	}
	if tree.NumLevels() != 1 {
		t.Fatalf("image smaller than one tile should yield a single level, got %d", tree.NumLevels())
	}
}

func TestBadConfig(t *testing.T) {
	var cerr ConfigError
	if _, err := New(1, octview.Shape2d{4096, 4096}, octview.Shape2d{0, 256}); !errors.As(err, &cerr) {
		t.Errorf("expected ConfigError for zero tile dimension, got %v", err)
	}
	if _, err := New(1, octview.Shape2d{-5, 4096}, octview.Shape2d{256, 256}); !errors.As(err, &cerr) {
		t.Errorf("expected ConfigError for negative base dimension, got %v", err)
	}
}

func TestChunkBounds(t *testing.T) {
	tree, err := New(1, octview.Shape2d{4096, 4096}, octview.Shape2d{256, 256})
	if err != nil {
		t.Fatalf("unable to build octree: %v", err)
	}
	level, err := tree.Level(2) // 4x4 grid
	if err != nil {
		t.Fatalf("unable to get level 2: %v", err)
	}
	gridRows := level.Info().GridShape.Rows()

	if _, err := level.GetChunk(gridRows-1, 0); err != nil {
		t.Errorf("last valid row should succeed: %v", err)
	}
	var rerr RangeError
	if _, err := level.GetChunk(gridRows, 0); !errors.As(err, &rerr) {
		t.Errorf("one past last row should be a RangeError, got %v", err)
	}
	if _, err := level.GetChunk(0, -1); !errors.As(err, &rerr) {
		t.Errorf("negative col should be a RangeError, got %v", err)
	}
	if _, err := tree.GetChunk(tree.NumLevels(), 0, 0); !errors.As(err, &rerr) {
		t.Errorf("bad level index should be a RangeError, got %v", err)
	}
}

func TestChunkCreateOnDemand(t *testing.T) {
	tree, err := New(7, octview.Shape2d{1024, 1024}, octview.Shape2d{256, 256})
	if err != nil {
		t.Fatalf("unable to build octree: %v", err)
	}
	level, _ := tree.Level(0)
	if level.NumTrackedChunks() != 0 {
		t.Fatalf("no chunks should exist before access")
	}
	c1, err := level.GetChunk(1, 2)
	if err != nil {
		t.Fatalf("get chunk: %v", err)
	}
	c2, err := level.GetChunk(1, 2)
	if err != nil {
		t.Fatalf("get chunk: %v", err)
	}
	if c1 != c2 {
		t.Errorf("repeated access should return the identical chunk object")
	}
	if level.NumTrackedChunks() != 1 {
		t.Errorf("expected 1 tracked chunk, got %d", level.NumTrackedChunks())
	}
	loc := c1.Location()
	if loc.SliceID != 7 || loc.Level != 0 || loc.Row != 1 || loc.Col != 2 {
		t.Errorf("bad chunk location: %s", loc)
	}
	if !c1.NeedsLoad() {
		t.Errorf("fresh chunk should need load")
	}
	c1.SetData([]byte{1, 2, 3})
	if c1.NeedsLoad() {
		t.Errorf("chunk with data should not need load")
	}
}

func TestSelectLevel(t *testing.T) {
	view := func(dataWidth float64, canvasCols int, auto bool) View {
		return View{
			Bounds:    octview.Rect{MinRow: 0, MinCol: 0, MaxRow: dataWidth, MaxCol: dataWidth},
			Canvas:    octview.Shape2d{canvasCols, canvasCols},
			AutoLevel: auto,
		}
	}

	// The worked example: canvas width 512, data width 2048 => ratio 4 =>
	// level 2 of 5.
	if got := SelectLevel(view(2048, 512, true), 4, 5); got != 2 {
		t.Errorf("expected level 2 for ratio 4, got %d", got)
	}

	// Pinned level is returned unchanged when auto is off.
	if got := SelectLevel(view(2048, 512, false), 3, 5); got != 3 {
		t.Errorf("expected pinned level 3, got %d", got)
	}

	// Ratio <= 1 always selects the finest level.
	if got := SelectLevel(view(512, 512, true), 4, 5); got != 0 {
		t.Errorf("expected level 0 for ratio 1, got %d", got)
	}
	if got := SelectLevel(view(100, 512, true), 4, 5); got != 0 {
		t.Errorf("expected level 0 for ratio < 1, got %d", got)
	}

	// Clamped to coarsest available level.
	if got := SelectLevel(view(1<<20, 512, true), 0, 5); got != 4 {
		t.Errorf("expected clamp to level 4, got %d", got)
	}

	// Monotonic non-decreasing in ratio.
	prev := 0
	for width := 256; width <= 1<<20; width *= 2 {
		got := SelectLevel(view(float64(width), 512, true), 0, 12)
		if got < prev {
			t.Fatalf("level selection decreased from %d to %d at data width %d", prev, got, width)
		}
		prev = got
	}
}

func TestIntersect(t *testing.T) {
	tree, err := New(1, octview.Shape2d{4096, 4096}, octview.Shape2d{256, 256})
	if err != nil {
		t.Fatalf("unable to build octree: %v", err)
	}
	level, _ := tree.Level(0) // 16x16 grid of 256-pixel tiles

	// A rect covering tiles (0,0), (0,1), (1,0), (1,1).
	v := View{
		Bounds: octview.Rect{MinRow: 10, MinCol: 10, MaxRow: 300, MaxCol: 300},
		Canvas: octview.Shape2d{512, 512},
	}
	isect := Intersect(level, v)
	if isect.NumTiles() != 4 {
		t.Fatalf("expected 4 tiles, got %d (%s)", isect.NumTiles(), isect)
	}
	coords := isect.TileCoords()
	expected := []octview.TileCoord{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	for i, tc := range expected {
		if coords[i] != tc {
			t.Errorf("tile %d: expected %s, got %s", i, tc, coords[i])
		}
	}
}

func TestIntersectClipsToGrid(t *testing.T) {
	tree, _ := New(1, octview.Shape2d{4096, 4096}, octview.Shape2d{256, 256})
	level, _ := tree.Level(2) // 4x4 grid, tile extent 1024 world units

	// A rect hanging off every edge of the data clips to the full grid.
	v := View{
		Bounds: octview.Rect{MinRow: -5000, MinCol: -5000, MaxRow: 99999, MaxCol: 99999},
	}
	isect := Intersect(level, v)
	if isect.NumTiles() != 16 {
		t.Errorf("expected all 16 tiles after clipping, got %d", isect.NumTiles())
	}

	// A rect entirely outside the data yields nothing.
	v.Bounds = octview.Rect{MinRow: 50000, MinCol: 50000, MaxRow: 60000, MaxCol: 60000}
	if isect = Intersect(level, v); !isect.IsEmpty() {
		t.Errorf("expected empty intersection outside data, got %s", isect)
	}

	// Bounds big enough to overflow an int conversion still clip to the
	// full grid instead of wrapping negative.
	v.Bounds = octview.Rect{MinRow: -1e300, MinCol: -1e300, MaxRow: 1e300, MaxCol: 1e300}
	if isect = Intersect(level, v); isect.NumTiles() != 16 {
		t.Errorf("expected all 16 tiles for huge bounds, got %d (%s)", isect.NumTiles(), isect)
	}
}

func TestIntersectDegenerateView(t *testing.T) {
	tree, _ := New(1, octview.Shape2d{4096, 4096}, octview.Shape2d{256, 256})
	level, _ := tree.Level(0)

	v := View{Bounds: octview.Rect{MinRow: 100, MinCol: 100, MaxRow: 100, MaxCol: 100}}
	isect := Intersect(level, v)
	if !isect.IsEmpty() {
		t.Errorf("zero-size view should yield empty intersection")
	}
	if got := isect.Chunks(true); len(got) != 0 {
		t.Errorf("empty intersection should yield no chunks, got %d", len(got))
	}
}

func TestIntersectionChunks(t *testing.T) {
	tree, _ := New(1, octview.Shape2d{1024, 1024}, octview.Shape2d{256, 256})
	level, _ := tree.Level(0)

	v := View{Bounds: octview.Rect{MinRow: 0, MinCol: 0, MaxRow: 512, MaxCol: 512}}
	isect := Intersect(level, v)

	// Without create, nothing is materialized yet.
	if got := isect.Chunks(false); len(got) != 0 {
		t.Fatalf("expected no tracked chunks before creation, got %d", len(got))
	}
	chunks := isect.Chunks(true)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	if got := isect.Chunks(false); len(got) != 4 {
		t.Errorf("expected 4 tracked chunks after creation, got %d", len(got))
	}
}
