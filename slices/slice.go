/*
Package slices orchestrates streaming for one rendered slice of a multiscale
image.  Each MultiscaleSlice owns an octree, tracks the displayed resolution
level, computes the drawable chunk set for a view, and receives asynchronous
load completions routed back by slice identity.
*/
package slices

import (
	"sync"
	"sync/atomic"

	"github.com/janelia-flyem/octview/chunks"
	"github.com/janelia-flyem/octview/octree"
	"github.com/janelia-flyem/octview/octview"
)

// thumbnailEdge is the square thumbnail extent in pixels.
const thumbnailEdge = 64

// nextSliceID hands out process-unique slice identities.  A replaced slice's
// id is never reused, which is what makes stale-completion detection work.
var nextSliceID uint64

// LayerRef identifies the layer a slice renders on behalf of.
type LayerRef struct {
	DataID chunks.DataID
}

// MultiscaleSlice views one slice of a multiscale image using an octree.
// The renderer calls GetDrawableChunks every draw; fetches it triggers
// complete later via ApplyLoadedChunk, invoked on loader worker goroutines.
type MultiscaleSlice struct {
	sliceID uint64
	layer   LayerRef
	tree    *octree.Tree
	loader  *layerLoader
	service *chunks.Loader

	mu          sync.Mutex
	octreeLevel int
	released    bool
	thumbnail   []byte
}

// NewMultiscaleSlice builds the octree for a base image shape and registers
// the slice for completion delivery.  The initial displayed level is the
// coarsest one, so the first paint needs only a single cheap tile.
func NewMultiscaleSlice(layer LayerRef, baseShape, tileShape octview.Shape2d, service *chunks.Loader) (*MultiscaleSlice, error) {
	sliceID := atomic.AddUint64(&nextSliceID, 1)
	tree, err := octree.New(sliceID, baseShape, tileShape)
	if err != nil {
		return nil, err
	}
	s := &MultiscaleSlice{
		sliceID:     sliceID,
		layer:       layer,
		tree:        tree,
		service:     service,
		octreeLevel: tree.NumLevels() - 1,
		thumbnail:   make([]byte, thumbnailEdge*thumbnailEdge),
	}
	s.loader = newLayerLoader(layer, service)
	service.Registry().Register(s)
	return s, nil
}

// SliceID returns the identity used to validate load completions.
func (s *MultiscaleSlice) SliceID() uint64 { return s.sliceID }

// Tree returns the slice's octree.
func (s *MultiscaleSlice) Tree() *octree.Tree { return s.tree }

// Loaded reports whether the slice can be drawn.  Because streaming is
// asynchronous we report loaded up front even though no tiles may have
// arrived yet.
func (s *MultiscaleSlice) Loaded() bool { return s.tree != nil }

// OctreeLevel returns the currently displayed resolution level.
func (s *MultiscaleSlice) OctreeLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.octreeLevel
}

// SetOctreeLevel pins the displayed resolution level.
func (s *MultiscaleSlice) SetOctreeLevel(level int) error {
	if _, err := s.tree.Level(level); err != nil {
		return err
	}
	s.mu.Lock()
	s.octreeLevel = level
	s.mu.Unlock()
	return nil
}

// OctreeLevelInfo returns information about the current octree level.
func (s *MultiscaleSlice) OctreeLevelInfo() (octree.LevelInfo, error) {
	level, err := s.tree.Level(s.OctreeLevel())
	if err != nil {
		return octree.LevelInfo{}, err
	}
	return level.Info(), nil
}

// GetIntersection returns the view's intersection with the octree at the
// appropriate resolution level.  When the view selects the level
// automatically, the slice's displayed level is updated as a side effect.
func (s *MultiscaleSlice) GetIntersection(view octree.View) octree.Intersection {
	levelIndex := octree.SelectLevel(view, s.OctreeLevel(), s.tree.NumLevels())
	level, err := s.tree.Level(levelIndex)
	if err != nil {
		// SelectLevel clamps to the available range, so this is unreachable
		// short of a bug.
		octview.Errorf("intersection level selection: %v\n", err)
		level, _ = s.tree.Level(s.tree.NumLevels() - 1)
	}
	if view.AutoLevel {
		s.mu.Lock()
		s.octreeLevel = levelIndex
		s.mu.Unlock()
	}
	return octree.Intersect(level, view)
}

// GetDrawableChunks returns the chunks that should be drawn to depict this
// view.  Chunks whose data is present are returned immediately; the rest
// trigger background fetches so more chunks are drawable on future frames.
// This never blocks on I/O.
func (s *MultiscaleSlice) GetDrawableChunks(view octree.View) []*octree.Chunk {
	visible := s.GetIntersection(view).Chunks(true)
	return s.loader.getDrawableChunks(visible)
}

// ApplyLoadedChunk implements chunks.ChunkSink.  It validates that the
// completion still belongs to this slice and installs the payload into the
// chunk at the request's location.  Stale or malformed completions are
// logged and dropped; they never propagate to the render path.
func (s *MultiscaleSlice) ApplyLoadedChunk(req *chunks.Request) bool {
	location := req.Key.Location
	if location.SliceID != s.sliceID {
		// There was probably a load in progress when the slice was changed.
		// Not an error, just ignore the chunk.
		octview.Debugf("ApplyLoadedChunk: wrong slice id: %s\n", location)
		return false
	}
	if req.Err != nil {
		// The chunk stays unloaded so a future request retries it.
		octview.Debugf("ApplyLoadedChunk: fetch error for %s: %v\n", location, req.Err)
		return false
	}

	level, err := s.tree.Level(location.Level)
	if err != nil {
		octview.Errorf("ApplyLoadedChunk: bad level in completion: %s\n", location)
		return false
	}
	chunk, found := level.LookupChunk(location.Row, location.Col)
	if !found {
		// Locations are turned into chunks when a load is initiated, so this
		// indicates a submission/identity pairing bug.  Log and keep going.
		octview.Errorf("ApplyLoadedChunk: missing chunk: %s\n", location)
		return false
	}
	if len(req.Payload) == 0 {
		octview.Errorf("ApplyLoadedChunk: empty payload for %s\n", location)
		return false
	}

	octview.Debugf("ApplyLoadedChunk: loading %s\n", location)
	chunk.SetData(req.Payload)

	if level.Info().GridShape == (octview.Shape2d{1, 1}) {
		s.updateThumbnail(req.Payload)
	}
	return true
}

// updateThumbnail refreshes the thumbnail slot by stride-sampling a
// coarsest-level tile down to the thumbnail extent.  The renderer may read
// it at any time for layer previews.
func (s *MultiscaleSlice) updateThumbnail(payload []byte) {
	tile := s.tree.TileShape()
	rowStride := tile.Rows() / thumbnailEdge
	if rowStride < 1 {
		rowStride = 1
	}
	colStride := tile.Cols() / thumbnailEdge
	if colStride < 1 {
		colStride = 1
	}

	thumb := make([]byte, thumbnailEdge*thumbnailEdge)
	for row := 0; row < thumbnailEdge; row++ {
		srcRow := row * rowStride
		if srcRow >= tile.Rows() {
			break
		}
		for col := 0; col < thumbnailEdge; col++ {
			srcCol := col * colStride
			i := srcRow*tile.Cols() + srcCol
			if srcCol >= tile.Cols() || i >= len(payload) {
				break
			}
			thumb[row*thumbnailEdge+col] = payload[i]
		}
	}
	s.mu.Lock()
	s.thumbnail = thumb
	s.mu.Unlock()
}

// Thumbnail returns the latest thumbnail payload, zeroed until a coarsest
// tile has loaded.
func (s *MultiscaleSlice) Thumbnail() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thumbnail
}

// Release unregisters the slice from completion delivery.  In-flight loads
// for it still complete but are dropped at delivery.
func (s *MultiscaleSlice) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()
	s.service.Registry().Unregister(s.sliceID)
}
