package chunks

import (
	"sync"

	"github.com/janelia-flyem/octview/octview"
)

// ChunkSink receives load completions for one slice.  Completions arrive on
// worker goroutines in arbitrary order; implementations must be safe to
// invoke from those goroutines.
type ChunkSink interface {
	// SliceID returns the identity completions are routed by.
	SliceID() uint64

	// ApplyLoadedChunk installs a completed request into the slice's chunk
	// at the request's location.  It returns false if the completion was not
	// applied, e.g., the chunk no longer matches.
	ApplyLoadedChunk(req *Request) bool
}

// Registry routes load completions to the slice that owns each request's
// location.  Slices register on creation and unregister when replaced;
// completions for unregistered slice ids are stale and dropped cheaply.
type Registry struct {
	mu    sync.RWMutex
	sinks map[uint64]ChunkSink
}

func NewRegistry() *Registry {
	return &Registry{sinks: make(map[uint64]ChunkSink)}
}

// Register adds a sink keyed by its slice id.
func (r *Registry) Register(sink ChunkSink) {
	r.mu.Lock()
	r.sinks[sink.SliceID()] = sink
	r.mu.Unlock()
}

// Unregister removes the sink for a slice id.  In-flight loads for that
// slice will still complete but their deliveries become no-ops.
func (r *Registry) Unregister(sliceID uint64) {
	r.mu.Lock()
	delete(r.sinks, sliceID)
	r.mu.Unlock()
}

// Deliver routes a completed request to the sink owning its slice id.  A
// completion for a replaced slice is an expected race, not a fault: it is
// logged at debug level and dropped without triggering any further work.
func (r *Registry) Deliver(req *Request) bool {
	r.mu.RLock()
	sink, found := r.sinks[req.Key.Location.SliceID]
	r.mu.RUnlock()
	if !found {
		octview.Debugf("dropping completion for unregistered slice: %s\n", req.Key)
		return false
	}
	return sink.ApplyLoadedChunk(req)
}
