package slices

import (
	"github.com/janelia-flyem/octview/chunks"
	"github.com/janelia-flyem/octview/octree"
	"github.com/janelia-flyem/octview/octview"
)

// layerLoader binds the process-wide chunk loading service to one layer:
// it derives request keys from visible chunks and partitions them into
// drawable-now versus load-in-background.
type layerLoader struct {
	layer   LayerRef
	service *chunks.Loader
}

func newLayerLoader(layer LayerRef, service *chunks.Loader) *layerLoader {
	return &layerLoader{layer: layer, service: service}
}

func (ll *layerLoader) keyFor(chunk *octree.Chunk) chunks.Key {
	return chunks.Key{
		DataID:   ll.layer.DataID,
		Location: chunk.Location(),
	}
}

// getDrawableChunks partitions visible chunks into those that already have
// data (returned as drawable) and those needing a load.  The latter are
// submitted to the loading service: cache hits come back immediately and
// are installed and returned as drawable, while the rest are fetched in the
// background and drawn on a later frame.  Rendering never blocks on I/O.
func (ll *layerLoader) getDrawableChunks(visible []*octree.Chunk) []*octree.Chunk {
	drawable := make([]*octree.Chunk, 0, len(visible))
	var needed []chunks.Key
	byKey := make(map[chunks.Key]*octree.Chunk)

	for _, chunk := range visible {
		if !chunk.NeedsLoad() {
			drawable = append(drawable, chunk)
			continue
		}
		key := ll.keyFor(chunk)
		needed = append(needed, key)
		byKey[key] = chunk
	}
	if len(needed) == 0 {
		return drawable
	}

	ready, pending := ll.service.Request(needed)
	for _, req := range ready {
		chunk := byKey[req.Key]
		chunk.SetData(req.Payload)
		drawable = append(drawable, chunk)
	}
	if len(pending) > 0 {
		octview.Debugf("layer %s: %d tile loads in flight\n", ll.layer.DataID, len(pending))
	}
	return drawable
}
