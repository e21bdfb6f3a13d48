/*
octview is the streaming core for viewing huge multiscale 2d images: it
decides, as a viewport pans and zooms over a potentially larger-than-memory
image, which tiles of which resolution level must be fetched, cached,
evicted, and handed to a renderer, while fetches complete asynchronously
and results are matched back to the view state that requested them.

The library is organized as:

	octview/   core utilities: leveled logging, geometry, payload
	           serialization (compression + checksum), TOML config, and an
	           optional kafka activity relay.
	octree/    the spatial index: a stack of tile grids from full resolution
	           down to a single tile, plus view intersection and level of
	           detail selection.
	chunks/    the process-wide loading service: payload cache with bounded
	           eviction, request coalescing, fetch worker pool, and routing
	           of completions back to their slice.
	slices/    per-rendered-slice orchestration tying the above together for
	           one layer.
	storage/   tile fetch backends: Badger-backed local store, HTTP source,
	           and in-memory sources.

A renderer drives the system by constructing a slices.MultiscaleSlice and
calling GetDrawableChunks with a fresh octree.View every draw; the call
never blocks, returning whatever tiles are ready and scheduling background
fetches for the rest.

The octview command in cmd/octview can ingest a synthetic dataset into a
tile store, inspect it, and serve it over HTTP for remote streaming.
*/
package octview
