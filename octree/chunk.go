package octree

import (
	"fmt"
	"sync"
)

// Location identifies one tile at one (level, row, col) of one slice's
// octree.  It is a pure value: two locations are equal iff all four fields
// match.  It confers no ownership and is usable as a map key.
type Location struct {
	SliceID uint64
	Level   int
	Row     int
	Col     int
}

func (loc Location) String() string {
	return fmt.Sprintf("slice %d level %d tile (%d,%d)", loc.SliceID, loc.Level, loc.Row, loc.Col)
}

// Chunk holds one tile's payload and load status.  A chunk is created when
// its grid cell is first accessed and stays in its level for the octree's
// lifetime.  Payload eviction happens at the cache layer holding raw loaded
// bytes, decoupled from chunk identity.
type Chunk struct {
	loc Location

	mu   sync.Mutex
	data []byte
}

func newChunk(loc Location) *Chunk {
	return &Chunk{loc: loc}
}

// Location returns the chunk's immutable identity.
func (c *Chunk) Location() Location { return c.loc }

// Data returns the loaded payload or nil if the chunk is still unloaded.
func (c *Chunk) Data() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// SetData installs a loaded payload.  The loading pipeline never clears a
// payload once set.
func (c *Chunk) SetData(data []byte) {
	c.mu.Lock()
	c.data = data
	c.mu.Unlock()
}

// NeedsLoad is true until a payload has been set.
func (c *Chunk) NeedsLoad() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data == nil
}

func (c *Chunk) String() string {
	loaded := "unloaded"
	if !c.NeedsLoad() {
		loaded = "loaded"
	}
	return fmt.Sprintf("chunk %s (%s)", c.loc, loaded)
}
