package chunks

import (
	"sync"

	"github.com/DmitriyVTitov/size"
	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"
	"github.com/golang/groupcache/lru"

	"github.com/janelia-flyem/octview/octview"
)

// hotEntries is the number of payloads kept in the hot LRU tier.  Sized for
// a few screens worth of tiles.
const hotEntries = 256

// Cache is the bounded process-wide store of loaded tile payloads.  It has
// two tiers: a small LRU of the most recently touched payloads, and a
// byte-budgeted freecache holding everything else until evicted.  Eviction
// policy is a tuning knob, not a contract: the contract is only that a key
// once loaded remains retrievable until evicted, and a missing key triggers
// a reload.
type Cache struct {
	fc *freecache.Cache

	mu  sync.Mutex
	hot *lru.Cache

	hits, misses uint64
}

// NewCache creates a payload cache with the given byte budget.
func NewCache(mbytes int) *Cache {
	if mbytes <= 0 {
		mbytes = octview.DefaultCacheMBytes
	}
	c := &Cache{
		fc:  freecache.NewCache(mbytes << 20),
		hot: lru.New(hotEntries),
	}
	octview.Infof("Created tile payload cache of ~ %d MB.\n", mbytes)
	return c
}

// Get returns the cached payload for a key, if present.  Cache keys exclude
// slice identity, so slices viewing the same data share payloads.
func (c *Cache) Get(k Key) ([]byte, bool) {
	kb := k.Bytes()

	c.mu.Lock()
	if v, ok := c.hot.Get(string(kb)); ok {
		c.hits++
		c.mu.Unlock()
		return v.([]byte), true
	}
	c.mu.Unlock()

	payload, err := c.fc.Get(kb)
	if err != nil {
		if err != freecache.ErrNotFound {
			octview.Errorf("payload cache get %s: %v\n", k, err)
		}
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}
	c.mu.Lock()
	c.hits++
	c.hot.Add(string(kb), payload)
	c.mu.Unlock()
	return payload, true
}

// Put stores a successfully loaded payload.  Failed loads are never stored.
func (c *Cache) Put(k Key, payload []byte) {
	kb := k.Bytes()
	if err := c.fc.Set(kb, payload, 0); err != nil {
		// Oversized entries can exceed freecache's per-entry limit; the hot
		// tier still holds them until evicted.
		octview.Warningf("payload cache set %s (%s): %v\n", k, humanize.Bytes(uint64(len(payload))), err)
	}
	c.mu.Lock()
	c.hot.Add(string(kb), payload)
	c.mu.Unlock()
}

// Stats describes cache usage for logging and telemetry.
type Stats struct {
	Entries  int64
	Hits     uint64
	Misses   uint64
	HotBytes int64
	HotUsage string
}

// GetStats returns a snapshot of cache usage.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	hotBytes := int64(size.Of(c.hot))
	return Stats{
		Entries:  c.fc.EntryCount(),
		Hits:     c.hits,
		Misses:   c.misses,
		HotBytes: hotBytes,
		HotUsage: humanize.Bytes(uint64(hotBytes)),
	}
}
