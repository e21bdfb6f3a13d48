package chunks

import (
	"context"
	"sync"
	"time"

	"github.com/janelia-flyem/octview/octview"
)

// Fetcher is the asynchronous fetch backend contract: given a key, produce
// the tile payload.  Fetchers run on loader worker goroutines and should
// honor context cancellation during shutdown.
type Fetcher interface {
	Fetch(ctx context.Context, key Key) ([]byte, error)
}

// jobBufferSize bounds queued fetches.  Submissions past this are dropped
// (and retried by a later Request call) rather than blocking the render
// path.
const jobBufferSize = 4096

// Loader is the process-scoped chunk loading service.  It guarantees at
// most one in-flight fetch per distinct key, never blocks the caller on
// Request, and delivers each enqueued load's completion exactly once via
// the sink registry.
type Loader struct {
	fetcher  Fetcher
	cache    *Cache
	registry *Registry

	mu       sync.Mutex
	inflight map[Key]struct{}
	shutdown bool

	jobs   chan *Request
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewLoader starts a loader with the given fetch backend, payload cache,
// and number of fetch workers.
func NewLoader(fetcher Fetcher, cache *Cache, workers int) *Loader {
	if workers <= 0 {
		workers = octview.DefaultFetchWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loader{
		fetcher:  fetcher,
		cache:    cache,
		registry: NewRegistry(),
		inflight: make(map[Key]struct{}),
		jobs:     make(chan *Request, jobBufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	octview.Infof("Starting %d tile fetch workers...\n", workers)
	l.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go l.worker()
	}
	return l
}

// Registry returns the sink registry used for completion routing.
func (l *Loader) Registry() *Registry { return l.registry }

// Cache returns the payload cache backing this loader.
func (l *Loader) Cache() *Cache { return l.cache }

// Request submits a set of keys for loading without blocking.  Keys already
// cached are returned as ready requests with their payloads.  Keys already
// in flight are skipped.  The rest are enqueued for asynchronous fetch and
// returned as pending; their completions arrive later through the registry.
func (l *Loader) Request(keys []Key) (ready []*Request, pending []Key) {
	for _, key := range keys {
		if payload, found := l.cache.Get(key); found {
			req := NewRequest(key)
			req.Payload = payload
			ready = append(ready, req)
			continue
		}

		l.mu.Lock()
		if l.shutdown {
			l.mu.Unlock()
			return ready, pending
		}
		if _, loading := l.inflight[key]; loading {
			l.mu.Unlock()
			continue
		}
		// The send happens under the mutex so Shutdown cannot close the
		// channel between the shutdown check and the send.
		enqueued := false
		select {
		case l.jobs <- NewRequest(key):
			l.inflight[key] = struct{}{}
			enqueued = true
		default:
		}
		l.mu.Unlock()

		if enqueued {
			pending = append(pending, key)
		} else {
			// Queue is saturated.  The key stays unmarked so a later
			// Request retries.
			octview.Warningf("fetch queue full, deferring load of %s\n", key)
		}
	}
	return ready, pending
}

// InFlight returns whether a key currently has an outstanding fetch.
func (l *Loader) InFlight(key Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, loading := l.inflight[key]
	return loading
}

func (l *Loader) worker() {
	defer l.wg.Done()
	for req := range l.jobs {
		payload, err := l.fetcher.Fetch(l.ctx, req.Key)
		req.loaded = time.Now()

		if err != nil {
			// The key stays uncached so a future Request can retry.
			req.Err = err
			octview.Errorf("fetch failed for %s: %v\n", req.Key, err)
		} else {
			req.Payload = payload
			l.cache.Put(req.Key, payload)
		}

		// Clear in-flight before delivery so a sink reacting to the
		// completion can immediately re-request on failure.
		l.mu.Lock()
		delete(l.inflight, req.Key)
		l.mu.Unlock()

		l.registry.Deliver(req)

		octview.LogActivityToKafka(map[string]interface{}{
			"action":    "tile-load",
			"key":       req.Key.String(),
			"bytes":     len(payload),
			"load-msec": req.LoadTime().Milliseconds(),
			"failed":    err != nil,
		})
	}
}

// Shutdown stops accepting submissions, cancels outstanding fetches, and
// waits for workers to drain.  The channel is closed under the same mutex
// that guards submission sends, so a concurrent Request can never send on
// the closed channel.
func (l *Loader) Shutdown() {
	l.mu.Lock()
	if l.shutdown {
		l.mu.Unlock()
		return
	}
	l.shutdown = true
	close(l.jobs)
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
	octview.Infof("Tile fetch workers drained.\n")
}
