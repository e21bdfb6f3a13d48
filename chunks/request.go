/*
Package chunks provides the process-scoped tile loading service: a keyed
cache of loaded payloads, coalescing of concurrent requests for the same
key, a worker pool that runs fetches against a backend, and routing of load
completions back to the slice that asked for them.
*/
package chunks

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/janelia-flyem/octview/octree"
)

// DataID identifies one multiscale data source.  All slices viewing the
// same data share cached payloads through it.
type DataID string

// Key identifies one pending or completed asynchronous load.  It stays
// comparable and valid even if the slice that triggered it has since been
// replaced.
type Key struct {
	DataID   DataID
	Location octree.Location
}

func (k Key) String() string {
	return fmt.Sprintf("%s %s", k.DataID, k.Location)
}

// Bytes returns a stable byte encoding used as the payload cache key.  The
// slice id is excluded: payloads are shared across slices viewing the same
// data, while slice identity matters only for completion routing.
func (k Key) Bytes() []byte {
	buf := make([]byte, 0, len(k.DataID)+1+24)
	buf = append(buf, k.DataID...)
	buf = append(buf, 0)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(k.Location.Level))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(k.Location.Row))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(k.Location.Col))
	return buf
}

// Request carries one load through the pipeline.  On completion exactly one
// of Payload or Err is set.
type Request struct {
	Key     Key
	Payload []byte
	Err     error

	queued time.Time
	loaded time.Time
}

// NewRequest returns a request for the given key, timestamped now.
func NewRequest(key Key) *Request {
	return &Request{Key: key, queued: time.Now()}
}

// LoadTime returns how long the request took from submission to completion.
func (r *Request) LoadTime() time.Duration {
	if r.loaded.IsZero() {
		return 0
	}
	return r.loaded.Sub(r.queued)
}
