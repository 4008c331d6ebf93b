// Package bufpool provides size-classed byte-slice reuse for the read,
// send, and broadcast paths, so the game loop's per-tick fan-out doesn't
// drive steady allocation.
package bufpool

import "sync"

// Recorder receives per-Get hit/miss counts so a caller can surface buffer
// reuse efficiency in telemetry. telemetry.Sampler satisfies this
// structurally; a Pool with no Recorder attached simply skips the calls.
type Recorder interface {
	RecordPoolHit()
	RecordPoolMiss()
}

// Pool is a pool of reusable []byte buffers for one buffer role (read,
// send, or broadcast). Separate Pool instances are used per role so a
// burst on one path cannot starve another.
type Pool struct {
	pool     sync.Pool
	recorder Recorder
}

// New creates a buffer pool whose freshly-allocated slices default to
// defaultCap bytes of capacity.
func New(defaultCap int) *Pool {
	p := &Pool{}
	p.pool.New = func() any {
		return make([]byte, 0, defaultCap)
	}
	return p
}

// WithRecorder attaches r so every subsequent Get reports whether it was
// served from the pool (hit) or had to allocate fresh (miss). It returns p
// so callers can chain it onto New at construction time.
func (p *Pool) WithRecorder(r Recorder) *Pool {
	p.recorder = r
	return p
}

// Get returns a slice of length size, reusing a pooled buffer when one of
// sufficient capacity is available.
func (p *Pool) Get(size int) []byte {
	b := p.pool.Get().([]byte)
	if cap(b) < size {
		p.pool.Put(b)
		if p.recorder != nil {
			p.recorder.RecordPoolMiss()
		}
		return make([]byte, size)
	}
	if p.recorder != nil {
		p.recorder.RecordPoolHit()
	}
	b = b[:size]
	clear(b)
	return b
}

// Put returns b to the pool for reuse. Callers must not retain b
// afterward.
func (p *Pool) Put(b []byte) {
	if b == nil {
		return
	}
	p.pool.Put(b[:0])
}
