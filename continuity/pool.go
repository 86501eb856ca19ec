package continuity

import "sync"

// poolKey identifies one free-list bucket: a buffer length plus a tag
// distinguishing unrelated uses of the same length (spec.md §4.11.4:
// "pooled by (length, tag)").
type poolKey struct {
	length int
	tag    string
}

// BufferPool reuses []float64 scratch buffers across frames so
// continuity's gauge math allocates nothing in steady state (spec.md
// §4.11.4: "zero allocations per frame"). Grounded on the buffering
// concern core/core.go expresses with buffering.Buffer slices,
// generalized from message buffers to numeric scratch buffers (no
// ecosystem library in the pack targets generic numeric buffer
// pooling; the free lists are plain slices in a mutex-guarded map
// keyed by (length, tag), not a sync.Pool).
type BufferPool struct {
	mu    sync.Mutex
	free  map[poolKey][][]float64
}

func NewBufferPool() *BufferPool {
	return &BufferPool{free: map[poolKey][][]float64{}}
}

// Get returns a zeroed buffer of exactly n elements tagged tag,
// reusing a previously Put buffer of the same shape when available.
func (p *BufferPool) Get(n int, tag string) []float64 {
	key := poolKey{n, tag}
	p.mu.Lock()
	bucket := p.free[key]
	var buf []float64
	if len(bucket) > 0 {
		buf = bucket[len(bucket)-1]
		p.free[key] = bucket[:len(bucket)-1]
	}
	p.mu.Unlock()

	if buf == nil {
		return make([]float64, n)
	}
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// Put returns buf to the pool under tag for reuse by a future Get of
// the same length and tag.
func (p *BufferPool) Put(buf []float64, tag string) {
	if buf == nil {
		return
	}
	key := poolKey{len(buf), tag}
	p.mu.Lock()
	p.free[key] = append(p.free[key], buf)
	p.mu.Unlock()
}
