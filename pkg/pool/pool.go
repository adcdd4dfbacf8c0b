// Package pool provides object and byte buffer pooling for Prism.
//
// Sessions copy every pushed chunk before handing it to the worker
// goroutine. Those copies come from GlobalBufferPool and go back to it once
// the reassembler has consumed them, so steady-state streaming allocates no
// chunk memory.
//
//	buf := pool.GlobalBufferPool.Get(len(chunk))
//	copy(buf, chunk)
//	...
//	pool.GlobalBufferPool.Put(buf)
package pool

import (
	"sync"
	"sync/atomic"
)

// Pool is a typed wrapper around sync.Pool that counts allocations and
// outstanding objects. Safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		gets      int64
	}
}

// New creates a pool. reset, if non-nil, runs on every object handed to Put.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get takes an object from the pool, allocating one if it is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	atomic.AddInt64(&p.stats.gets, 1)
	return p.pool.Get().(T)
}

// Put hands obj back for reuse.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats reports the pool counters.
func (p *Pool[T]) Stats() Stats {
	allocated := atomic.LoadInt64(&p.stats.allocated)
	gets := atomic.LoadInt64(&p.stats.gets)
	return Stats{
		Allocated: allocated,
		InUse:     atomic.LoadInt64(&p.stats.inUse),
		Hits:      gets - allocated,
		Misses:    allocated,
	}
}

// Stats is a snapshot of pool counters.
type Stats struct {
	// Allocated is the number of objects the pool created
	Allocated int64
	// InUse is the number of objects taken and not yet returned
	InUse int64
	// Hits counts Gets served from the pool
	Hits int64
	// Misses counts Gets that had to allocate
	Misses int64
}

// bufferSizes are the bucket capacities of a BufferPool. Larger requests are
// allocated directly and never pooled.
var bufferSizes = []int{
	4 << 10,
	16 << 10,
	64 << 10,
	256 << 10,
	1 << 20, // default chunk size
	4 << 20,
	16 << 20,
}

// BufferPool pools byte slices in power-of-four capacity buckets.
type BufferPool struct {
	buckets []*Pool[*[]byte]
}

// NewBufferPool creates an empty buffer pool.
func NewBufferPool() *BufferPool {
	bp := &BufferPool{buckets: make([]*Pool[*[]byte], len(bufferSizes))}
	for i, size := range bufferSizes {
		size := size
		bp.buckets[i] = New(func() *[]byte {
			b := make([]byte, size)
			return &b
		}, nil)
	}
	return bp
}

// Get returns a slice of length size from the smallest bucket that fits.
func (bp *BufferPool) Get(size int) []byte {
	for i, s := range bufferSizes {
		if size <= s {
			return (*bp.buckets[i].Get())[:size]
		}
	}
	return make([]byte, size)
}

// Put returns buf to the bucket matching its capacity. Slices whose capacity
// is not a bucket size are dropped.
func (bp *BufferPool) Put(buf []byte) {
	c := cap(buf)
	for i, s := range bufferSizes {
		if c == s {
			buf = buf[:c]
			bp.buckets[i].Put(&buf)
			return
		}
	}
}

// Stats reports the counters of every bucket keyed by capacity.
func (bp *BufferPool) Stats() map[int]Stats {
	out := make(map[int]Stats, len(bufferSizes))
	for i, s := range bufferSizes {
		out[s] = bp.buckets[i].Stats()
	}
	return out
}

// GlobalBufferPool is shared by all sessions of the process.
var GlobalBufferPool = NewBufferPool()
