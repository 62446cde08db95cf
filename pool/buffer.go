package pool

import (
	"math/bits"
	"sync"
)

// Pool hands out buffers of at least the requested size.
type Pool[T any] interface {
	Take(size int) []T
	Return(buffer []T)
}

// BufferPool keeps one bucket of returned buffers per power of two.
// It is not safe for concurrent use; give each worker its own or use LockingBufferPool.
type BufferPool[T any] struct {
	buckets [bits.UintSize][][]T
}

// Take returns a zeroed buffer of length size whose capacity is a power of two
func (p *BufferPool[T]) Take(size int) []T {
	capacity := Capacity(size)
	power := bits.TrailingZeros(uint(capacity))
	bucket := p.buckets[power]
	if n := len(bucket); n > 0 {
		buffer := bucket[n-1]
		bucket[n-1] = nil
		p.buckets[power] = bucket[:n-1]
		return buffer[:size]
	}
	return make([]T, size, capacity)
}

// Return gives back a buffer obtained from Take. Buffers whose capacity is not
// a power of two are dropped.
func (p *BufferPool[T]) Return(buffer []T) {
	capacity := cap(buffer)
	if capacity == 0 || capacity&(capacity-1) != 0 {
		return
	}
	buffer = buffer[:capacity]
	clear(buffer)
	power := bits.TrailingZeros(uint(capacity))
	p.buckets[power] = append(p.buckets[power], buffer)
}

// LockingBufferPool is a BufferPool guarded by a mutex, shared between workers.
type LockingBufferPool[T any] struct {
	mu   sync.Mutex
	pool BufferPool[T]
}

func (p *LockingBufferPool[T]) Take(size int) []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool.Take(size)
}

func (p *LockingBufferPool[T]) Return(buffer []T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pool.Return(buffer)
}
