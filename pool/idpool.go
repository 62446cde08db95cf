// Package pool issues dense integer ids and recycles power-of-two buffers.
package pool

import "math/bits"

// IdPool hands out integer ids. Returned ids are queued and reused in the order
// they came back; once the queue is empty the lowest never issued id is used.
type IdPool struct {
	nextIndex int

	// ring of returned ids, capacity is always a power of two
	available []int
	head      int
	count     int
}

func NewIdPool(initialCapacity int) *IdPool {
	return &IdPool{
		available: make([]int, Capacity(max(1, initialCapacity))),
	}
}

// Take returns an id that is not currently in use
func (p *IdPool) Take() int {
	if p.count > 0 {
		id := p.available[p.head]
		p.head = (p.head + 1) & (len(p.available) - 1)
		p.count--
		return id
	}
	id := p.nextIndex
	p.nextIndex++
	return id
}

// Return makes id available again. Returning an id twice is a caller error.
func (p *IdPool) Return(id int) {
	if p.count == len(p.available) {
		p.grow()
	}
	tail := (p.head + p.count) & (len(p.available) - 1)
	p.available[tail] = id
	p.count++
}

// HighestPossiblyClaimedId is the upper bound of every id issued so far, -1 if none
func (p *IdPool) HighestPossiblyClaimedId() int {
	return p.nextIndex - 1
}

// AvailableCount is the number of returned ids waiting for reuse
func (p *IdPool) AvailableCount() int {
	return p.count
}

func (p *IdPool) Clear() {
	p.nextIndex = 0
	p.head = 0
	p.count = 0
}

func (p *IdPool) grow() {
	available := make([]int, len(p.available)*2)
	mask := len(p.available) - 1
	for i := 0; i < p.count; i++ {
		available[i] = p.available[(p.head+i)&mask]
	}
	p.available = available
	p.head = 0
}

// Capacity rounds size up to the next power of two
func Capacity(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}
