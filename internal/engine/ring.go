package engine

import (
	"sync"
	"sync/atomic"
)

// ring is a bounded command queue between control goroutines and the audio
// goroutine. Producers serialize on mu; the single consumer never locks, so
// a producer stalled mid-push cannot hold up the audio callback.
type ring struct {
	mu   sync.Mutex
	buf  []command
	mask uint64
	head atomic.Uint64 // next read, written by the consumer
	tail atomic.Uint64 // next write, written by producers
}

// newRing rounds size up to a power of two.
func newRing(size int) *ring {
	n := 1
	for n < size {
		n <<= 1
	}
	return &ring{buf: make([]command, n), mask: uint64(n - 1)}
}

// push appends c and reports false if the ring is full.
func (r *ring) push(c command) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tail.Load()
	if t-r.head.Load() == uint64(len(r.buf)) {
		return false
	}
	r.buf[t&r.mask] = c
	r.tail.Store(t + 1)
	return true
}

// pop removes the oldest command. Only the audio goroutine calls it.
func (r *ring) pop() (command, bool) {
	h := r.head.Load()
	if h == r.tail.Load() {
		return command{}, false
	}
	c := r.buf[h&r.mask]
	r.head.Store(h + 1)
	return c, true
}

func (r *ring) len() int {
	return int(r.tail.Load() - r.head.Load())
}
