package auth

import "sync"

// BytePool hands out fixed-size read buffers to connections.
// Буферы хранятся как *[]byte, чтобы Put не аллоцировал.
type BytePool struct {
	size int
	pool sync.Pool
}

// NewBytePool creates a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	p := &BytePool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

// Get returns a buffer of n bytes. Contents are not cleared.
// Запросы больше размера пула аллоцируются напрямую.
func (p *BytePool) Get(n int) []byte {
	if n > p.size {
		return make([]byte, n)
	}
	b := p.pool.Get().(*[]byte)
	return (*b)[:n]
}

// Put returns b to the pool. Buffers not obtained from the pool are dropped.
func (p *BytePool) Put(b []byte) {
	if cap(b) != p.size {
		return
	}
	b = b[:p.size]
	p.pool.Put(&b)
}
