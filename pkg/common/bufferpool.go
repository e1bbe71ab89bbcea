package common

import "sync"

// Buffer tiers sized for the segments this module moves around: header
// scratch space, one MTU's worth of segment, and the largest segment a
// 16-bit TCP length can describe.
const (
	HeaderBufferSize     = 64
	MTUBufferSize        = 1536
	MaxSegmentBufferSize = 65536
)

// BufferPool recycles byte buffers of one fixed capacity. Buffers of a
// foreign capacity handed to Put are dropped rather than mixed in, so a
// Get never returns a short buffer.
type BufferPool struct {
	size int
	pool sync.Pool
}

// NewBufferPool returns a pool whose buffers all have capacity size.
func NewBufferPool(size int) *BufferPool {
	p := &BufferPool{size: size}
	p.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}
	return p
}

// Size returns the fixed capacity of this pool's buffers.
func (p *BufferPool) Size() int {
	return p.size
}

// Get returns a buffer of length Size. Return it with Put when done.
func (p *BufferPool) Get() []byte {
	b := p.pool.Get().(*[]byte)
	return (*b)[:p.size]
}

// Put zeroes buf and returns it to the pool. Buffers whose capacity does
// not match the pool's size are discarded.
func (p *BufferPool) Put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	buf = buf[:p.size]
	for i := range buf {
		buf[i] = 0
	}
	p.pool.Put(&buf)
}

// segmentPools are the shared tiers GetBuffer draws from, smallest first.
var segmentPools = [...]*BufferPool{
	NewBufferPool(HeaderBufferSize),
	NewBufferPool(MTUBufferSize),
	NewBufferPool(MaxSegmentBufferSize),
}

// GetBuffer returns a buffer of length size drawn from the smallest tier
// that fits. Sizes beyond the largest tier are allocated directly and
// never pooled.
func GetBuffer(size int) []byte {
	for _, p := range segmentPools {
		if size <= p.size {
			return p.Get()[:size]
		}
	}
	return make([]byte, size)
}

// PutBuffer returns a buffer obtained from GetBuffer to its tier.
// Directly-allocated oversized buffers are left to the collector.
func PutBuffer(buf []byte) {
	for _, p := range segmentPools {
		if cap(buf) == p.size {
			p.Put(buf[:p.size])
			return
		}
	}
}
