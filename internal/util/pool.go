package util

import (
	"sync"

	"github.com/barqly/barqly-vault/internal/secret"
)

// BufferPool provides reusable byte buffers to reduce GC pressure
// during large file operations. Buffers are securely zeroed before
// being returned to the pool.
type BufferPool struct {
	pool sync.Pool
	size int
}

// NewBufferPool creates a new buffer pool with the specified buffer size.
func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Get retrieves a buffer from the pool.
// The buffer contents are undefined and should be overwritten.
func (p *BufferPool) Get() []byte {
	return *p.pool.Get().(*[]byte)
}

// Put returns a buffer to the pool after securely zeroing it.
// The buffer should not be used after calling Put.
func (p *BufferPool) Put(b []byte) {
	if len(b) != p.size {
		return
	}
	secret.Zero(b)
	p.pool.Put(&b)
}
