// Package pool recycles the buffers used to stream and stage object bodies.
package pool

import (
	"bytes"
	"io"
	"sync"
)

const (
	// CopyBufferSize is the chunk size used when streaming a body to a writer
	CopyBufferSize = 64 * 1024

	// MaxPooledBodySize is the largest staging buffer returned to the pool.
	// Larger buffers are left to the garbage collector.
	MaxPooledBodySize = 8 * 1024 * 1024
)

var copyBuffers = sync.Pool{
	New: func() any {
		buf := make([]byte, CopyBufferSize)
		return &buf
	},
}

var bodyBuffers = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// Copy copies src to dst through a pooled chunk buffer.
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	bufPtr := copyBuffers.Get().(*[]byte)
	defer copyBuffers.Put(bufPtr)
	return io.CopyBuffer(dst, src, *bufPtr)
}

// GetBody returns an empty staging buffer with room for at least sizeHint
// bytes. A non-positive sizeHint means the size is unknown.
func GetBody(sizeHint int64) *bytes.Buffer {
	buf := bodyBuffers.Get().(*bytes.Buffer)
	buf.Reset()
	if sizeHint > 0 && sizeHint <= MaxPooledBodySize {
		buf.Grow(int(sizeHint))
	}
	return buf
}

// PutBody returns buf to the pool. buf must not be used afterwards.
func PutBody(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > MaxPooledBodySize {
		return
	}
	buf.Reset()
	bodyBuffers.Put(buf)
}
