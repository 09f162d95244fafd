package stream

import (
	"errors"
	"io"
	"sync"
)

// ErrAborted is returned by a Source read after Abort.
var ErrAborted = errors.New("stream aborted")

// Source is the transport a Stream reads from. Abort must unblock a pending
// Read and be safe to call more than once.
type Source interface {
	io.Reader
	Abort()
}

// ChunkSource is an in-memory Source that returns one pushed chunk per Read.
type ChunkSource struct {
	chunks    chan string
	aborted   chan struct{}
	pending   string
	abortOnce sync.Once
	endOnce   sync.Once
}

// NewChunkSource returns a source that yields chunks and then io.EOF.
func NewChunkSource(chunks ...string) *ChunkSource {
	c := &ChunkSource{
		chunks:  make(chan string, len(chunks)),
		aborted: make(chan struct{}),
	}
	for _, chunk := range chunks {
		c.chunks <- chunk
	}
	c.End()
	return c
}

// NewLiveChunkSource returns a source fed by Push until End is called.
func NewLiveChunkSource() *ChunkSource {
	return &ChunkSource{
		chunks:  make(chan string),
		aborted: make(chan struct{}),
	}
}

// Push hands a chunk to the reader. It reports false once the source has
// been aborted.
func (c *ChunkSource) Push(chunk string) bool {
	select {
	case c.chunks <- chunk:
		return true
	case <-c.aborted:
		return false
	}
}

// End makes the reader see io.EOF after the pushed chunks.
func (c *ChunkSource) End() {
	c.endOnce.Do(func() { close(c.chunks) })
}

// Read implements io.Reader
func (c *ChunkSource) Read(p []byte) (int, error) {
	if c.pending == "" {
		select {
		case <-c.aborted:
			return 0, ErrAborted
		default:
		}

		select {
		case chunk, ok := <-c.chunks:
			if !ok {
				return 0, io.EOF
			}
			c.pending = chunk
		case <-c.aborted:
			return 0, ErrAborted
		}
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Abort implements Source
func (c *ChunkSource) Abort() {
	c.abortOnce.Do(func() { close(c.aborted) })
}

// Aborted reports whether Abort has been called.
func (c *ChunkSource) Aborted() bool {
	select {
	case <-c.aborted:
		return true
	default:
		return false
	}
}

var _ Source = (*ChunkSource)(nil)
