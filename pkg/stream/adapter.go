package stream

import (
	"io"
	"strings"
	"sync"
)

// WriterHandler adapts an io.Writer to implement the Handler interface.
// Tokens are written as they arrive and also kept for GetContent.
type WriterHandler struct {
	mu     sync.Mutex
	writer io.Writer
	buffer strings.Builder
	err    error
	ended  bool
}

// NewWriterHandler creates a new handler that writes to an io.Writer
func NewWriterHandler(w io.Writer) *WriterHandler {
	return &WriterHandler{
		writer: w,
	}
}

// OnToken writes the token to the underlying writer
func (w *WriterHandler) OnToken(token string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buffer.WriteString(token)
	if w.err == nil {
		_, w.err = io.WriteString(w.writer, token)
	}
}

// OnError records the stream error
func (w *WriterHandler) OnError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

// OnEnd marks the stream finished
func (w *WriterHandler) OnEnd() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ended = true
}

// GetContent returns the accumulated content
func (w *WriterHandler) GetContent() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer.String()
}

// Err returns the first write or stream error
func (w *WriterHandler) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Ended reports whether OnEnd was delivered
func (w *WriterHandler) Ended() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ended
}

// MultiHandler broadcasts events to multiple handlers.
// Similar to io.MultiWriter but for our Handler interface.
type MultiHandler struct {
	handlers []Handler
}

// NewMultiHandler creates a handler that forwards to multiple handlers
func NewMultiHandler(handlers ...Handler) *MultiHandler {
	return &MultiHandler{
		handlers: handlers,
	}
}

// OnToken forwards the token to all handlers
func (m *MultiHandler) OnToken(token string) {
	for _, h := range m.handlers {
		h.OnToken(token)
	}
}

// OnError forwards errors to all handlers
func (m *MultiHandler) OnError(err error) {
	for _, h := range m.handlers {
		h.OnError(err)
	}
}

// OnEnd forwards the end of stream to all handlers
func (m *MultiHandler) OnEnd() {
	for _, h := range m.handlers {
		h.OnEnd()
	}
}

// Ensure implementations satisfy the interface
var (
	_ Handler = (*WriterHandler)(nil)
	_ Handler = (*MultiHandler)(nil)
)
