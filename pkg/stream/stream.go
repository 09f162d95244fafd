package stream

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/sse"
)

// Option configures a Stream.
type Option func(*Stream)

// WithTimeout sets how long the stream may stay silent before it is ended.
func WithTimeout(d time.Duration) Option {
	return func(s *Stream) {
		s.timeout = d
	}
}

// Stream reads server-sent events from a Source and delivers them to a
// Handler. The terminal callback is delivered at most once and nothing is
// delivered after it or after Close.
type Stream struct {
	src     Source
	handler Handler
	timeout time.Duration
	monitor *Monitor
	log     *logger.ComponentLogger

	mu        sync.Mutex
	finished  bool
	closed    atomic.Bool
	closeOnce sync.Once
	abortOnce sync.Once
	done      chan struct{}
}

// Open starts reading src in the background.
func Open(src Source, h Handler, opts ...Option) *Stream {
	s := &Stream{
		src:     src,
		handler: h,
		timeout: DefaultTimeout,
		log:     logger.WithComponent("stream"),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.monitor = NewMonitor(s.timeout, s.expire)
	s.monitor.Start()

	go s.run()
	return s
}

// Close stops the stream without delivering OnEnd. It is safe to call from
// a handler and more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.monitor.Stop()
		s.abort()
	})
}

// Done is closed once the read loop has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

func (s *Stream) run() {
	defer close(s.done)

	r := sse.NewReader(&touchReader{src: s.src, monitor: s.monitor})
	for {
		line, err := r.Next()
		if err != nil {
			s.readFailed(err)
			return
		}

		ev := sse.Decode(line)
		switch ev.Kind {
		case sse.EventData:
			if !s.deliver(func() { s.handler.OnToken(ev.Data) }) {
				return
			}
		case sse.EventEnd:
			s.log.Debug("end sentinel received")
			s.finish(s.handler.OnEnd)
			s.abort()
			return
		}
	}
}

func (s *Stream) readFailed(err error) {
	defer s.abort()

	if s.closed.Load() || errors.Is(err, ErrAborted) {
		return
	}
	if errors.Is(err, io.EOF) {
		s.log.Debug("source closed without end sentinel")
		s.finish(s.handler.OnEnd)
		return
	}
	s.log.Warn("stream read failed", "error", err)
	s.finish(func() { s.handler.OnError(err) })
}

func (s *Stream) expire() {
	s.log.Warn("stream silent, ending", "timeout", s.timeout)
	s.finish(s.handler.OnEnd)
	s.abort()
}

// deliver runs fn unless the stream is already over.
func (s *Stream) deliver(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || s.closed.Load() {
		return false
	}
	fn()
	return true
}

// finish runs the terminal callback fn if none has run yet.
func (s *Stream) finish(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished || s.closed.Load() {
		return false
	}
	s.finished = true
	s.monitor.Stop()
	fn()
	return true
}

func (s *Stream) abort() {
	s.abortOnce.Do(s.src.Abort)
}

// touchReader resets the liveness monitor on every chunk received.
type touchReader struct {
	src     io.Reader
	monitor *Monitor
}

func (t *touchReader) Read(p []byte) (int, error) {
	n, err := t.src.Read(p)
	if n > 0 {
		t.monitor.Reset()
	}
	return n, err
}
