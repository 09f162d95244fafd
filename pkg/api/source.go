package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/stream"
)

// httpSource connects on first Read and streams the response body.
type httpSource struct {
	client *http.Client
	req    *http.Request
	ctx    context.Context
	cancel context.CancelFunc

	once sync.Once
	body io.ReadCloser
	err  error
}

func newHTTPSource(ctx context.Context, client *http.Client, req *http.Request) *httpSource {
	ctx, cancel := context.WithCancel(ctx)
	return &httpSource{
		client: client,
		req:    req.WithContext(ctx),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *httpSource) connect() {
	resp, err := s.client.Do(s.req)
	if err != nil {
		if s.ctx.Err() != nil {
			s.err = stream.ErrAborted
			return
		}
		s.err = &TransportError{Reason: "connection failed", Err: err}
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		s.err = &TransportError{StatusCode: resp.StatusCode, Reason: resp.Status}
		return
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		s.err = &TransportError{Reason: "stream", Err: ErrNoBody}
		return
	}
	s.body = resp.Body
}

func (s *httpSource) Read(p []byte) (int, error) {
	s.once.Do(s.connect)
	if s.err != nil {
		return 0, s.err
	}

	n, err := s.body.Read(p)
	if err != nil {
		s.body.Close()
		if s.ctx.Err() != nil && !errors.Is(err, io.EOF) {
			s.err = stream.ErrAborted
		} else {
			s.err = err
		}
		return n, s.err
	}
	return n, nil
}

func (s *httpSource) Abort() {
	s.cancel()
}

var _ stream.Source = (*httpSource)(nil)
