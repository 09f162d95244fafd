package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type events struct {
	mu     sync.Mutex
	tokens []string
	errs   []error
	ends   int
}

func (e *events) handler() stream.Handler {
	return stream.HandlerFunc{
		TokenFunc: func(token string) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.tokens = append(e.tokens, token)
		},
		ErrorFunc: func(err error) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.errs = append(e.errs, err)
		},
		EndFunc: func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.ends++
		},
	}
}

func wait(t *testing.T, s *stream.Stream) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not finish")
	}
}

func TestCreateConversation(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/conversation", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"conv_id": "abc-123"}`)
		}))
		defer server.Close()

		id, err := NewClient(server.URL + "/").CreateConversation(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "abc-123", id)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "database down", http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := NewClient(server.URL).CreateConversation(context.Background())
		require.Error(t, err)

		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
		assert.Equal(t, "database down", netErr.Body)
		assert.Equal(t, "failed to create conversation: 500 - database down", err.Error())
	})

	t.Run("missing id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}))
		defer server.Close()

		_, err := NewClient(server.URL).CreateConversation(context.Background())
		var netErr *NetworkError
		assert.True(t, errors.As(err, &netErr))
	})

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		addr := server.URL
		server.Close()

		_, err := NewClient(addr).CreateConversation(context.Background())
		var netErr *NetworkError
		require.True(t, errors.As(err, &netErr))
		assert.NotNil(t, netErr.Err)
	})
}

func TestClearConversation(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.Path
		if r.URL.Path == "/conversation/missing" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	require.NoError(t, client.ClearConversation(context.Background(), "abc"))
	assert.Equal(t, "/conversation/abc", gotPath)

	err := client.ClearConversation(context.Background(), "missing")
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusNotFound, netErr.StatusCode)
}

func TestStreamURL(t *testing.T) {
	client := NewClient("http://localhost:8000")

	t.Run("plain", func(t *testing.T) {
		u, err := url.Parse(client.StreamURL("id 1", "hello & bye"))
		require.NoError(t, err)
		assert.Equal(t, "/chat_stream", u.Path)
		assert.Equal(t, "id 1", u.Query().Get("conv_id"))
		assert.Equal(t, "hello & bye", u.Query().Get("message"))
		assert.False(t, u.Query().Has("thinking_mode"))
	})

	t.Run("no think", func(t *testing.T) {
		u, err := url.Parse(client.StreamURL("id", "quick answer /no_think"))
		require.NoError(t, err)
		assert.Equal(t, "quick answer", u.Query().Get("message"))
		assert.Equal(t, "disabled", u.Query().Get("thinking_mode"))
	})
}

func TestOpenStream(t *testing.T) {
	t.Run("tokens then end", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
			assert.Equal(t, "hi", r.URL.Query().Get("message"))
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "retry: 1000\n\n")
			fmt.Fprint(w, "data: Hel\n\ndata: lo\n\n")
			fmt.Fprint(w, "data: [STREAM_COMPLETE]\n\ndata: [END]\n\n")
		}))
		defer server.Close()

		ev := &events{}
		s := NewClient(server.URL).OpenStream(context.Background(), "c1", "hi", ev.handler())
		wait(t, s)

		assert.Equal(t, []string{"Hel", "lo", "[STREAM_COMPLETE]"}, ev.tokens)
		assert.Empty(t, ev.errs)
		assert.Equal(t, 1, ev.ends)
	})

	t.Run("http error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		ev := &events{}
		s := NewClient(server.URL).OpenStream(context.Background(), "c1", "hi", ev.handler())
		wait(t, s)

		require.Len(t, ev.errs, 1)
		var tErr *TransportError
		require.True(t, errors.As(ev.errs[0], &tErr))
		assert.Equal(t, http.StatusServiceUnavailable, tErr.StatusCode)
		assert.Equal(t, "HTTP error! status: 503", tErr.Error())
		assert.Zero(t, ev.ends)
	})

	t.Run("close mid stream", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "data: first\n\n")
			w.(http.Flusher).Flush()
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer server.Close()
		defer close(release)

		ev := &events{}
		first := make(chan struct{})
		h := stream.NewMultiHandler(ev.handler(), stream.HandlerFunc{TokenFunc: func(string) { close(first) }})
		s := NewClient(server.URL).OpenStream(context.Background(), "c1", "hi", h)

		<-first
		s.Close()
		wait(t, s)

		assert.Equal(t, []string{"first"}, ev.tokens)
		assert.Empty(t, ev.errs)
		assert.Zero(t, ev.ends)
	})

	t.Run("silence ends the stream", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "data: partial\n\n")
			w.(http.Flusher).Flush()
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer server.Close()
		defer close(release)

		ev := &events{}
		client := NewClient(server.URL, WithStreamTimeout(100*time.Millisecond))
		s := client.OpenStream(context.Background(), "c1", "hi", ev.handler())
		wait(t, s)

		assert.Equal(t, []string{"partial"}, ev.tokens)
		assert.Empty(t, ev.errs)
		assert.Equal(t, 1, ev.ends)
	})
}
