package sse

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	t.Run("sets event-stream headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewWriter(rec)

		assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
		assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
		assert.Equal(t, "no", rec.Header().Get("X-Accel-Buffering"))
	})

	t.Run("writes frames", func(t *testing.T) {
		rec := httptest.NewRecorder()
		w := NewWriter(rec)

		require.NoError(t, w.Retry(1000))
		require.NoError(t, w.Data("Hello"))
		require.NoError(t, w.Complete())
		require.NoError(t, w.Fail("boom"))
		require.NoError(t, w.Close())

		assert.Equal(t, "retry: 1000\n\n"+
			"data: Hello\n\n"+
			"data: [STREAM_COMPLETE]\n\n"+
			"data: [ERROR] boom\n\n"+
			"data: [END]\n\n", rec.Body.String())
		assert.True(t, rec.Flushed)
	})

	t.Run("splits multi-line payloads", func(t *testing.T) {
		rec := httptest.NewRecorder()
		w := NewWriter(rec)

		require.NoError(t, w.Data("a\r\nb\nc"))
		assert.Equal(t, "data: a\ndata: b\ndata: c\n\n", rec.Body.String())
	})
}

func TestWriterReaderRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewWriter(rec)
	for _, tok := range []string{"<think>", "plan", "</think>", "Hi", " there"} {
		require.NoError(t, w.Data(tok))
	}
	require.NoError(t, w.Complete())
	require.NoError(t, w.Close())

	r := NewReader(strings.NewReader(rec.Body.String()))
	var got []string
	for {
		line, err := r.Next()
		if errors.Is(err, io.EOF) {
			t.Fatal("stream ended without the end sentinel")
		}
		require.NoError(t, err)

		ev := Decode(line)
		if ev.Kind == EventEnd {
			break
		}
		if ev.Kind == EventData {
			got = append(got, ev.Data)
		}
	}
	assert.Equal(t, []string{"<think>", "plan", "</think>", "Hi", " there", CompleteSentinel}, got)
}
