package sse

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Writer emits server-sent events on an HTTP response.
type Writer struct {
	w http.ResponseWriter
}

// NewWriter sets the event-stream headers on w.
func NewWriter(w http.ResponseWriter) *Writer {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &Writer{w: w}
}

// Retry advises the client how long to wait before reconnecting.
func (s *Writer) Retry(ms int) error {
	if _, err := fmt.Fprintf(s.w, "retry: %d\n\n", ms); err != nil {
		return err
	}
	s.flush()
	return nil
}

// Data writes one payload as a data frame. A line break cannot travel
// inside a payload, so each line of a multi-line payload gets its own
// data line.
func (s *Writer) Data(payload string) error {
	var b strings.Builder
	for _, line := range SplitLines(payload) {
		b.WriteString(DataPrefix)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return err
	}
	s.flush()
	return nil
}

// SplitLines splits a payload on any line break style.
func SplitLines(payload string) []string {
	payload = strings.ReplaceAll(payload, "\r\n", "\n")
	payload = strings.ReplaceAll(payload, "\r", "\n")
	return strings.Split(payload, "\n")
}

// Complete marks the end of model output.
func (s *Writer) Complete() error {
	return s.Data(CompleteSentinel)
}

// Fail reports a generation error to the client.
func (s *Writer) Fail(msg string) error {
	return s.Data(ErrorPrefix + " " + msg)
}

// Close writes the terminating sentinel.
func (s *Writer) Close() error {
	return s.Data(EndSentinel)
}

func (s *Writer) flush() {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
}
