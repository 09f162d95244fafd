package sse

import (
	"bytes"
	"io"
	"strings"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
)

const readSize = 4096

// Some backends double-escape line breaks inside payloads. They are
// restored before lines are split.
var unescaper = strings.NewReplacer(`\n`, "\n", `\r`, "\r")

// Reader turns a byte stream into complete text lines. A line split across
// reads is reassembled; a trailing line with no terminator is dropped when
// the stream ends.
type Reader struct {
	src      io.Reader
	buf      []byte
	residual []byte
	// a backslash ending one read may start an escape finished by the next
	carry bool
	lines []string
	err   error
	log   *logger.ComponentLogger
}

// NewReader returns a Reader consuming src.
func NewReader(src io.Reader) *Reader {
	return &Reader{
		src: src,
		buf: make([]byte, readSize),
		log: logger.WithComponent("frame_reader"),
	}
}

// Next returns the next complete line without its terminator. At the end of
// the stream it returns io.EOF; any other read error is returned as is.
func (r *Reader) Next() (string, error) {
	for len(r.lines) == 0 {
		if r.err != nil {
			return "", r.err
		}
		r.fill()
	}

	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

// Residual reports how many bytes are waiting for a line terminator.
func (r *Reader) Residual() int {
	return len(r.residual)
}

func (r *Reader) fill() {
	n, err := r.src.Read(r.buf)
	if n > 0 {
		r.push(r.buf[:n])
	}
	if err == nil {
		return
	}

	if err == io.EOF && len(r.residual) > 0 {
		r.log.Debug("discarding unterminated line at end of stream", "bytes", len(r.residual))
	}
	r.residual = nil
	r.carry = false
	r.err = err
}

func (r *Reader) push(chunk []byte) {
	data := chunk
	if r.carry {
		data = append([]byte{'\\'}, chunk...)
		r.carry = false
	}
	if n := len(data); n > 0 && data[n-1] == '\\' {
		r.carry = true
		data = data[:n-1]
	}

	r.residual = append(r.residual, unescaper.Replace(string(data))...)

	parts := bytes.Split(r.residual, []byte{'\n'})
	for _, part := range parts[:len(parts)-1] {
		r.lines = append(r.lines, string(part))
	}
	r.residual = append([]byte(nil), parts[len(parts)-1]...)

	r.log.Debug("read chunk", "bytes", len(chunk), "lines", len(parts)-1, "residual", len(r.residual))
}
