package chat

import (
	"strings"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
)

const (
	OpenMarker  = "<think>"
	CloseMarker = "</think>"
)

// DefaultDiscard lists answer segments that are protocol noise rather than
// model output.
var DefaultDiscard = []string{"[STREAM_COMPLETE]", "[END]"}

// Classification is what one token contributed to each sub-stream.
type Classification struct {
	Reasoning string
	Answer    string
	// BlockClosed is set when a close marker was consumed.
	BlockClosed bool
	// InBlock is the session state after the token.
	InBlock bool
}

// Empty reports whether the token changed nothing visible.
func (c Classification) Empty() bool {
	return c.Reasoning == "" && c.Answer == "" && !c.BlockClosed
}

// Classifier splits a token stream into reasoning and answer text. All of
// its state lives on the StreamSession, so one Classifier serves any number
// of sessions.
type Classifier struct {
	open    string
	close   string
	discard []string
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithMarkers replaces the think block markers.
func WithMarkers(open, close string) ClassifierOption {
	return func(c *Classifier) {
		c.open = open
		c.close = close
	}
}

// WithDiscard replaces the set of discarded answer segments.
func WithDiscard(sentinels ...string) ClassifierOption {
	return func(c *Classifier) {
		c.discard = sentinels
	}
}

func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		open:    OpenMarker,
		close:   CloseMarker,
		discard: DefaultDiscard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify consumes one token. A tail that could be the beginning of the
// marker being searched for is kept in the session residual and examined
// again with the next token, so the result does not depend on where the
// stream was cut into tokens.
func (c *Classifier) Classify(s *StreamSession, token string) Classification {
	// a sentinel token outside a block is dropped on its own; joined to a
	// held back tail it would no longer match
	if !s.InThinkBlock && c.discarded(token) {
		var answer strings.Builder
		c.writeAnswer(&answer, s.Residual)
		s.Residual = ""
		return Classification{Answer: answer.String(), InBlock: false}
	}

	text := s.Residual + token
	s.Residual = ""

	var reasoning, answer strings.Builder
	var closed bool

	for text != "" {
		if s.InThinkBlock {
			if i := strings.Index(text, c.close); i >= 0 {
				reasoning.WriteString(text[:i])
				text = text[i+len(c.close):]
				s.InThinkBlock = false
				closed = true
				continue
			}
			keep := partialSuffix(text, c.close)
			reasoning.WriteString(text[:len(text)-keep])
			s.Residual = text[len(text)-keep:]
			break
		}

		if i := strings.Index(text, c.open); i >= 0 {
			c.writeAnswer(&answer, text[:i])
			text = text[i+len(c.open):]
			s.InThinkBlock = true
			continue
		}
		keep := partialSuffix(text, c.open)
		c.writeAnswer(&answer, text[:len(text)-keep])
		s.Residual = text[len(text)-keep:]
		break
	}

	out := Classification{
		Reasoning:   reasoning.String(),
		Answer:      answer.String(),
		BlockClosed: closed,
		InBlock:     s.InThinkBlock,
	}

	logger.WithComponent("classifier").Debug("classified token",
		"epoch", s.Epoch,
		"token_length", len(token),
		"reasoning", len(out.Reasoning),
		"answer", len(out.Answer),
		"in_block", out.InBlock,
		"residual", len(s.Residual))

	return out
}

// Flush releases whatever the session is holding back. It is called once
// the stream has ended and no more tokens can complete a marker.
func (c *Classifier) Flush(s *StreamSession) Classification {
	text := s.Residual
	s.Residual = ""

	out := Classification{InBlock: s.InThinkBlock}
	if text == "" {
		return out
	}
	if s.InThinkBlock {
		out.Reasoning = text
		return out
	}

	var answer strings.Builder
	c.writeAnswer(&answer, text)
	out.Answer = answer.String()
	return out
}

func (c *Classifier) writeAnswer(b *strings.Builder, segment string) {
	if segment == "" {
		return
	}
	if c.discarded(segment) {
		return
	}
	b.WriteString(segment)
}

func (c *Classifier) discarded(segment string) bool {
	trimmed := strings.TrimSpace(segment)
	for _, d := range c.discard {
		if trimmed == d {
			return true
		}
	}
	return false
}

// partialSuffix returns the length of the longest proper prefix of marker
// that text ends with.
func partialSuffix(text, marker string) int {
	n := len(marker) - 1
	if len(text) < n {
		n = len(text)
	}
	for k := n; k > 0; k-- {
		if strings.HasSuffix(text, marker[:k]) {
			return k
		}
	}
	return 0
}
