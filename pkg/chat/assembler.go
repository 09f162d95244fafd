package chat

import (
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
)

// Assembler folds classified tokens into a transcript.
type Assembler struct {
	transcript *Transcript
	classifier *Classifier
	log        *logger.ComponentLogger
}

func NewAssembler(t *Transcript, c *Classifier) *Assembler {
	if c == nil {
		c = NewClassifier()
	}
	return &Assembler{
		transcript: t,
		classifier: c,
		log:        logger.WithComponent("assembler"),
	}
}

// Transcript returns the transcript being assembled.
func (a *Assembler) Transcript() *Transcript {
	return a.transcript
}

// Apply classifies one token and folds it in. It reports whether the
// transcript changed.
func (a *Assembler) Apply(s *StreamSession, token string) bool {
	return a.Fold(s, a.classifier.Classify(s, token))
}

// Fold applies a classification to the session's active bubbles.
func (a *Assembler) Fold(s *StreamSession, c Classification) bool {
	if c.Empty() {
		return false
	}
	return a.transcript.Update(func(tx *Tx) bool {
		return a.fold(tx, s, c)
	})
}

func (a *Assembler) fold(tx *Tx, s *StreamSession, c Classification) bool {
	changed := false

	if c.Reasoning != "" {
		rb, ok := activeReasoning(tx, s)
		if !ok {
			rb = NewReasoningBubble()
			s.ActiveReasoningID = rb.ID
			a.log.Debug("started reasoning bubble", "epoch", s.Epoch, "id", rb.ID)
		}
		rb.Thinking += c.Reasoning
		rb.InThinkBlock = c.InBlock
		tx.Put(rb)
		changed = true
	} else if c.BlockClosed {
		if rb, ok := activeReasoning(tx, s); ok && rb.InThinkBlock {
			rb.InThinkBlock = false
			tx.Put(rb)
			changed = true
		}
	}

	if c.Answer != "" {
		ab, ok := activeAnswer(tx, s)
		if !ok {
			ab = NewAnswerBubble()
			s.ActiveAnswerID = ab.ID
			a.log.Debug("started answer bubble", "epoch", s.Epoch, "id", ab.ID)
		}
		ab.Content += c.Answer
		tx.Put(ab)
		changed = true
	}

	return changed
}

// Finish settles the turn once the stream has ended: held back text is
// released and the reasoning bubble stops thinking.
func (a *Assembler) Finish(s *StreamSession) bool {
	c := a.classifier.Flush(s)
	c.InBlock = false
	s.InThinkBlock = false

	return a.transcript.Update(func(tx *Tx) bool {
		changed := a.fold(tx, s, c)
		if rb, ok := activeReasoning(tx, s); ok && rb.InThinkBlock {
			rb.InThinkBlock = false
			tx.Put(rb)
			changed = true
		}
		return changed
	})
}

// Fail records a mid-stream error. Held back text is released first, then
// the message joins the active answer bubble, or the active reasoning
// bubble, or becomes a bubble of its own.
func (a *Assembler) Fail(s *StreamSession, err error) bool {
	msg := err.Error()
	held := a.classifier.Flush(s)
	s.InThinkBlock = false

	a.log.Warn("stream failed", "epoch", s.Epoch, "error", msg)

	return a.transcript.Update(func(tx *Tx) bool {
		a.fold(tx, s, held)
		rb, hasReasoning := activeReasoning(tx, s)

		if ab, ok := activeAnswer(tx, s); ok {
			ab.Content += "\nError: " + msg
			tx.Put(ab)
		} else if hasReasoning {
			rb.Thinking += "\nError: " + msg
		} else {
			eb := NewErrorBubble(msg)
			s.ActiveAnswerID = eb.ID
			tx.Put(eb)
		}

		if hasReasoning {
			rb.InThinkBlock = false
			tx.Put(rb)
		}
		return true
	})
}

func activeReasoning(tx *Tx, s *StreamSession) (ReasoningBubble, bool) {
	b, ok := tx.Get(s.ActiveReasoningID)
	if !ok {
		return ReasoningBubble{}, false
	}
	rb, ok := b.(ReasoningBubble)
	return rb, ok
}

func activeAnswer(tx *Tx, s *StreamSession) (AnswerBubble, bool) {
	b, ok := tx.Get(s.ActiveAnswerID)
	if !ok {
		return AnswerBubble{}, false
	}
	ab, ok := b.(AnswerBubble)
	return ab, ok
}
