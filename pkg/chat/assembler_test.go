package chat_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/chat"
)

var _ = Describe("Assembler", func() {
	var (
		transcript *chat.Transcript
		assembler  *chat.Assembler
		session    *chat.StreamSession
		notified   int
	)

	BeforeEach(func() {
		transcript = chat.NewTranscript()
		assembler = chat.NewAssembler(transcript, chat.NewClassifier())
		session = chat.NewStreamSession(1)
		notified = 0
		transcript.Observe(func([]chat.Bubble) { notified++ })
	})

	reasoningAt := func(i int) chat.ReasoningBubble {
		b := transcript.Snapshot()[i]
		rb, ok := b.(chat.ReasoningBubble)
		Expect(ok).To(BeTrue(), "bubble %d is %T", i, b)
		return rb
	}

	answerAt := func(i int) chat.AnswerBubble {
		b := transcript.Snapshot()[i]
		ab, ok := b.(chat.AnswerBubble)
		Expect(ok).To(BeTrue(), "bubble %d is %T", i, b)
		return ab
	}

	It("should assemble the documented example into two bubbles", func() {
		for _, token := range []string{"Hel", "lo <thi", "nk>reason1</thi", "nk> world"} {
			assembler.Apply(session, token)
		}
		assembler.Finish(session)

		Expect(transcript.Len()).To(Equal(2))
		Expect(answerAt(0).Content).To(Equal("Hello  world"))
		Expect(reasoningAt(1).Thinking).To(Equal("reason1"))
		Expect(reasoningAt(1).InThinkBlock).To(BeFalse())
	})

	It("should track the inside-block flag chunk by chunk", func() {
		assembler.Apply(session, "<think>step one")
		Expect(reasoningAt(0).InThinkBlock).To(BeTrue())

		assembler.Apply(session, " step two")
		Expect(reasoningAt(0).InThinkBlock).To(BeTrue())
		Expect(reasoningAt(0).Thinking).To(Equal("step one step two"))

		assembler.Apply(session, "</think>")
		Expect(reasoningAt(0).InThinkBlock).To(BeFalse())
		Expect(reasoningAt(0).Thinking).To(Equal("step one step two"))
	})

	It("should clear the flag when the closing chunk also carries reasoning", func() {
		assembler.Apply(session, "<think>a")
		assembler.Apply(session, "b</think>answer")

		Expect(reasoningAt(0).Thinking).To(Equal("ab"))
		Expect(reasoningAt(0).InThinkBlock).To(BeFalse())
		Expect(answerAt(1).Content).To(Equal("answer"))
	})

	It("should clear the flag when the stream ends inside a block", func() {
		assembler.Apply(session, "<think>cut off")
		Expect(reasoningAt(0).InThinkBlock).To(BeTrue())

		Expect(assembler.Finish(session)).To(BeTrue())
		Expect(reasoningAt(0).InThinkBlock).To(BeFalse())
		Expect(session.InThinkBlock).To(BeFalse())
	})

	It("should release held back text when the stream ends", func() {
		assembler.Apply(session, "1 <")
		Expect(answerAt(0).Content).To(Equal("1 "))

		assembler.Finish(session)
		Expect(answerAt(0).Content).To(Equal("1 <"))
	})

	It("should not notify observers when nothing changed", func() {
		Expect(assembler.Apply(session, "")).To(BeFalse())
		Expect(assembler.Apply(session, "[STREAM_COMPLETE]")).To(BeFalse())
		Expect(assembler.Apply(session, "<thi")).To(BeFalse())
		Expect(notified).To(BeZero())

		Expect(assembler.Apply(session, "nk>")).To(BeFalse())
		Expect(assembler.Apply(session, "</think>")).To(BeFalse(), "no reasoning bubble to settle")
		Expect(notified).To(BeZero())
		Expect(transcript.Len()).To(BeZero())

		Expect(assembler.Apply(session, "text")).To(BeTrue())
		Expect(notified).To(Equal(1))
	})

	It("should notify once per token even when both bubbles change", func() {
		assembler.Apply(session, "a<think>b</think>c")

		Expect(notified).To(Equal(1))
		Expect(transcript.Len()).To(Equal(2))
	})

	It("should create a fresh bubble when the active id is stale", func() {
		assembler.Apply(session, "first")
		oldID := session.ActiveAnswerID

		transcript.Clear()
		assembler.Apply(session, "second")

		Expect(transcript.Len()).To(Equal(1))
		Expect(answerAt(0).Content).To(Equal("second"))
		Expect(session.ActiveAnswerID).NotTo(Equal(oldID))
	})

	It("should create a fresh bubble when the active id has the wrong variant", func() {
		assembler.Apply(session, "<think>r</think>")
		session.ActiveAnswerID = session.ActiveReasoningID

		assembler.Apply(session, "answer")

		Expect(transcript.Len()).To(Equal(2))
		Expect(reasoningAt(0).Thinking).To(Equal("r"))
		Expect(answerAt(1).Content).To(Equal("answer"))
	})

	Describe("Fail", func() {
		It("should append to the active answer bubble", func() {
			assembler.Apply(session, "<think>hmm")
			assembler.Apply(session, "</think>partial")

			assembler.Fail(session, errors.New("connection reset"))

			Expect(answerAt(1).Content).To(Equal("partial\nError: connection reset"))
			Expect(reasoningAt(0).Thinking).To(Equal("hmm"))
		})

		It("should append to the reasoning bubble and stop thinking", func() {
			assembler.Apply(session, "<think>hmm")

			assembler.Fail(session, errors.New("connection reset"))

			Expect(transcript.Len()).To(Equal(1))
			Expect(reasoningAt(0).Thinking).To(Equal("hmm\nError: connection reset"))
			Expect(reasoningAt(0).InThinkBlock).To(BeFalse())
			Expect(session.InThinkBlock).To(BeFalse())
		})

		It("should force the reasoning flag off even when the answer takes the error", func() {
			assembler.Apply(session, "answer")
			assembler.Apply(session, "<think>again")
			Expect(reasoningAt(1).InThinkBlock).To(BeTrue())

			assembler.Fail(session, errors.New("timeout"))

			Expect(answerAt(0).Content).To(Equal("answer\nError: timeout"))
			Expect(reasoningAt(1).InThinkBlock).To(BeFalse())
		})

		It("should release a held back answer tail before the error", func() {
			assembler.Apply(session, "x <")
			Expect(answerAt(0).Content).To(Equal("x "))

			assembler.Fail(session, errors.New("connection reset"))

			Expect(answerAt(0).Content).To(Equal("x <\nError: connection reset"))
			Expect(session.Residual).To(BeEmpty())
		})

		It("should release a held back reasoning tail before the error", func() {
			assembler.Apply(session, "<think>hmm</thi")

			assembler.Fail(session, errors.New("timeout"))

			Expect(transcript.Len()).To(Equal(1))
			Expect(reasoningAt(0).Thinking).To(Equal("hmm</thi\nError: timeout"))
			Expect(reasoningAt(0).InThinkBlock).To(BeFalse())
		})

		It("should create an error bubble when nothing is active", func() {
			assembler.Fail(session, errors.New("HTTP error! status: 500"))

			Expect(transcript.Len()).To(Equal(1))
			Expect(answerAt(0).Content).To(Equal("Error: HTTP error! status: 500"))
			Expect(notified).To(Equal(1))
		})
	})
})

var _ = Describe("Transcript", func() {
	It("should keep insertion order and update in place", func() {
		t := chat.NewTranscript()
		u := chat.NewUserBubble("hi")
		a := chat.NewAnswerBubble()
		t.Append(u)
		t.Append(a)

		t.Update(func(tx *chat.Tx) bool {
			b, ok := tx.Get(a.ID)
			Expect(ok).To(BeTrue())
			ab := b.(chat.AnswerBubble)
			ab.Content = "hello"
			tx.Put(ab)
			return true
		})

		snap := t.Snapshot()
		Expect(snap).To(HaveLen(2))
		Expect(snap[0].BubbleID()).To(Equal(u.ID))
		Expect(snap[1].Text()).To(Equal("hello"))
	})

	It("should hand observers an independent copy", func() {
		t := chat.NewTranscript()
		var seen []chat.Bubble
		t.Observe(func(b []chat.Bubble) { seen = b })

		t.Append(chat.NewUserBubble("one"))
		t.Append(chat.NewUserBubble("two"))

		Expect(seen).To(HaveLen(2))
		seen[0] = nil
		Expect(t.Snapshot()[0]).NotTo(BeNil())
	})

	It("should stop notifying after unsubscribe", func() {
		t := chat.NewTranscript()
		calls := 0
		cancel := t.Observe(func([]chat.Bubble) { calls++ })

		t.Append(chat.NewUserBubble("one"))
		cancel()
		t.Append(chat.NewUserBubble("two"))

		Expect(calls).To(Equal(1))
	})

	It("should not notify when clearing an empty transcript", func() {
		t := chat.NewTranscript()
		calls := 0
		t.Observe(func([]chat.Bubble) { calls++ })

		t.Clear()
		Expect(calls).To(BeZero())

		_, ok := t.Get("")
		Expect(ok).To(BeFalse())
	})
})
