package chat_test

import (
	"math/rand"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/chat"
)

// feed runs chunks through a fresh session and flushes at the end.
func feed(c *chat.Classifier, chunks ...string) (reasoning, answer string) {
	s := chat.NewStreamSession(1)
	var r, a strings.Builder
	for _, chunk := range chunks {
		out := c.Classify(s, chunk)
		r.WriteString(out.Reasoning)
		a.WriteString(out.Answer)
	}
	out := c.Flush(s)
	r.WriteString(out.Reasoning)
	a.WriteString(out.Answer)
	return r.String(), a.String()
}

// split cuts text at the given byte offsets.
func split(text string, cuts ...int) []string {
	var chunks []string
	prev := 0
	for _, c := range cuts {
		chunks = append(chunks, text[prev:c])
		prev = c
	}
	return append(chunks, text[prev:])
}

// expected computes both sub-streams from the whole text at once.
func expected(text string) (reasoning, answer string) {
	var r, a strings.Builder
	inside := false
	for text != "" {
		marker := chat.OpenMarker
		if inside {
			marker = chat.CloseMarker
		}
		i := strings.Index(text, marker)
		if i < 0 {
			i = len(text)
		}
		if inside {
			r.WriteString(text[:i])
		} else {
			a.WriteString(text[:i])
		}
		if i == len(text) {
			break
		}
		text = text[i+len(marker):]
		inside = !inside
	}
	return r.String(), a.String()
}

var _ = Describe("Classifier", func() {
	var c *chat.Classifier

	BeforeEach(func() {
		c = chat.NewClassifier()
	})

	It("should split the documented example", func() {
		reasoning, answer := feed(c, "Hel", "lo <thi", "nk>reason1</thi", "nk> world")

		Expect(answer).To(Equal("Hello  world"))
		Expect(reasoning).To(Equal("reason1"))
	})

	It("should report state after each chunk", func() {
		s := chat.NewStreamSession(1)

		out := c.Classify(s, "Hel")
		Expect(out).To(Equal(chat.Classification{Answer: "Hel"}))

		out = c.Classify(s, "lo <thi")
		Expect(out.Answer).To(Equal("lo "))
		Expect(s.Residual).To(Equal("<thi"))
		Expect(out.InBlock).To(BeFalse())

		out = c.Classify(s, "nk>reason1</thi")
		Expect(out.Reasoning).To(Equal("reason1"))
		Expect(out.InBlock).To(BeTrue())
		Expect(out.BlockClosed).To(BeFalse())
		Expect(s.Residual).To(Equal("</thi"))

		out = c.Classify(s, "nk> world")
		Expect(out.Reasoning).To(BeEmpty())
		Expect(out.Answer).To(Equal(" world"))
		Expect(out.BlockClosed).To(BeTrue())
		Expect(out.InBlock).To(BeFalse())
		Expect(s.Residual).To(BeEmpty())
	})

	DescribeTable("chunk-boundary invariance",
		func(text string) {
			wantReasoning, wantAnswer := expected(text)

			By("every two-way split")
			for i := 0; i <= len(text); i++ {
				reasoning, answer := feed(c, split(text, i)...)
				Expect(reasoning).To(Equal(wantReasoning), "split at %d", i)
				Expect(answer).To(Equal(wantAnswer), "split at %d", i)
			}

			By("one byte per chunk")
			reasoning, answer := feed(c, strings.Split(text, "")...)
			Expect(reasoning).To(Equal(wantReasoning))
			Expect(answer).To(Equal(wantAnswer))

			By("random splits")
			rng := rand.New(rand.NewSource(42))
			for round := 0; round < 200; round++ {
				var cuts []int
				for i := 1; i < len(text); i++ {
					if rng.Intn(4) == 0 {
						cuts = append(cuts, i)
					}
				}
				reasoning, answer := feed(c, split(text, cuts...)...)
				Expect(reasoning).To(Equal(wantReasoning), "cuts %v", cuts)
				Expect(answer).To(Equal(wantAnswer), "cuts %v", cuts)
			}
		},
		Entry("no blocks", "just an answer, nothing else"),
		Entry("only a block", "<think>only reasoning</think>"),
		Entry("one block", "Hello <think>reason1</think> world"),
		Entry("several blocks", "a<think>b</think>c<think>d</think>e"),
		Entry("angle brackets that are not markers", "x < y <t <thin> a</th <think>p < q </thinker </think>z <"),
		Entry("block left open", "answer <think>never closed"),
		Entry("adjacent blocks", "<think>one</think><think>two</think>"),
	)

	It("should drop the completion sentinel from answer text", func() {
		reasoning, answer := feed(c, "<think>r</think>", "Done.", "[STREAM_COMPLETE]")

		Expect(reasoning).To(Equal("r"))
		Expect(answer).To(Equal("Done."))
	})

	It("should drop a sentinel segment before an opening marker", func() {
		_, answer := feed(c, " [STREAM_COMPLETE] <think>late</think>")
		Expect(answer).To(BeEmpty())
	})

	It("should never emit an isolated end sentinel", func() {
		reasoning, answer := feed(c, "[END]")
		Expect(reasoning).To(BeEmpty())
		Expect(answer).To(BeEmpty())
	})

	It("should drop a sentinel token that follows a held back tail", func() {
		_, answer := feed(c, "answer <", "[STREAM_COMPLETE]")
		Expect(answer).To(Equal("answer <"))

		_, answer = feed(c, "x <th", " [END]\n")
		Expect(answer).To(Equal("x <th"))
	})

	It("should keep a sentinel token inside a block as reasoning", func() {
		reasoning, _ := feed(c, "<think>seen ", "[END]", "</think>")
		Expect(reasoning).To(Equal("seen [END]"))
	})

	It("should keep a sentinel embedded in other text", func() {
		_, answer := feed(c, "done[STREAM_COMPLETE]")
		Expect(answer).To(Equal("done[STREAM_COMPLETE]"))
	})

	It("should release a held back prefix on flush", func() {
		s := chat.NewStreamSession(1)
		out := c.Classify(s, "3 <")
		Expect(out.Answer).To(Equal("3 "))

		out = c.Flush(s)
		Expect(out.Answer).To(Equal("<"))
		Expect(s.Residual).To(BeEmpty())
	})

	It("should match markers case-sensitively", func() {
		reasoning, answer := feed(c, "<THINK>loud</THINK>")
		Expect(reasoning).To(BeEmpty())
		Expect(answer).To(Equal("<THINK>loud</THINK>"))
	})

	It("should accept custom markers and sentinels", func() {
		custom := chat.NewClassifier(chat.WithMarkers("[[", "]]"), chat.WithDiscard("EOF"))
		reasoning, answer := feed(custom, "a[", "[b]", "]c", "EOF")

		Expect(reasoning).To(Equal("b"))
		Expect(answer).To(Equal("ac"))
	})
})
