package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/chat"
)

// Printer streams the growth of assistant bubbles to a writer. It is meant
// to be registered as a transcript observer.
type Printer struct {
	mu           sync.Mutex
	w            io.Writer
	showThinking bool
	printed      map[string]int
	last         string
}

func NewPrinter(w io.Writer, showThinking bool) *Printer {
	return &Printer{
		w:            w,
		showThinking: showThinking,
		printed:      make(map[string]int),
	}
}

// Observe prints whatever text was added since the previous snapshot.
func (p *Printer) Observe(bubbles []chat.Bubble) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, b := range bubbles {
		if _, ok := b.(chat.UserBubble); ok {
			continue
		}
		if b.IsThinking() && !p.showThinking {
			continue
		}

		id := b.BubbleID()
		text := b.Text()
		n := p.printed[id]
		if len(text) <= n {
			continue
		}

		if p.last != id {
			if p.last != "" {
				fmt.Fprintln(p.w)
			}
			if b.IsThinking() {
				fmt.Fprintf(p.w, "%s ", ThinkingLabel)
			}
			p.last = id
		}
		io.WriteString(p.w, text[n:])
		p.printed[id] = len(text)
	}
}

// Reset forgets what was printed, for use after the transcript is cleared.
func (p *Printer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.printed = make(map[string]int)
	p.last = ""
}

// Newline ends the current line if anything was printed since the last call.
func (p *Printer) Newline() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != "" {
		fmt.Fprintln(p.w)
		p.last = ""
	}
}
