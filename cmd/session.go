package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/controllers"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/render"
)

const helpText = `Commands:
  /new      start a new conversation
  /clear    clear the history of this conversation
  /history  show the conversation so far
  /exit     quit
Add /no_think to a message to skip the reasoning step.`

// session is the interactive loop: read a line, stream the reply, repeat.
type session struct {
	cc      *controllers.ChatController
	term    *render.Terminal
	printer *render.Printer
	in      io.Reader
	out     io.Writer
}

func newSession(cc *controllers.ChatController, term *render.Terminal, in io.Reader, out io.Writer, showThinking bool) *session {
	s := &session{
		cc:      cc,
		term:    term,
		printer: render.NewPrinter(out, showThinking),
		in:      in,
		out:     out,
	}
	cc.Transcript().Observe(s.printer.Observe)
	return s
}

// once sends a single message and waits for the reply.
func (s *session) once(ctx context.Context, text string) error {
	_, err := s.handle(ctx, text)
	return err
}

func (s *session) run(ctx context.Context) error {
	fmt.Fprintf(s.out, "Conversation %s. Type /help for commands.\n", s.cc.ConversationID())

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(s.out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				return nil
			}
			quit, err := s.handle(ctx, line)
			if err != nil {
				fmt.Fprintln(s.out, s.term.Banner(err.Error()))
			}
			if quit {
				return nil
			}
		}
	}
}

// handle runs one input line. It reports whether the loop should end.
func (s *session) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false, nil
	case "/exit", "/quit":
		return true, nil
	case "/help":
		fmt.Fprintln(s.out, helpText)
		return false, nil
	case "/history":
		fmt.Fprintln(s.out, s.term.RenderTranscript(s.cc.GetHistory()))
		return false, nil
	case "/new":
		if err := s.cc.NewConversation(ctx); err != nil {
			return false, err
		}
		s.printer.Reset()
		fmt.Fprintf(s.out, "Started conversation %s\n", s.cc.ConversationID())
		return false, nil
	case "/clear":
		if err := s.cc.Clear(ctx); err != nil {
			return false, err
		}
		s.printer.Reset()
		fmt.Fprintln(s.out, "Conversation cleared")
		return false, nil
	}

	done, err := s.cc.Send(ctx, line)
	if err != nil {
		return false, err
	}
	select {
	case <-done:
	case <-ctx.Done():
		s.cc.Stop()
	}
	s.printer.Newline()

	if banner := s.cc.Banner(); banner != "" {
		fmt.Fprintln(s.out, s.term.Banner(banner))
		s.cc.DismissBanner()
	}
	return false, nil
}
