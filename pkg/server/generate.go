package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/chat"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/llm"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/sse"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/stream"
)

const (
	retryMillis = 1000

	// ThinkingDisabled as thinking_mode suppresses the reasoning block
	ThinkingDisabled = "disabled"

	fallbackReply = "I apologize, but I encountered an error while processing your request. Please try again."

	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// SystemPrompt fills {date} in template and adds the current time. With
// noThink the model is told to skip its reasoning block.
func SystemPrompt(template string, now time.Time, noThink bool) string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(template, "{date}", now.Format("2006-01-02")))
	if noThink {
		b.WriteString(" " + llm.NoThinkDirective)
	}
	fmt.Fprintf(&b, "\n\nCurrent date and time: %s\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString("You have up-to-date information and should provide current answers.\n")
	return b.String()
}

// insideThink reports whether text ends inside an unclosed think block.
func insideThink(text string) bool {
	return strings.LastIndex(text, thinkOpen) > strings.LastIndex(text, thinkClose)
}

func (s *Server) generate(c *gin.Context, req ChatRequest) {
	log := s.log.With("conv_id", req.ConvID)
	reqCtx := c.Request.Context()

	userMsgID, err := s.store.SaveMessage(reqCtx, req.ConvID, llm.RoleUser, req.Message, req.UserID)
	if err != nil {
		log.Error("Failed to save user message", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	s.indexMessage(reqCtx, userMsgID, llm.RoleUser, req.Message, req.ConvID)

	history, err := s.store.History(reqCtx, req.ConvID)
	if err != nil {
		log.Error("Failed to load history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	noThink := req.ThinkingMode == ThinkingDisabled
	messages := append([]llm.Message{{
		Role:    llm.RoleSystem,
		Content: SystemPrompt(s.cfg.SystemPrompt, s.now(), noThink),
	}}, history...)

	ctx, cancel := context.WithCancel(reqCtx)
	defer cancel()
	token := s.inflight.Register(req.ConvID, cancel)
	defer s.inflight.Release(req.ConvID, token)

	c.Status(http.StatusOK)
	w := sse.NewWriter(c.Writer)
	if err := w.Retry(retryMillis); err != nil {
		log.Warn("Client went away before streaming", "error", err)
		return
	}

	var writeErr error
	frames := stream.HandlerFunc{
		TokenFunc: func(tok string) {
			if writeErr != nil {
				return
			}
			if writeErr = w.Data(tok); writeErr != nil {
				cancel()
			}
		},
	}
	// reply keeps every token handed to the client; it is what gets saved
	reply := stream.NewWriterHandler(io.Discard)
	sink := stream.NewMultiHandler(frames, reply)

	log.Info("Generating", "provider", s.gen.Name(), "model", s.gen.Model(),
		"history", len(history), "no_think", noThink)
	_, genErr := s.gen.Stream(ctx, messages, stream.ToStreamingFunc(sink))
	if genErr != nil {
		sink.OnError(genErr)
	} else {
		sink.OnEnd()
	}
	full := reply.GetContent()

	switch {
	case genErr == nil:
		_ = w.Complete()
	case ctx.Err() != nil || errors.Is(genErr, context.Canceled):
		log.Info("Generation cancelled", "chars", len(full))
		if insideThink(full) {
			full += thinkClose
			_ = w.Data(thinkClose)
		}
	default:
		log.Error("Error during token generation", "error", genErr)
		_ = w.Fail("Server error during stream generation: " + genErr.Error())
		if insideThink(full) {
			full += thinkClose
			_ = w.Data(thinkClose)
		}
		if strings.TrimSpace(strings.NewReplacer(thinkOpen, "", thinkClose, "").Replace(full)) == "" {
			full += fallbackReply
			_ = w.Data(fallbackReply)
		}
	}

	// the request context may be gone; the reply is still kept
	saveCtx := context.WithoutCancel(reqCtx)
	if full != "" {
		msgID, err := s.store.SaveMessage(saveCtx, req.ConvID, llm.RoleAssistant, full, req.UserID)
		if err != nil {
			log.Error("Failed to save response", "error", err)
		} else {
			s.indexMessage(saveCtx, msgID, llm.RoleAssistant, chat.ExtractResponseContent(full), req.ConvID)
		}
	}

	_ = w.Close()
}

func (s *Server) indexMessage(ctx context.Context, msgID, role, content, convID string) {
	if s.index == nil {
		return
	}
	if err := s.index.Add(ctx, msgID, role, content, convID, s.now()); err != nil {
		s.log.Warn("Failed to index message", "conv_id", convID, "role", role, "error", err)
	}
}
