package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// NoThinkDirective in the system prompt suppresses the reasoning block.
const NoThinkDirective = "/no_think"

// ReplyFunc produces the reasoning and answer text for the last user message.
type ReplyFunc func(last string) (thinking, answer string)

// ScriptedGenerator produces deterministic replies without a model. It emits
// a think block followed by the answer, one word per chunk.
type ScriptedGenerator struct {
	delay     time.Duration
	reply     ReplyFunc
	failAfter int
	failErr   error
}

// ScriptedOption configures a ScriptedGenerator.
type ScriptedOption func(*ScriptedGenerator)

// WithDelay pauses between chunks.
func WithDelay(d time.Duration) ScriptedOption {
	return func(g *ScriptedGenerator) {
		g.delay = d
	}
}

// WithReply replaces the default echo reply.
func WithReply(fn ReplyFunc) ScriptedOption {
	return func(g *ScriptedGenerator) {
		g.reply = fn
	}
}

// WithFailure makes Stream fail with err after n chunks.
func WithFailure(n int, err error) ScriptedOption {
	return func(g *ScriptedGenerator) {
		g.failAfter = n
		g.failErr = err
	}
}

func NewScriptedGenerator(opts ...ScriptedOption) *ScriptedGenerator {
	g := &ScriptedGenerator{reply: echoReply}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func echoReply(last string) (string, string) {
	return fmt.Sprintf("The user said %q. A short echo will do.", last),
		fmt.Sprintf("You said: %s", last)
}

// Stream implements Generator
func (g *ScriptedGenerator) Stream(ctx context.Context, messages []Message, fn StreamFunc) (string, error) {
	var last string
	noThink := false
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			last = msg.Content
		case RoleSystem:
			noThink = noThink || strings.Contains(msg.Content, NoThinkDirective)
		}
	}

	thinking, answer := g.reply(last)
	var chunks []string
	if !noThink && thinking != "" {
		chunks = append(chunks, "<think>")
		chunks = append(chunks, strings.SplitAfter(thinking, " ")...)
		chunks = append(chunks, "</think>", "\n\n")
	}
	chunks = append(chunks, strings.SplitAfter(answer, " ")...)

	var full strings.Builder
	for i, chunk := range chunks {
		if g.failErr != nil && i == g.failAfter {
			return full.String(), g.failErr
		}
		if g.delay > 0 {
			select {
			case <-ctx.Done():
				return full.String(), ctx.Err()
			case <-time.After(g.delay):
			}
		} else if err := ctx.Err(); err != nil {
			return full.String(), err
		}

		full.WriteString(chunk)
		if err := fn(ctx, []byte(chunk)); err != nil {
			return full.String(), err
		}
	}
	return full.String(), nil
}

// Name implements Generator
func (g *ScriptedGenerator) Name() string {
	return "scripted"
}

// Model implements Generator
func (g *ScriptedGenerator) Model() string {
	return "echo"
}
