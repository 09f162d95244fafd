package llm

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamFunc receives generated text as it is produced. Returning an error
// stops generation.
type StreamFunc func(ctx context.Context, chunk []byte) error

// Generator streams a model reply for a conversation.
type Generator interface {
	// Stream generates a reply to messages, handing each chunk to fn, and
	// returns the full reply.
	Stream(ctx context.Context, messages []Message, fn StreamFunc) (string, error)

	// Name returns the provider name
	Name() string

	// Model returns the current model name
	Model() string
}

// toMessageContent converts messages to LangChain's message format.
func toMessageContent(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		var msgType llms.ChatMessageType
		switch msg.Role {
		case RoleUser:
			msgType = llms.ChatMessageTypeHuman
		case RoleAssistant:
			msgType = llms.ChatMessageTypeAI
		case RoleSystem:
			msgType = llms.ChatMessageTypeSystem
		default:
			msgType = llms.ChatMessageTypeGeneric
		}
		out = append(out, llms.TextParts(msgType, msg.Content))
	}
	return out
}
