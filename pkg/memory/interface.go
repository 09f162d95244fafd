package memory

import (
	"context"
	"time"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/llm"
)

// AnonymousUser owns conversations saved without a user id.
const AnonymousUser = "anonymous"

// Entry is one stored message
type Entry struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary describes a conversation without its messages
type Summary struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Store defines conversation history storage
type Store interface {
	// SaveMessage appends a message and returns its id
	SaveMessage(ctx context.Context, convID, role, content, userID string) (string, error)

	// Conversation returns the messages of a conversation in order.
	// Unknown conversations are empty, not an error.
	Conversation(ctx context.Context, convID string) ([]Entry, error)

	// History converts a conversation into model input, with think blocks
	// removed from assistant turns.
	History(ctx context.Context, convID string) ([]llm.Message, error)

	// Clear drops every message of a conversation
	Clear(ctx context.Context, convID string) error

	// List returns the user's conversations, most recently updated first
	List(ctx context.Context, userID string, limit int) ([]Summary, error)
}
