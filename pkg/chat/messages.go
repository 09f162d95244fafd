package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ID prefixes name the kind of bubble an identifier was minted for.
const (
	KindUser      = "user"
	KindReasoning = "assistant-thinking"
	KindAnswer    = "assistant"
	KindError     = "assistant-error"
)

// Bubble is one displayable entry of a transcript. The concrete type is the
// discriminator: UserBubble, ReasoningBubble or AnswerBubble.
type Bubble interface {
	BubbleID() string
	BubbleRole() string
	// Text is the visible body: reasoning for a ReasoningBubble, content otherwise.
	Text() string
	IsThinking() bool
}

// UserBubble holds a message typed by the user.
type UserBubble struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ReasoningBubble holds text the model produced inside a think block.
type ReasoningBubble struct {
	ID           string    `json:"id"`
	Thinking     string    `json:"thinking"`
	InThinkBlock bool      `json:"is_in_think_block"`
	Timestamp    time.Time `json:"timestamp"`
}

// AnswerBubble holds the model's final answer text, or an error report.
type AnswerBubble struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewID returns a fresh identifier for a bubble of the given kind.
func NewID(kind string) string {
	return kind + "-" + uuid.NewString()
}

func NewUserBubble(content string) UserBubble {
	return UserBubble{
		ID:        NewID(KindUser),
		Content:   strings.TrimSpace(content),
		Timestamp: time.Now(),
	}
}

func NewReasoningBubble() ReasoningBubble {
	return ReasoningBubble{
		ID:        NewID(KindReasoning),
		Timestamp: time.Now(),
	}
}

func NewAnswerBubble() AnswerBubble {
	return AnswerBubble{
		ID:        NewID(KindAnswer),
		Timestamp: time.Now(),
	}
}

func NewErrorBubble(msg string) AnswerBubble {
	return AnswerBubble{
		ID:        NewID(KindError),
		Content:   "Error: " + msg,
		Timestamp: time.Now(),
	}
}

func (b UserBubble) BubbleID() string   { return b.ID }
func (b UserBubble) BubbleRole() string { return RoleUser }
func (b UserBubble) Text() string       { return b.Content }
func (b UserBubble) IsThinking() bool   { return false }

func (b ReasoningBubble) BubbleID() string   { return b.ID }
func (b ReasoningBubble) BubbleRole() string { return RoleAssistant }
func (b ReasoningBubble) Text() string       { return b.Thinking }
func (b ReasoningBubble) IsThinking() bool   { return true }

func (b AnswerBubble) BubbleID() string   { return b.ID }
func (b AnswerBubble) BubbleRole() string { return RoleAssistant }
func (b AnswerBubble) Text() string       { return b.Content }
func (b AnswerBubble) IsThinking() bool   { return false }

// IsEmpty reports whether the bubble has no visible text yet.
func IsEmpty(b Bubble) bool {
	return strings.TrimSpace(b.Text()) == ""
}

var (
	_ Bubble = UserBubble{}
	_ Bubble = ReasoningBubble{}
	_ Bubble = AnswerBubble{}
)
