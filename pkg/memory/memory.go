package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/chat"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/llm"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
	"github.com/tmc/langchaingo/llms"
	lcmemory "github.com/tmc/langchaingo/memory"
)

type conversation struct {
	history *lcmemory.ChatMessageHistory
	entries []Entry
	summary Summary
}

// Memory keeps conversations in process. Message text lives in a LangChain
// chat history per conversation; ids and timestamps ride alongside.
type Memory struct {
	conversations map[string]*conversation
	windowSize    int
	now           func() time.Time
	mu            sync.RWMutex
}

// Option configures a Memory
type Option func(*Memory)

// WithWindowSize limits History to the last n messages. Zero keeps all.
func WithWindowSize(n int) Option {
	return func(m *Memory) {
		m.windowSize = n
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

func New(opts ...Option) *Memory {
	m := &Memory{
		conversations: make(map[string]*conversation),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SaveMessage implements Store
func (m *Memory) SaveMessage(ctx context.Context, convID, role, content, userID string) (string, error) {
	if convID == "" {
		return "", fmt.Errorf("save message: empty conversation id")
	}
	if userID == "" {
		userID = AnonymousUser
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[convID]
	if !ok {
		conv = &conversation{
			history: lcmemory.NewChatMessageHistory(),
			summary: Summary{ID: convID},
		}
		m.conversations[convID] = conv
	}

	var err error
	switch role {
	case llm.RoleUser:
		err = conv.history.AddUserMessage(ctx, content)
	case llm.RoleAssistant:
		err = conv.history.AddAIMessage(ctx, content)
	case llm.RoleSystem:
		err = conv.history.AddMessage(ctx, llms.SystemChatMessage{Content: content})
	default:
		return "", fmt.Errorf("save message: unknown role %q", role)
	}
	if err != nil {
		return "", fmt.Errorf("save message: %w", err)
	}

	now := m.now()
	entry := Entry{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: now,
	}
	conv.entries = append(conv.entries, entry)
	conv.summary.UserID = userID
	conv.summary.UpdatedAt = now
	conv.summary.MessageCount++

	logger.WithComponent("memory").Debug("Saved message",
		"conv_id", convID, "role", role, "message_count", conv.summary.MessageCount)
	return entry.ID, nil
}

// Conversation implements Store
func (m *Memory) Conversation(ctx context.Context, convID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, ok := m.conversations[convID]
	if !ok {
		return []Entry{}, nil
	}
	out := make([]Entry, len(conv.entries))
	copy(out, conv.entries)
	return out, nil
}

// History implements Store
func (m *Memory) History(ctx context.Context, convID string) ([]llm.Message, error) {
	m.mu.RLock()
	conv, ok := m.conversations[convID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	chatMessages, err := conv.history.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messages := make([]llm.Message, 0, len(chatMessages))
	for _, msg := range chatMessages {
		switch msg.GetType() {
		case llms.ChatMessageTypeHuman:
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: msg.GetContent()})
		case llms.ChatMessageTypeAI:
			content := chat.ExtractResponseContent(msg.GetContent())
			if content == "" {
				continue
			}
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: content})
		case llms.ChatMessageTypeSystem:
			messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: msg.GetContent()})
		default:
			continue
		}
	}

	if m.windowSize > 0 && len(messages) > m.windowSize {
		messages = messages[len(messages)-m.windowSize:]
	}
	return messages, nil
}

// Clear implements Store. Clearing an unknown conversation is a no-op.
func (m *Memory) Clear(ctx context.Context, convID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[convID]
	if !ok {
		return nil
	}
	if err := conv.history.Clear(ctx); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	delete(m.conversations, convID)
	return nil
}

// List implements Store
func (m *Memory) List(ctx context.Context, userID string, limit int) ([]Summary, error) {
	if userID == "" {
		userID = AnonymousUser
	}

	m.mu.RLock()
	out := make([]Summary, 0)
	for _, conv := range m.conversations {
		if conv.summary.UserID == userID {
			out = append(out, conv.summary)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
