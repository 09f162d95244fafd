package controllers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/chat"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/store"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/stream"
)

const (
	BannerCreateFailed = "Failed to create a new conversation. Please try again."
	BannerClearFailed  = "Failed to clear conversation. Please try again."
)

var (
	ErrEmptyMessage   = errors.New("message content cannot be empty")
	ErrNoConversation = errors.New("conversation ID is not initialized")
)

// Backend is the chat server as seen by the controller.
type Backend interface {
	CreateConversation(ctx context.Context) (string, error)
	ClearConversation(ctx context.Context, id string) error
	OpenStream(ctx context.Context, id, text string, h stream.Handler) *stream.Stream
}

// ChatController owns the transcript and runs one streamed turn at a time.
// Starting a turn abandons the previous one; callbacks from an abandoned
// turn are ignored.
type ChatController struct {
	backend    Backend
	handles    store.HandleStore
	transcript *chat.Transcript
	assembler  *chat.Assembler
	log        *logger.ComponentLogger

	mu      sync.Mutex
	convID  string
	epoch   uint64
	session *chat.StreamSession
	active  *stream.Stream
	banner  string
}

func NewChatController(backend Backend, handles store.HandleStore) *ChatController {
	if handles == nil {
		handles = store.NewMemoryHandleStore("")
	}
	transcript := chat.NewTranscript()
	return &ChatController{
		backend:    backend,
		handles:    handles,
		transcript: transcript,
		assembler:  chat.NewAssembler(transcript, chat.NewClassifier()),
		log:        logger.WithComponent("chat_controller"),
	}
}

// Init resumes the stored conversation or creates a new one.
func (cc *ChatController) Init(ctx context.Context) error {
	id, err := cc.handles.Get()
	if err != nil {
		cc.log.Warn("Failed to read stored conversation", "error", err)
	}
	if id != "" {
		cc.log.Debug("Resuming conversation", "conv_id", id)
		cc.mu.Lock()
		cc.convID = id
		cc.mu.Unlock()
		return nil
	}
	return cc.NewConversation(ctx)
}

// Send appends the user message and starts streaming the reply. The returned
// channel is closed once the reply stream has stopped.
func (cc *ChatController) Send(ctx context.Context, text string) (<-chan struct{}, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	cc.mu.Lock()
	prev, prevSession := cc.active, cc.session
	cc.epoch++
	epoch := cc.epoch
	cc.session = chat.NewStreamSession(epoch)
	cc.active = nil
	if prevSession != nil {
		cc.assembler.Finish(prevSession)
	}
	cc.transcript.Append(chat.NewUserBubble(text))
	convID := cc.convID
	if convID == "" {
		cc.banner = fmt.Sprintf("Failed to send message: %v", ErrNoConversation)
		eb := chat.NewErrorBubble(ErrNoConversation.Error())
		eb.Content = fmt.Sprintf("Error sending message: %v", ErrNoConversation)
		cc.transcript.Append(eb)
		cc.mu.Unlock()
		if prev != nil {
			prev.Close()
		}
		return nil, ErrNoConversation
	}
	cc.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	cc.log.Debug("Starting turn", "conv_id", convID, "epoch", epoch)
	s := cc.backend.OpenStream(ctx, convID, text, cc.handlerFor(epoch))

	cc.mu.Lock()
	current := cc.epoch == epoch
	if current {
		cc.active = s
	}
	cc.mu.Unlock()

	if !current {
		s.Close()
	}
	return s.Done(), nil
}

func (cc *ChatController) handlerFor(epoch uint64) stream.Handler {
	return stream.HandlerFunc{
		TokenFunc: func(token string) {
			cc.withSession(epoch, func(s *chat.StreamSession) {
				cc.assembler.Apply(s, token)
			})
		},
		ErrorFunc: func(err error) {
			cc.withSession(epoch, func(s *chat.StreamSession) {
				cc.assembler.Fail(s, err)
			})
		},
		EndFunc: func() {
			cc.withSession(epoch, func(s *chat.StreamSession) {
				cc.log.Debug("Stream ended", "epoch", epoch)
				cc.assembler.Finish(s)
			})
		},
	}
}

// withSession runs fn with the session of epoch if that turn is still current.
func (cc *ChatController) withSession(epoch uint64, fn func(*chat.StreamSession)) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if epoch != cc.epoch || cc.session == nil {
		cc.log.Debug("Dropping callback from stale turn", "epoch", epoch, "current", cc.epoch)
		return
	}
	fn(cc.session)
}

// NewConversation starts a fresh conversation and empties the transcript.
func (cc *ChatController) NewConversation(ctx context.Context) error {
	cc.Stop()

	id, err := cc.backend.CreateConversation(ctx)
	if err != nil {
		cc.log.Error("Error initializing conversation", "error", err)
		cc.setBanner(BannerCreateFailed)
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	if err := cc.handles.Set(id); err != nil {
		cc.log.Warn("Failed to store conversation", "conv_id", id, "error", err)
	}

	cc.mu.Lock()
	cc.convID = id
	cc.banner = ""
	cc.mu.Unlock()

	cc.transcript.Clear()
	cc.log.Info("Created conversation", "conv_id", id)
	return nil
}

// Clear deletes the conversation history on the backend and empties the
// transcript. The conversation id is kept.
func (cc *ChatController) Clear(ctx context.Context) error {
	cc.mu.Lock()
	id := cc.convID
	cc.mu.Unlock()
	if id == "" {
		return nil
	}

	cc.Stop()

	if err := cc.backend.ClearConversation(ctx, id); err != nil {
		cc.log.Error("Error clearing conversation", "conv_id", id, "error", err)
		cc.setBanner(BannerClearFailed)
		return fmt.Errorf("failed to clear conversation: %w", err)
	}

	cc.mu.Lock()
	cc.banner = ""
	cc.mu.Unlock()

	cc.transcript.Clear()
	return nil
}

// Stop abandons the current turn, keeping whatever it produced.
func (cc *ChatController) Stop() {
	cc.mu.Lock()
	prev := cc.active
	if cc.session != nil {
		cc.assembler.Finish(cc.session)
	}
	cc.epoch++
	cc.session = nil
	cc.active = nil
	cc.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
}

// Streaming reports whether a turn is still receiving.
func (cc *ChatController) Streaming() bool {
	cc.mu.Lock()
	active := cc.active
	cc.mu.Unlock()
	if active == nil {
		return false
	}
	select {
	case <-active.Done():
		return false
	default:
		return true
	}
}

func (cc *ChatController) ConversationID() string {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.convID
}

// Banner returns the last conversation-level error, or "".
func (cc *ChatController) Banner() string {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.banner
}

// DismissBanner clears the banner.
func (cc *ChatController) DismissBanner() {
	cc.setBanner("")
}

// Transcript returns the live transcript. Observers are notified while the
// controller holds its lock and must not call back into it.
func (cc *ChatController) Transcript() *chat.Transcript {
	return cc.transcript
}

// GetHistory returns a snapshot of the transcript.
func (cc *ChatController) GetHistory() []chat.Bubble {
	return cc.transcript.Snapshot()
}

func (cc *ChatController) setBanner(msg string) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.banner = msg
}
