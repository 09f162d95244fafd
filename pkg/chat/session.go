package chat

// StreamSession is the state of one in-flight assistant turn. The caller
// owns it and passes it to every classify and assemble step.
type StreamSession struct {
	// Epoch identifies the turn; callbacks from an older epoch are stale.
	Epoch uint64

	ActiveReasoningID string
	ActiveAnswerID    string
	InThinkBlock      bool
	// Residual holds text that may be the start of a marker.
	Residual string
}

// NewStreamSession starts a session for the given epoch.
func NewStreamSession(epoch uint64) *StreamSession {
	return &StreamSession{Epoch: epoch}
}

// Reset clears the turn state but keeps the epoch.
func (s *StreamSession) Reset() {
	s.ActiveReasoningID = ""
	s.ActiveAnswerID = ""
	s.InThinkBlock = false
	s.Residual = ""
}

// Idle reports whether the session holds no turn state.
func (s *StreamSession) Idle() bool {
	return s.ActiveReasoningID == "" && s.ActiveAnswerID == "" && !s.InThinkBlock && s.Residual == ""
}
