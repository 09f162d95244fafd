package stream

import "context"

// Handler receives the events of one stream. Calls are serialized and at
// most one of OnError or OnEnd is delivered.
type Handler interface {
	// OnToken is called with each decoded payload.
	OnToken(token string)

	// OnError is called once when the stream fails.
	OnError(err error)

	// OnEnd is called once when the stream ends, explicitly or by timeout.
	OnEnd()
}

// HandlerFunc is a function adapter for Handler interface
type HandlerFunc struct {
	TokenFunc func(token string)
	ErrorFunc func(err error)
	EndFunc   func()
}

// OnToken implements Handler
func (h HandlerFunc) OnToken(token string) {
	if h.TokenFunc != nil {
		h.TokenFunc(token)
	}
}

// OnError implements Handler
func (h HandlerFunc) OnError(err error) {
	if h.ErrorFunc != nil {
		h.ErrorFunc(err)
	}
}

// OnEnd implements Handler
func (h HandlerFunc) OnEnd() {
	if h.EndFunc != nil {
		h.EndFunc()
	}
}

// ToStreamingFunc converts a Handler to LangChain's streaming function signature.
// Generation stops once ctx is cancelled.
func ToStreamingFunc(handler Handler) func(context.Context, []byte) error {
	return func(ctx context.Context, chunk []byte) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			handler.OnToken(string(chunk))
			return nil
		}
	}
}

// Ensure implementations satisfy the interface
var _ Handler = HandlerFunc{}
