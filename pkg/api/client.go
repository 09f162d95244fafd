package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/stream"
)

// NoThinkCommand in a message turns off reasoning for that turn.
const NoThinkCommand = "/no_think"

// ConversationResponse is the body of POST /conversation.
type ConversationResponse struct {
	ConvID string `json:"conv_id"`
}

// Client talks to the chat backend.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	streamClient  *http.Client
	streamTimeout time.Duration
	log           *logger.ComponentLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the client used for conversation requests and streams.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
		c.streamClient = hc
	}
}

// WithStreamTimeout sets the liveness window for opened streams.
func WithStreamTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.streamTimeout = d
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// streams are bounded by the liveness monitor, not a client timeout
		streamClient:  &http.Client{},
		streamTimeout: stream.DefaultTimeout,
		log:           logger.WithComponent("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateConversation asks the backend for a new conversation id.
func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	const op = "create conversation"
	c.log.Debug("Creating conversation", "url", c.baseURL+"/conversation")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/conversation", nil)
	if err != nil {
		return "", &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(op, resp); err != nil {
		return "", err
	}

	var conv ConversationResponse
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return "", &NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if conv.ConvID == "" {
		return "", &NetworkError{Op: op, StatusCode: resp.StatusCode, Body: "missing conv_id"}
	}

	c.log.Debug("Created conversation", "conv_id", conv.ConvID)
	return conv.ConvID, nil
}

// ClearConversation deletes the backend history of id.
func (c *Client) ClearConversation(ctx context.Context, id string) error {
	const op = "clear conversation"
	endpoint := c.baseURL + "/conversation/" + url.PathEscape(id)
	c.log.Debug("Clearing conversation", "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	return checkStatus(op, resp)
}

// StreamURL builds the chat stream request for a message.
func (c *Client) StreamURL(id, message string) string {
	cleaned, noThink := StripNoThink(message)

	q := url.Values{}
	q.Set("conv_id", id)
	q.Set("message", cleaned)
	if noThink {
		q.Set("thinking_mode", "disabled")
	}
	return c.baseURL + "/chat_stream?" + q.Encode()
}

// StripNoThink removes the first /no_think command from message.
func StripNoThink(message string) (string, bool) {
	if !strings.Contains(message, NoThinkCommand) {
		return message, false
	}
	return strings.TrimSpace(strings.Replace(message, NoThinkCommand, "", 1)), true
}

// OpenStream starts streaming the reply to message. Failures to connect are
// delivered to h as a *TransportError.
func (c *Client) OpenStream(ctx context.Context, id, message string, h stream.Handler) *stream.Stream {
	endpoint := c.StreamURL(id, message)
	c.log.Debug("Opening stream", "url", endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return stream.Open(failedSource{err: &TransportError{Reason: "bad request", Err: err}}, h,
			stream.WithTimeout(c.streamTimeout))
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	src := newHTTPSource(ctx, c.streamClient, req)
	return stream.Open(src, h, stream.WithTimeout(c.streamTimeout))
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &NetworkError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// failedSource reports err on every read.
type failedSource struct {
	err error
}

func (f failedSource) Read([]byte) (int, error) { return 0, f.err }
func (f failedSource) Abort()                   {}
