package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/chat"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
)

const (
	ThinkingLabel = "Thinking..."
	ThoughtsLabel = "Thoughts:"
	Placeholder   = "..."
)

// TerminalOption configures a Terminal.
type TerminalOption func(*terminalOptions)

type terminalOptions struct {
	glamourStyle string
	showThinking bool
}

// WithGlamourStyle selects the glamour style, "notty" for plain output.
func WithGlamourStyle(style string) TerminalOption {
	return func(o *terminalOptions) {
		o.glamourStyle = style
	}
}

// WithThinking controls whether reasoning bubbles are shown.
func WithThinking(show bool) TerminalOption {
	return func(o *terminalOptions) {
		o.showThinking = show
	}
}

// Terminal renders transcript bubbles for a terminal.
type Terminal struct {
	width        int
	showThinking bool
	markdown     *glamour.TermRenderer

	userStyle     lipgloss.Style
	thinkingStyle lipgloss.Style
	answerStyle   lipgloss.Style
	errorStyle    lipgloss.Style
	labelStyle    lipgloss.Style
	bannerStyle   lipgloss.Style
}

func NewTerminal(width int, opts ...TerminalOption) (*Terminal, error) {
	o := terminalOptions{glamourStyle: "dark", showThinking: true}
	for _, opt := range opts {
		opt(&o)
	}
	if width < 20 {
		width = 80
	}

	md, err := glamour.NewTermRenderer(
		glamour.WithStylePath(o.glamourStyle),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return nil, err
	}

	return &Terminal{
		width:        width,
		showThinking: o.showThinking,
		markdown:     md,

		userStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5F87FF")).
			Padding(0, 1),

		// subtle box with dim colors
		thinkingStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#555555")).
			Padding(0, 1).
			Foreground(lipgloss.Color("#888888")).
			Italic(true),

		answerStyle: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#98FB98")).
			Padding(0, 1),

		errorStyle: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#FF6347")).
			Foreground(lipgloss.Color("#FF6347")).
			Padding(0, 1),

		labelStyle: lipgloss.NewStyle().Bold(true),

		bannerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#AF0000")).
			Padding(0, 1),
	}, nil
}

// RenderBubble draws one bubble. Hidden reasoning renders as "".
func (t *Terminal) RenderBubble(b chat.Bubble) string {
	inner := t.width - 4
	switch v := b.(type) {
	case chat.UserBubble:
		return t.userStyle.Width(inner).Render(t.labelStyle.Render("You") + "\n" + v.Content)

	case chat.ReasoningBubble:
		if !t.showThinking {
			return ""
		}
		label := ThoughtsLabel
		if v.InThinkBlock {
			label = ThinkingLabel
		}
		return t.thinkingStyle.Width(inner).Render(t.labelStyle.Render(label) + "\n" + strings.TrimSpace(v.Thinking))

	case chat.AnswerBubble:
		if strings.HasPrefix(v.ID, chat.KindError+"-") {
			return t.errorStyle.Width(inner).Render(v.Content)
		}
		body := Placeholder
		if !chat.IsEmpty(v) {
			body = t.Markdown(v.Content)
		}
		return t.answerStyle.Width(inner).Render(body)
	}
	return b.Text()
}

// RenderTranscript draws bubbles top to bottom.
func (t *Terminal) RenderTranscript(bubbles []chat.Bubble) string {
	parts := make([]string, 0, len(bubbles))
	for _, b := range bubbles {
		if s := t.RenderBubble(b); s != "" {
			parts = append(parts, s)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Markdown renders text with glamour, falling back to the raw text.
func (t *Terminal) Markdown(text string) string {
	out, err := t.markdown.Render(text)
	if err != nil {
		logger.WithComponent("terminal").Error("Failed to render markdown with glamour", "error", err)
		return text
	}
	return strings.Trim(out, "\n")
}

// Banner draws a conversation-level error line.
func (t *Terminal) Banner(msg string) string {
	if msg == "" {
		return ""
	}
	return t.bannerStyle.Render(msg)
}
