package chat

import (
	"regexp"
	"strings"
)

var (
	thinkBlockRegex = regexp.MustCompile(`(?ims)<think(?:ing)?>(.*?)</think(?:ing)?>`)
	// a block left open by a response that was cut off
	openThinkRegex = regexp.MustCompile(`(?ims)<think(?:ing)?>(.*)$`)
)

// ParsedMessage represents a message content that has been parsed for thinking blocks
type ParsedMessage struct {
	ThinkingContent string
	ResponseContent string
	HasThinking     bool
}

// ParseMessageThinking separates think blocks from the rest of a complete
// response. Unlike Classifier it works on whole text, which is what stored
// history needs.
func ParseMessageThinking(content string) ParsedMessage {
	var thinkingParts []string
	collect := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			thinkingParts = append(thinkingParts, s)
		}
	}

	for _, m := range thinkBlockRegex.FindAllStringSubmatch(content, -1) {
		collect(m[1])
	}
	response := thinkBlockRegex.ReplaceAllString(content, "")

	if m := openThinkRegex.FindStringSubmatch(response); m != nil {
		collect(m[1])
		response = openThinkRegex.ReplaceAllString(response, "")
	}

	return ParsedMessage{
		ThinkingContent: strings.Join(thinkingParts, "\n\n"),
		ResponseContent: strings.TrimSpace(response),
		HasThinking:     len(thinkingParts) > 0,
	}
}

// ExtractResponseContent extracts only the response content from a message, removing thinking blocks
func ExtractResponseContent(content string) string {
	return ParseMessageThinking(content).ResponseContent
}
