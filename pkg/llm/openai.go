package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
)

// OpenAIGenerator streams replies from an OpenAI-compatible endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

// Stream implements Generator
func (g *OpenAIGenerator) Stream(ctx context.Context, messages []Message, fn StreamFunc) (string, error) {
	log := logger.WithComponent("openai_generator")
	log.Debug("Generating", "model", g.model, "message_count", len(messages))

	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: convertMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("openai stream error: %w", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return full.String(), nil
		}
		if err != nil {
			return full.String(), fmt.Errorf("openai stream error: %w", err)
		}
		if len(response.Choices) == 0 || response.Choices[0].Delta.Content == "" {
			continue
		}

		chunk := response.Choices[0].Delta.Content
		full.WriteString(chunk)
		if err := fn(ctx, []byte(chunk)); err != nil {
			return full.String(), err
		}
	}
}

// Name implements Generator
func (g *OpenAIGenerator) Name() string {
	return "openai"
}

// Model implements Generator
func (g *OpenAIGenerator) Model() string {
	return g.model
}

// convertMessages skips empty assistant turns, which some servers reject.
func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		if msg.Content == "" && role == openai.ChatMessageRoleAssistant {
			continue
		}
		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return result
}
