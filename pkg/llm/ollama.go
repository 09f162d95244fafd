package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaGenerator streams replies from an Ollama server through LangChain.
type OllamaGenerator struct {
	llm   llms.Model
	model string
}

// NewOllamaGenerator creates a generator for model served at baseURL
func NewOllamaGenerator(baseURL, model string, timeout time.Duration) (*OllamaGenerator, error) {
	opts := []ollama.Option{
		ollama.WithModel(model),
		ollama.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if baseURL != "" {
		opts = append(opts, ollama.WithServerURL(baseURL))
	}

	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return &OllamaGenerator{llm: llm, model: model}, nil
}

// Stream implements Generator
func (g *OllamaGenerator) Stream(ctx context.Context, messages []Message, fn StreamFunc) (string, error) {
	log := logger.WithComponent("ollama_generator")
	log.Debug("Generating", "model", g.model, "message_count", len(messages))

	var full strings.Builder
	streamFunc := func(ctx context.Context, chunk []byte) error {
		full.Write(chunk)
		return fn(ctx, chunk)
	}

	_, err := g.llm.GenerateContent(ctx, toMessageContent(messages), llms.WithStreamingFunc(streamFunc))
	if err != nil {
		return full.String(), fmt.Errorf("ollama stream error: %w", err)
	}
	return full.String(), nil
}

// Name implements Generator
func (g *OllamaGenerator) Name() string {
	return "ollama"
}

// Model implements Generator
func (g *OllamaGenerator) Model() string {
	return g.model
}
