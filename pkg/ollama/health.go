package ollama

import (
	"context"
	"fmt"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
)

// HealthStatus represents the health status of Ollama service
type HealthStatus struct {
	Available bool
	Error     error
	Models    []Model
}

// CheckHealth reports whether the server answers. Connection failures are
// reported in the status, not as an error.
func (c *Client) CheckHealth(ctx context.Context) *HealthStatus {
	log := logger.WithComponent("ollama_health")
	log.Debug("Checking Ollama health", "base_url", c.baseURL)

	tags, err := c.Tags(ctx)
	if err != nil {
		log.Warn("Ollama unavailable", "error", err)
		return &HealthStatus{
			Available: false,
			Error:     fmt.Errorf("cannot reach Ollama at %s: %w", c.baseURL, err),
		}
	}

	log.Debug("Ollama health check successful", "model_count", len(tags.Models))
	return &HealthStatus{Available: true, Models: tags.Models}
}

// CheckModel returns an error unless the server is up and has modelName pulled.
func (c *Client) CheckModel(ctx context.Context, modelName string) error {
	health := c.CheckHealth(ctx)
	if !health.Available {
		return health.Error
	}

	for _, model := range health.Models {
		if model.Name == modelName || model.Model == modelName {
			return nil
		}
	}
	return fmt.Errorf("model %s is not available in Ollama", modelName)
}
