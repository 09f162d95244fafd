package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/config"
)

// Factory builds a Generator from configuration.
type Factory func(cfg *config.Config) (Generator, error)

// ProviderRegistry maps provider names to generator factories
type ProviderRegistry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty provider registry
func NewRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry knows the scripted, ollama and openai providers.
func DefaultRegistry() *ProviderRegistry {
	r := NewRegistry()
	_ = r.Register("scripted", func(*config.Config) (Generator, error) {
		return NewScriptedGenerator(), nil
	})
	_ = r.Register("ollama", func(cfg *config.Config) (Generator, error) {
		return NewOllamaGenerator(cfg.Ollama.URL, cfg.Ollama.Model, cfg.Ollama.Timeout)
	})
	_ = r.Register("openai", func(cfg *config.Config) (Generator, error) {
		return NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model), nil
	})
	return r
}

// Register adds a provider factory
func (r *ProviderRegistry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Build creates the named provider's generator
func (r *ProviderRegistry) Build(name string, cfg *config.Config) (Generator, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("provider %s not found", name)
	}
	return factory(cfg)
}

// List returns all registered provider names
func (r *ProviderRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromConfig builds the generator for the configured provider.
func FromConfig(cfg *config.Config) (Generator, error) {
	return DefaultRegistry().Build(cfg.GetActiveProvider(), cfg)
}
