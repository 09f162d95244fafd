package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DefaultStreamTimeout is how long a stream may stay silent before it is ended.
const DefaultStreamTimeout = 60 * time.Second

// Config represents the application configuration
type Config struct {
	Client       ClientConfig      `mapstructure:"client"`
	Logging      LoggingConfig     `mapstructure:"logging"`
	Server       ServerConfig      `mapstructure:"server"`
	Provider     string            `mapstructure:"provider"` // scripted, ollama or openai
	ShowThinking bool              `mapstructure:"show_thinking"`
	Ollama       OllamaConfig      `mapstructure:"ollama"`
	OpenAI       OpenAIConfig      `mapstructure:"openai"`
	VectorStore  VectorStoreConfig `mapstructure:"vectorstore"`
}

// ClientConfig holds settings for the streaming chat client
type ClientConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	StreamTimeout    time.Duration `mapstructure:"-"`
	StreamTimeoutStr string        `mapstructure:"stream_timeout"`
	HandleFile       string        `mapstructure:"handle_file"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"` // text or json
}

// ServerConfig holds settings for the development backend
type ServerConfig struct {
	Addr         string   `mapstructure:"addr"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
	SystemPrompt string   `mapstructure:"system_prompt"`

	// HistoryWindow caps the messages sent to the model, 0 sends all
	HistoryWindow int `mapstructure:"history_window"`
}

// OllamaConfig holds Ollama-specific configuration
type OllamaConfig struct {
	URL        string        `mapstructure:"url"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"-"`
	TimeoutStr string        `mapstructure:"timeout"` // For parsing string duration
}

// OpenAIConfig holds OpenAI-compatible endpoint configuration
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // For self-hosted compatible servers
	Model   string `mapstructure:"model"`
}

// VectorStoreConfig holds the message search index configuration
type VectorStoreConfig struct {
	Enabled  bool                      `mapstructure:"enabled"`
	Embedder VectorStoreEmbedderConfig `mapstructure:"embedder"`
}

// VectorStoreEmbedderConfig holds embedder configuration
type VectorStoreEmbedderConfig struct {
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

var (
	// Global config instance
	cfg *Config
)

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.qwen-chat")
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "qwen-chat"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.AutomaticEnv()
	bindEnvironmentVariables()

	// A missing settings file is fine, defaults and env cover everything.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Post-process durations (viper doesn't handle time.Duration directly)
	if err := processDurations(loaded); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	cfg = loaded
	return cfg, nil
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("client.base_url", "http://localhost:8000")
	viper.SetDefault("client.stream_timeout", "60s")
	viper.SetDefault("client.handle_file", "./.qwen-chat/conversation.yaml")

	viper.SetDefault("logging.log_file", "./.qwen-chat/system.log")
	viper.SetDefault("logging.preserve", false)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("server.addr", ":8000")
	viper.SetDefault("server.cors_origins", []string{"*"})
	viper.SetDefault("server.system_prompt", "You are a helpful assistant. Today is {date}.")
	viper.SetDefault("server.history_window", 0)

	viper.SetDefault("provider", "scripted")
	viper.SetDefault("show_thinking", true)

	viper.SetDefault("ollama.url", "http://localhost:11434")
	viper.SetDefault("ollama.model", "qwen3:8b")
	viper.SetDefault("ollama.timeout", "90s")

	viper.SetDefault("openai.api_key", "")
	viper.SetDefault("openai.base_url", "")
	viper.SetDefault("openai.model", "qwen3-8b")

	viper.SetDefault("vectorstore.enabled", false)
	viper.SetDefault("vectorstore.embedder.model", "nomic-embed-text")
	viper.SetDefault("vectorstore.embedder.base_url", "http://localhost:11434")
}

// bindEnvironmentVariables binds specific environment variables to Viper keys
func bindEnvironmentVariables() {
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")

	viper.BindEnv("client.base_url", "QWEN_CHAT_URL")
	viper.BindEnv("client.stream_timeout", "QWEN_CHAT_STREAM_TIMEOUT")
	viper.BindEnv("logging.level", "QWEN_CHAT_LOG_LEVEL")
	viper.BindEnv("logging.log_file", "QWEN_CHAT_LOG_FILE")
	viper.BindEnv("server.addr", "QWEN_CHAT_SERVER_ADDR")
	viper.BindEnv("provider", "QWEN_CHAT_PROVIDER")
	viper.BindEnv("ollama.url", "QWEN_CHAT_OLLAMA_URL")
	viper.BindEnv("ollama.model", "QWEN_CHAT_OLLAMA_MODEL")
	viper.BindEnv("vectorstore.enabled", "QWEN_CHAT_VECTORSTORE_ENABLED")
}

// processDurations converts string durations to time.Duration
func processDurations(cfg *Config) error {
	if cfg.Client.StreamTimeoutStr != "" {
		d, err := time.ParseDuration(cfg.Client.StreamTimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid client.stream_timeout: %w", err)
		}
		cfg.Client.StreamTimeout = d
	}
	if cfg.Client.StreamTimeout <= 0 {
		cfg.Client.StreamTimeout = DefaultStreamTimeout
	}

	if cfg.Ollama.TimeoutStr != "" {
		d, err := time.ParseDuration(cfg.Ollama.TimeoutStr)
		if err != nil {
			return fmt.Errorf("invalid ollama.timeout: %w", err)
		}
		cfg.Ollama.Timeout = d
	} else if cfg.Ollama.Timeout == 0 {
		cfg.Ollama.Timeout = 90 * time.Second
	}

	return nil
}

// GetConfigFileUsed returns the path to the config file being used
func GetConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// GetActiveProvider returns the currently active provider name
func (c *Config) GetActiveProvider() string {
	if c.Provider == "" {
		return "scripted"
	}
	return c.Provider
}

// GetActiveProviderModel returns the model name for the currently active provider
func (c *Config) GetActiveProviderModel() string {
	switch c.GetActiveProvider() {
	case "openai":
		return c.OpenAI.Model
	case "ollama":
		return c.Ollama.Model
	default:
		return "echo"
	}
}
