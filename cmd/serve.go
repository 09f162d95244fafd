package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/config"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/llm"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/memory"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/ollama"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat backend",
	Long: `Serve the chat backend the client talks to. Replies come from the configured
provider: scripted (offline echo), ollama or openai.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		srv, err := buildServer(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "Serving %s (%s) on %s\n",
			cfg.GetActiveProvider(), cfg.GetActiveProviderModel(), cfg.Server.Addr)
		return srv.ListenAndServe(ctx)
	},
}

func buildServer(cfg *config.Config) (*server.Server, error) {
	gen, err := llm.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s generator: %w", cfg.GetActiveProvider(), err)
	}

	var opts []server.Option
	if cfg.VectorStore.Enabled {
		ix, err := memory.NewIndex(memory.OllamaEmbedding(cfg.VectorStore.Embedder.Model, cfg.VectorStore.Embedder.BaseURL))
		if err != nil {
			return nil, err
		}
		opts = append(opts, server.WithIndex(ix))
	}
	if cfg.GetActiveProvider() == "ollama" {
		client := ollama.NewClient(cfg.Ollama.URL, 0)
		model := cfg.Ollama.Model
		opts = append(opts, server.WithHealthCheck(func(ctx context.Context) error {
			return client.CheckModel(ctx, model)
		}))
	}

	return server.New(cfg.Server, gen, memory.New(memory.WithWindowSize(cfg.Server.HistoryWindow)), opts...), nil
}

func init() {
	serveCmd.Flags().String("addr", ":8000", "listen address")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	serveCmd.Flags().String("provider", "scripted", "reply provider: scripted, ollama or openai")
	viper.BindPFlag("provider", serveCmd.Flags().Lookup("provider"))

	rootCmd.AddCommand(serveCmd)
}
