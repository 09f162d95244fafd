package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/api"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/config"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/controllers"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/logger"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/render"
	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "qwen-chat",
	Short: "Streaming chat client for a Qwen3 backend",
	Long: `Chat with a Qwen3 backend from the terminal. Replies stream in as they are
generated, with the model's reasoning shown apart from its answer.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		cc, err := newController(ctx)
		if err != nil {
			return err
		}

		term, err := render.NewTerminal(viper.GetInt("width"), render.WithThinking(config.Get().ShowThinking))
		if err != nil {
			return err
		}
		sess := newSession(cc, term, os.Stdin, os.Stdout, config.Get().ShowThinking)

		if prompt := viper.GetString("prompt"); prompt != "" {
			return sess.once(ctx, prompt)
		}
		return sess.run(ctx)
	},
}

// setup loads configuration and starts the logger. Commands run it before
// doing anything else.
func setup() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.Init(); err != nil {
		return err
	}
	logger.WithComponent("cmd").Debug("Configuration loaded",
		"file", config.GetConfigFileUsed(), "base_url", cfg.Client.BaseURL)
	return nil
}

func newClient() *api.Client {
	cfg := config.Get()
	return api.NewClient(cfg.Client.BaseURL, api.WithStreamTimeout(cfg.Client.StreamTimeout))
}

func newHandleStore() *store.FileHandleStore {
	return store.NewFileHandleStore(config.ResolvePath(config.Get().Client.HandleFile))
}

func newController(ctx context.Context) (*controllers.ChatController, error) {
	cc := controllers.NewChatController(newClient(), newHandleStore())
	if err := cc.Init(ctx); err != nil {
		return nil, err
	}
	return cc, nil
}

func Execute() {
	defer logger.Close()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.qwen-chat/settings.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().StringP("url", "u", "http://localhost:8000", "chat backend URL")
	viper.BindPFlag("client.base_url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.Flags().StringP("prompt", "p", "", "send one message, print the reply and exit")
	viper.BindPFlag("prompt", rootCmd.Flags().Lookup("prompt"))

	rootCmd.Flags().Bool("show-thinking", true, "print the model's reasoning")
	viper.BindPFlag("show_thinking", rootCmd.Flags().Lookup("show-thinking"))

	rootCmd.Flags().Int("width", 100, "wrap width for rendered history")
	viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
}
