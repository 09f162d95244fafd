package cmd

import (
	"fmt"

	"github.com/slyfox1186/qwen3-8b-chatbot/pkg/controllers"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new conversation",
	Long:  `Ask the backend for a new conversation and make it the one the chat resumes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cc := controllers.NewChatController(newClient(), newHandleStore())
		if err := cc.NewConversation(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cc.ConversationID())
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the current conversation",
	Long:  `Delete the backend history of the stored conversation. The conversation id is kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		handles := newHandleStore()
		id, err := handles.Get()
		if err != nil {
			return err
		}
		if id == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No conversation to clear")
			return nil
		}

		cc := controllers.NewChatController(newClient(), handles)
		if err := cc.Init(cmd.Context()); err != nil {
			return err
		}
		if err := cc.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared conversation %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(clearCmd)
}
