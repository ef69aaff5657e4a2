package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cchalm/roomchat/internal/console"
)

var (
	consoleConversation string
	consoleSender       string
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Chat with the bot from the terminal",
	Long: `Reads messages from standard input, one per line, and prints the replies.
Prefix a line with #<name> to send it to conversation <name> instead of the default one.`,
	RunE: runConsoleMode,
}

func init() {
	consoleCmd.Flags().StringVar(&consoleConversation, "conversation", "console", "Default conversation for input lines")
	consoleCmd.Flags().StringVar(&consoleSender, "sender", os.Getenv("USER"), "Name to send messages as")

	rootCmd.AddCommand(consoleCmd)
}

func runConsoleMode(cmd *cobra.Command, args []string) error {
	ctx := setupContext()

	log.Printf("Starting roomchat in CONSOLE mode")

	channel := console.NewChannel(os.Stdin, os.Stdout, consoleConversation, consoleSender)
	return serve(ctx, channel, channel, cfg.BotName)
}
