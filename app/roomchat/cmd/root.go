package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cchalm/roomchat/internal/config"
)

var (
	configFile string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "roomchat",
	Short: "Group chat bot backed by a language model",
	Long: `roomchat answers messages that mention it in group conversations. Each conversation
keeps a short history of recent exchanges that is sent to the language model along
with a system prompt. Members can reset the history with !!!RESET!!!, replace the
system prompt with !!!SYSTEM!!! <prompt>, and restore the default prompt with
!!!SYSTEMRESET!!!.`,
	PersistentPreRunE: loadRootConfig,
	SilenceUsage:      true,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadRootConfig(cmd *cobra.Command, _ []string) error {
	// Commands that don't talk to a model run without configuration
	if cmd == versionCmd || cmd.Name() == "help" {
		return nil
	}

	loaded, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file path (JSON or YAML). Settings can also be given as ROOMCHAT_* environment variables")
}
