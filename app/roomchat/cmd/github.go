package cmd

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	githubchannel "github.com/cchalm/roomchat/internal/github"
)

var (
	githubRepo         string
	githubPollInterval time.Duration
)

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Answer mentions in GitHub issue threads",
	Long: `Polls a repository for new issue comments. Every issue is a conversation, and
comments mentioning the bot's GitHub login are answered with a new comment.`,
	RunE: runGithubMode,
}

func init() {
	githubCmd.Flags().StringVar(&githubRepo, "repo", "", "Repository in the format 'owner/repo'; overrides github.repo")
	githubCmd.Flags().DurationVar(&githubPollInterval, "poll-interval", 0, "Interval between GitHub checks; overrides github.poll_interval")

	rootCmd.AddCommand(githubCmd)
}

func runGithubMode(cmd *cobra.Command, args []string) error {
	// Flags win over the loaded configuration
	if githubRepo != "" {
		cfg.GitHub.Repo = githubRepo
	}
	if githubPollInterval > 0 {
		cfg.GitHub.PollInterval = githubPollInterval
	}
	if err := cfg.ValidateGitHub(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := setupContext()
	owner, repo, _ := strings.Cut(cfg.GitHub.Repo, "/")

	log.Printf("Starting roomchat in GITHUB mode")
	log.Printf("Repository: %s", cfg.GitHub.Repo)
	log.Printf("Check interval: %s", cfg.GitHub.PollInterval)

	githubClient := createGithubClient(ctx, cfg.GitHub.Token)

	// Get bot user info
	botUser, _, err := githubClient.Users.Get(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to get github user: %w", err)
	}
	log.Printf("User %s logged in", botUser.GetLogin())

	channel := githubchannel.NewChannel(githubClient, owner, repo, botUser.GetLogin(), cfg.GitHub.PollInterval)
	return serve(ctx, channel, channel, channel.BotLogin())
}
