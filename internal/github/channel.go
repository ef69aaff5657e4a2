// Package github connects the bot to GitHub issue threads. Every issue in the watched repository is a conversation;
// comments that mention the bot are inbound messages and replies are posted as comments.
package github

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v72/github"

	"github.com/cchalm/roomchat/internal/bot"
)

// issueService is the subset of the GitHub issues API the channel uses
type issueService interface {
	ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error)
	CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error)
}

// Channel polls a repository for new issue comments and posts replies
type Channel struct {
	issues       issueService
	owner        string
	repo         string
	botLogin     string
	pollInterval time.Duration

	// Comments created after since have not been seen yet. Comments created exactly at since may have been, so their
	// IDs are kept in seenAtSince
	since       time.Time
	seenAtSince map[int64]bool
}

func NewChannel(client *github.Client, owner, repo, botLogin string, pollInterval time.Duration) *Channel {
	// GitHub timestamps have second resolution
	return newChannel(client.Issues, owner, repo, botLogin, pollInterval, time.Now().Truncate(time.Second))
}

func newChannel(issues issueService, owner, repo, botLogin string, pollInterval time.Duration, since time.Time) *Channel {
	return &Channel{
		issues:       issues,
		owner:        owner,
		repo:         repo,
		botLogin:     botLogin,
		pollInterval: pollInterval,
		since:        since,
		seenAtSince:  map[int64]bool{},
	}
}

// BotLogin returns the login of the account the bot posts as
func (c *Channel) BotLogin() string {
	return c.botLogin
}

// Events polls for new comments until ctx is done. The returned channel is closed when polling stops
func (c *Channel) Events(ctx context.Context) <-chan bot.Event {
	events := make(chan bot.Event)

	go func() {
		defer close(events)
		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()

		for {
			newEvents, err := c.poll(ctx)
			if err != nil {
				log.Printf("[github] failed to poll comments: %v", err)
			}
			for _, ev := range newEvents {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events
}

// poll fetches comments created since the last poll and converts them into events
func (c *Channel) poll(ctx context.Context) ([]bot.Event, error) {
	since := c.since
	opts := &github.IssueListCommentsOptions{
		Sort:        github.Ptr("created"),
		Direction:   github.Ptr("asc"),
		Since:       &since,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	events := []bot.Event{}
	for {
		// Issue number 0 lists comments across all issues of the repository
		comments, resp, err := c.issues.ListComments(ctx, c.owner, c.repo, 0, opts)
		if err != nil {
			return events, fmt.Errorf("failed to list issue comments: %w", err)
		}

		for _, comment := range comments {
			ev, ok := c.accept(comment)
			if ok {
				events = append(events, ev)
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return events, nil
}

// accept records comment as seen and converts it into an event, unless it was seen before or was written by the bot
func (c *Channel) accept(comment *github.IssueComment) (bot.Event, bool) {
	if comment == nil || comment.ID == nil || comment.CreatedAt == nil {
		log.Print("[github] Warning: unexpected nil, skipping comment")
		return bot.Event{}, false
	}

	created := comment.CreatedAt.Time
	switch {
	case created.Before(c.since):
		// An older comment that was edited
		return bot.Event{}, false
	case created.Equal(c.since):
		if c.seenAtSince[comment.GetID()] {
			return bot.Event{}, false
		}
	default:
		c.since = created
		c.seenAtSince = map[int64]bool{}
	}
	c.seenAtSince[comment.GetID()] = true

	author := comment.GetUser().GetLogin()
	if author == c.botLogin {
		return bot.Event{}, false
	}

	number, err := issueNumberFromURL(comment.GetIssueURL())
	if err != nil {
		log.Printf("[github] Warning: %v, skipping comment %d", err, comment.GetID())
		return bot.Event{}, false
	}

	body := comment.GetBody()
	return bot.Event{
		ConversationID: c.conversationID(number),
		Sender:         author,
		Text:           body,
		MentionsBot:    c.botLogin != "" && strings.Contains(body, "@"+c.botLogin),
	}, true
}

// Send posts text as a comment on the conversation's issue, mentioning recipient if given
func (c *Channel) Send(ctx context.Context, conversationID, text, recipient string) error {
	number, err := c.parseConversationID(conversationID)
	if err != nil {
		return err
	}

	body := text
	if recipient != "" {
		body = fmt.Sprintf("@%s %s", recipient, text)
	}

	_, _, err = c.issues.CreateComment(ctx, c.owner, c.repo, number, &github.IssueComment{Body: github.Ptr(body)})
	if err != nil {
		return fmt.Errorf("failed to create comment on issue %d: %w", number, err)
	}
	return nil
}

func (c *Channel) conversationID(issueNumber int) string {
	return fmt.Sprintf("%s/%s#%d", c.owner, c.repo, issueNumber)
}

func (c *Channel) parseConversationID(conversationID string) (int, error) {
	prefix := fmt.Sprintf("%s/%s#", c.owner, c.repo)
	numberStr, ok := strings.CutPrefix(conversationID, prefix)
	if !ok {
		return 0, fmt.Errorf("conversation '%s' does not belong to %s/%s", conversationID, c.owner, c.repo)
	}
	number, err := strconv.Atoi(numberStr)
	if err != nil {
		return 0, fmt.Errorf("failed to parse issue number from conversation '%s': %w", conversationID, err)
	}
	return number, nil
}

// issueNumberFromURL extracts the issue number from an API URL such as https://api.github.com/repos/o/r/issues/12
func issueNumberFromURL(issueURL string) (int, error) {
	i := strings.LastIndex(issueURL, "/")
	if i < 0 {
		return 0, fmt.Errorf("failed to parse issue URL '%s'", issueURL)
	}
	number, err := strconv.Atoi(issueURL[i+1:])
	if err != nil {
		return 0, fmt.Errorf("failed to parse issue URL '%s': %w", issueURL, err)
	}
	return number, nil
}
