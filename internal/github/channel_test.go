package github

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-github/v72/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/roomchat/internal/bot"
)

type commentCall struct {
	owner  string
	repo   string
	number int
	body   string
}

type stubIssueService struct {
	pages [][]*github.IssueComment // Returned page by page on each ListComments sequence
	err   error

	listOpts []github.IssueListCommentsOptions
	created  []commentCall
}

func (s *stubIssueService) ListComments(ctx context.Context, owner, repo string, number int, opts *github.IssueListCommentsOptions) ([]*github.IssueComment, *github.Response, error) {
	s.listOpts = append(s.listOpts, *opts)
	if s.err != nil {
		return nil, nil, s.err
	}
	page := opts.Page
	if page == 0 {
		page = 1
	}
	if page > len(s.pages) {
		return nil, &github.Response{}, nil
	}
	resp := &github.Response{}
	if page < len(s.pages) {
		resp.NextPage = page + 1
	}
	return s.pages[page-1], resp, nil
}

func (s *stubIssueService) CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error) {
	s.created = append(s.created, commentCall{owner: owner, repo: repo, number: number, body: comment.GetBody()})
	return comment, nil, s.err
}

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func createComment(id int64, issue int, author, body string, created time.Time) *github.IssueComment {
	return &github.IssueComment{
		ID:        github.Ptr(id),
		Body:      github.Ptr(body),
		User:      &github.User{Login: github.Ptr(author)},
		IssueURL:  github.Ptr(fmt.Sprintf("https://api.github.com/repos/owner/repo/issues/%d", issue)),
		CreatedAt: &github.Timestamp{Time: created},
	}
}

func TestPoll_EmitsEvents(t *testing.T) {
	issues := &stubIssueService{pages: [][]*github.IssueComment{{
		createComment(1, 7, "alice", "@mai hello", start.Add(time.Second)),
		createComment(2, 7, "bob", "no mention here", start.Add(2*time.Second)),
		createComment(3, 8, "mai", "@alice reply from the bot", start.Add(3*time.Second)),
	}}}
	c := newChannel(issues, "owner", "repo", "mai", time.Minute, start)

	events, err := c.poll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []bot.Event{
		{ConversationID: "owner/repo#7", Sender: "alice", Text: "@mai hello", MentionsBot: true},
		{ConversationID: "owner/repo#7", Sender: "bob", Text: "no mention here", MentionsBot: false},
	}, events)

	require.Len(t, issues.listOpts, 1)
	assert.Equal(t, start, *issues.listOpts[0].Since)
	assert.Equal(t, "created", *issues.listOpts[0].Sort)
}

func TestPoll_SkipsSeenAndEditedComments(t *testing.T) {
	first := createComment(1, 7, "alice", "@mai one", start.Add(time.Second))
	issues := &stubIssueService{pages: [][]*github.IssueComment{{first}}}
	c := newChannel(issues, "owner", "repo", "mai", time.Minute, start)

	events, err := c.poll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)

	// The same comment comes back, along with one created at the same second and one edited from before
	issues.pages = [][]*github.IssueComment{{
		createComment(0, 7, "carol", "@mai old but edited", start.Add(-time.Hour)),
		first,
		createComment(2, 7, "bob", "@mai two", start.Add(time.Second)),
	}}
	events, err = c.poll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "@mai two", events[0].Text)

	assert.Equal(t, start.Add(time.Second), *issues.listOpts[1].Since)
}

func TestPoll_FollowsPages(t *testing.T) {
	issues := &stubIssueService{pages: [][]*github.IssueComment{
		{createComment(1, 1, "alice", "@mai a", start.Add(time.Second))},
		{createComment(2, 2, "bob", "@mai b", start.Add(2*time.Second))},
	}}
	c := newChannel(issues, "owner", "repo", "mai", time.Minute, start)

	events, err := c.poll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "owner/repo#2", events[1].ConversationID)
	assert.Len(t, issues.listOpts, 2)
}

func TestPoll_Error(t *testing.T) {
	apiErr := errors.New("bad credentials")
	c := newChannel(&stubIssueService{err: apiErr}, "owner", "repo", "mai", time.Minute, start)

	_, err := c.poll(context.Background())
	require.ErrorIs(t, err, apiErr)
}

func TestSend(t *testing.T) {
	issues := &stubIssueService{}
	c := newChannel(issues, "owner", "repo", "mai", time.Minute, start)

	require.NoError(t, c.Send(context.Background(), "owner/repo#7", "hi there", "alice"))
	require.NoError(t, c.Send(context.Background(), "owner/repo#8", "hello all", ""))

	assert.Equal(t, []commentCall{
		{owner: "owner", repo: "repo", number: 7, body: "@alice hi there"},
		{owner: "owner", repo: "repo", number: 8, body: "hello all"},
	}, issues.created)
}

func TestSend_InvalidConversation(t *testing.T) {
	c := newChannel(&stubIssueService{}, "owner", "repo", "mai", time.Minute, start)

	assert.Error(t, c.Send(context.Background(), "other/repo#7", "hi", ""))
	assert.Error(t, c.Send(context.Background(), "owner/repo#x", "hi", ""))
}

func TestEvents_StopsOnCancel(t *testing.T) {
	issues := &stubIssueService{pages: [][]*github.IssueComment{{
		createComment(1, 7, "alice", "@mai hello", start.Add(time.Second)),
	}}}
	c := newChannel(issues, "owner", "repo", "mai", time.Hour, start)

	ctx, cancel := context.WithCancel(context.Background())
	events := c.Events(ctx)

	ev := <-events
	assert.Equal(t, "@mai hello", ev.Text)

	cancel()
	for range events {
	}
}
