package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/roomchat/internal/ai"
	"github.com/cchalm/roomchat/internal/chat"
)

func newTestProcessor(completer ai.Completer, sink Sink) *Processor {
	return NewProcessor("room-1", completer, sink, testChatConfig.DefaultSystemPrompt, testChatConfig.HistorySize)
}

func TestProcess_Success(t *testing.T) {
	completer := &stubCompleter{replies: []string{"  hi alice \n"}}
	sink := &recordingSink{}
	p := newTestProcessor(completer, sink)

	ok := p.Process(context.Background(), "hello", "alice")
	require.True(t, ok)

	assert.Equal(t, []string{"user:hello", "assistant:hi alice"}, turnStrings(p.History()))
	assert.Equal(t, sentMessage{conversationID: "room-1", text: "hi alice", recipient: "alice"}, sink.Last())

	requests := completer.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, []string{"system:P0", "user:hello"}, turnStrings(requests[0]))
}

func TestProcess_SendsHistoryBetweenSystemPromptAndNewMessage(t *testing.T) {
	completer := &stubCompleter{replies: []string{"R1", "R2", "R3"}}
	p := newTestProcessor(completer, &recordingSink{})
	ctx := context.Background()

	require.True(t, p.Process(ctx, "one", "alice"))
	require.True(t, p.Process(ctx, "two", "alice"))
	require.True(t, p.Process(ctx, "three", "alice"))

	requests := completer.Requests()
	require.Len(t, requests, 3)
	assert.Equal(t,
		[]string{"system:P0", "user:one", "assistant:R1", "user:two", "assistant:R2", "user:three"},
		turnStrings(requests[2]))

	// History size 2 keeps the last two exchanges
	assert.Equal(t,
		[]string{"user:two", "assistant:R2", "user:three", "assistant:R3"},
		turnStrings(p.History()))
}

func TestProcess_FailureLeavesHistoryUnchanged(t *testing.T) {
	completer := &stubCompleter{replies: []string{"R1"}}
	sink := &recordingSink{}
	p := newTestProcessor(completer, sink)
	ctx := context.Background()

	require.True(t, p.Process(ctx, "first", "alice"))
	before := p.History()

	completer.err = errors.New("429 Too Many Requests: rate limit exceeded for this organization")
	ok := p.Process(ctx, "hello", "bob")
	require.False(t, ok)

	assert.Equal(t, before, p.History())

	last := sink.Last()
	assert.Equal(t, "bob", last.recipient)
	assert.True(t, strings.HasPrefix(last.text, completionFailureLeadIn))
	assert.Contains(t, last.text, "> 429 Too Many Request...")
	assert.NotContains(t, last.text, "organization")
}

func TestProcess_FailureOnEmptyHistory(t *testing.T) {
	sink := &recordingSink{}
	p := newTestProcessor(&stubCompleter{err: errors.New("timeout")}, sink)

	ok := p.Process(context.Background(), "hello", "alice")
	require.False(t, ok)
	assert.Empty(t, p.History())
	assert.Contains(t, sink.Last().text, "> timeout")
}

func TestProcess_DeliveryFailureStillRecordsExchange(t *testing.T) {
	sink := &recordingSink{err: errors.New("channel closed")}
	p := newTestProcessor(&stubCompleter{replies: []string{"R1"}}, sink)

	ok := p.Process(context.Background(), "hello", "alice")
	require.True(t, ok)
	assert.Equal(t, []string{"user:hello", "assistant:R1"}, turnStrings(p.History()))
}

func TestProcess_PassesConversationID(t *testing.T) {
	var got string
	completer := ai.CompleterFunc(func(ctx context.Context, turns []chat.Turn) (string, error) {
		got = ai.ConversationIDFromContext(ctx)
		return "ok", nil
	})
	p := newTestProcessor(completer, &recordingSink{})

	require.True(t, p.Process(context.Background(), "hello", "alice"))
	assert.Equal(t, "room-1", got)
}

func TestProcess_ConcurrentCallsAreSerialized(t *testing.T) {
	completer := newBlockingCompleter()
	p := newTestProcessor(completer, &recordingSink{})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.Process(ctx, "user1", "alice")
	}()
	require.Equal(t, "user1", <-completer.entered)

	go func() {
		defer wg.Done()
		p.Process(ctx, "user2", "bob")
	}()

	select {
	case text := <-completer.entered:
		t.Fatalf("completion for %q started while another was in flight", text)
	case <-time.After(50 * time.Millisecond):
	}

	completer.release <- "R1"
	require.Equal(t, "user2", <-completer.entered)
	completer.release <- "R2"
	wg.Wait()

	assert.Equal(t,
		[]string{"user:user1", "assistant:R1", "user:user2", "assistant:R2"},
		turnStrings(p.History()))
}

func TestReset(t *testing.T) {
	sink := &recordingSink{}
	p := newTestProcessor(&stubCompleter{replies: []string{"R1"}}, sink)
	ctx := context.Background()

	require.True(t, p.Process(ctx, "hello", "alice"))
	require.Len(t, p.History(), 2)

	p.Reset(ctx, "alice")
	assert.Empty(t, p.History())
	assert.Equal(t, sentMessage{conversationID: "room-1", text: resetConfirmation, recipient: "alice"}, sink.Last())

	// Resetting an empty history only confirms
	p.Reset(ctx, "bob")
	assert.Empty(t, p.History())
	assert.Equal(t, resetConfirmation, sink.Last().text)
	assert.Len(t, sink.Sent(), 3)
}

func TestReset_KeepsSystemPrompt(t *testing.T) {
	p := newTestProcessor(&stubCompleter{}, &recordingSink{})
	ctx := context.Background()

	p.SetSystemPrompt(ctx, "P1", false, "alice")
	p.Reset(ctx, "alice")
	assert.Equal(t, "P1", p.SystemPrompt())
}

func TestSetSystemPrompt(t *testing.T) {
	completer := &stubCompleter{replies: []string{"R1", "R2"}}
	sink := &recordingSink{}
	p := newTestProcessor(completer, sink)
	ctx := context.Background()

	require.True(t, p.Process(ctx, "hello", "alice"))

	p.SetSystemPrompt(ctx, "P1", false, "alice")
	assert.Equal(t, "P1", p.SystemPrompt())
	assert.Equal(t, systemPromptConfirmation+"\n> P1", sink.Last().text)

	// The history is untouched and the next request uses the new prompt
	assert.Equal(t, []string{"user:hello", "assistant:R1"}, turnStrings(p.History()))
	require.True(t, p.Process(ctx, "again", "alice"))
	requests := completer.Requests()
	assert.Equal(t, "system:P1", turnStrings(requests[len(requests)-1])[0])

	p.SetSystemPrompt(ctx, "ignored", true, "alice")
	assert.Equal(t, "P0", p.SystemPrompt())
	assert.Equal(t, systemPromptConfirmation+"\n> P0", sink.Last().text)
	assert.Len(t, p.History(), 4)
}

func TestSetSystemPrompt_Empty(t *testing.T) {
	p := newTestProcessor(&stubCompleter{}, &recordingSink{})

	p.SetSystemPrompt(context.Background(), "", false, "alice")
	assert.Equal(t, "", p.SystemPrompt())
}
