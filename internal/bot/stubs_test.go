package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/cchalm/roomchat/internal/chat"
	"github.com/cchalm/roomchat/internal/config"
)

// stubCompleter returns scripted replies in order and records every request
type stubCompleter struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests [][]chat.Turn
}

func (s *stubCompleter) Complete(ctx context.Context, turns []chat.Turn) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, turns)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func (s *stubCompleter) Requests() [][]chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([][]chat.Turn{}, s.requests...)
}

// blockingCompleter signals on entered when a completion starts and returns whatever is sent on release
type blockingCompleter struct {
	entered chan string // Receives the text of the last turn of each request
	release chan string
}

func newBlockingCompleter() *blockingCompleter {
	return &blockingCompleter{
		entered: make(chan string, 16),
		release: make(chan string),
	}
}

func (b *blockingCompleter) Complete(ctx context.Context, turns []chat.Turn) (string, error) {
	b.entered <- turns[len(turns)-1].Content()
	select {
	case reply := <-b.release:
		return reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type sentMessage struct {
	conversationID string
	text           string
	recipient      string
}

type recordingSink struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *recordingSink) Send(ctx context.Context, conversationID, text, recipient string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, sentMessage{conversationID: conversationID, text: text, recipient: recipient})
	return s.err
}

func (s *recordingSink) Sent() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]sentMessage{}, s.sent...)
}

func (s *recordingSink) Last() sentMessage {
	sent := s.Sent()
	if len(sent) == 0 {
		return sentMessage{}
	}
	return sent[len(sent)-1]
}

var testChatConfig = config.ChatConfig{HistorySize: 2, DefaultSystemPrompt: "P0"}

func turnStrings(turns []chat.Turn) []string {
	out := make([]string, len(turns))
	for i, turn := range turns {
		out[i] = string(turn.Role()) + ":" + turn.Content()
	}
	return out
}
