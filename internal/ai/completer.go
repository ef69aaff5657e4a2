// Package ai adapts language-model completion APIs to the turn-based Completer used by the bot.
package ai

import (
	"context"
	"errors"

	"github.com/cchalm/roomchat/internal/chat"
)

var (
	// ErrEmptyReply is returned when the model responds without any text
	ErrEmptyReply = errors.New("model returned an empty reply")
	// ErrUnknownProvider is returned for provider names that have no Completer
	ErrUnknownProvider = errors.New("unknown completion provider")
)

// Completer turns an ordered list of turns into the assistant's reply text. Implementations must be safe for
// concurrent use, since one Completer is shared by every conversation
type Completer interface {
	Complete(ctx context.Context, turns []chat.Turn) (string, error)
}

// CompleterFunc adapts a function to the Completer interface
type CompleterFunc func(ctx context.Context, turns []chat.Turn) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, turns []chat.Turn) (string, error) {
	return f(ctx, turns)
}

type conversationIDKey struct{}

// WithConversationID attaches a conversation ID to ctx so that completers and their decorators can label requests
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, conversationIDKey{}, conversationID)
}

// ConversationIDFromContext returns the conversation ID attached with WithConversationID, or "" if there is none
func ConversationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(conversationIDKey{}).(string)
	return id
}
