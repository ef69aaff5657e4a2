// Package bot implements the conversation engine: per-conversation processors, the registry that owns them, command
// routing, and the dispatcher that feeds inbound events through them.
package bot

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/cchalm/roomchat/internal/ai"
	"github.com/cchalm/roomchat/internal/chat"
)

// Processor holds the dialogue state of one conversation. Its operations are serialized; a second operation waits
// until the first one, including its completion call and reply delivery, has finished
type Processor struct {
	conversationID string
	completer      ai.Completer
	sink           Sink

	mu           sync.Mutex
	history      *chat.BoundedHistory
	systemPrompt *chat.SystemPrompt
}

func NewProcessor(conversationID string, completer ai.Completer, sink Sink, defaultSystemPrompt string, historySize int) *Processor {
	return &Processor{
		conversationID: conversationID,
		completer:      completer,
		sink:           sink,
		history:        chat.NewBoundedHistory(historySize),
		systemPrompt:   chat.NewSystemPrompt(defaultSystemPrompt),
	}
}

// Process sends text, preceded by the system prompt and the conversation history, to the completer and delivers the
// reply to recipient. The exchange is recorded in the history only if the completion succeeds. Process returns
// whether it succeeded
func (p *Processor) Process(ctx context.Context, text, recipient string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	userTurn := chat.UserTurn(text)
	history := p.history.List()

	turns := make([]chat.Turn, 0, len(history)+2)
	turns = append(turns, chat.SystemTurn(p.systemPrompt.Current()))
	turns = append(turns, history...)
	turns = append(turns, userTurn)

	reply, err := p.completer.Complete(ai.WithConversationID(ctx, p.conversationID), turns)
	if err != nil {
		log.Printf("failed to complete message in conversation %s: %v", p.conversationID, err)
		p.send(ctx, formatCompletionFailure(err), recipient)
		return false
	}

	reply = strings.TrimSpace(reply)
	p.history.Push(userTurn)
	p.history.Push(chat.AssistantTurn(reply))

	p.send(ctx, reply, recipient)
	return true
}

// Reset forgets the conversation history. The system prompt is kept
func (p *Processor) Reset(ctx context.Context, recipient string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.history.Clear()
	p.send(ctx, resetConfirmation, recipient)
}

// SetSystemPrompt replaces the system prompt with text, or restores the default if restoreDefault is set. The history
// is left untouched
func (p *Processor) SetSystemPrompt(ctx context.Context, text string, restoreDefault bool, recipient string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if restoreDefault {
		p.systemPrompt.ResetToDefault()
	} else {
		p.systemPrompt.Set(text)
	}
	p.send(ctx, formatSystemPromptConfirmation(p.systemPrompt.Current()), recipient)
}

// History returns a snapshot of the recorded turns, oldest first
func (p *Processor) History() []chat.Turn {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.history.List()
}

// SystemPrompt returns the active system prompt
func (p *Processor) SystemPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.systemPrompt.Current()
}

func (p *Processor) send(ctx context.Context, text, recipient string) {
	if err := p.sink.Send(ctx, p.conversationID, text, recipient); err != nil {
		log.Printf("failed to deliver message to conversation %s: %v", p.conversationID, err)
	}
}
