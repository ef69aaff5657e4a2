package bot

import (
	"fmt"
	"log"
	"sync"

	"github.com/cchalm/roomchat/internal/ai"
	"github.com/cchalm/roomchat/internal/config"
)

// Registry owns the processor of every conversation seen so far. Processors are created on first sight and are
// never removed
type Registry struct {
	completer ai.Completer
	sink      Sink
	chat      config.ChatConfig

	mu         sync.Mutex
	processors map[string]*Processor
}

// NewRegistry creates an empty registry. It fails with config.ErrConfigurationMissing if chatConfig cannot be used
// to create conversations
func NewRegistry(completer ai.Completer, sink Sink, chatConfig config.ChatConfig) (*Registry, error) {
	if err := chatConfig.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}
	return &Registry{
		completer:  completer,
		sink:       sink,
		chat:       chatConfig,
		processors: map[string]*Processor{},
	}, nil
}

// GetOrCreate returns the processor for conversationID, creating it if this is the first time the conversation has
// been seen
func (r *Registry) GetOrCreate(conversationID string) *Processor {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.processors[conversationID]; ok {
		return p
	}

	p := NewProcessor(conversationID, r.completer, r.sink, r.chat.DefaultSystemPrompt, r.chat.HistorySize)
	r.processors[conversationID] = p
	log.Printf("New conversation: %s", conversationID)
	return p
}

// Len returns the number of known conversations
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.processors)
}
