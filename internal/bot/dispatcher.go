package bot

import (
	"context"
	"log"
	"sync"
)

// queueSize is the number of events buffered per conversation before the dispatcher waits for the conversation to
// catch up
const queueSize = 32

// Dispatcher feeds inbound events to their conversation's processor. Each conversation has its own worker, so events
// of one conversation are handled one at a time in arrival order while different conversations proceed concurrently
type Dispatcher struct {
	registry *Registry

	mu      sync.RWMutex
	botName string

	wg     sync.WaitGroup
	queues map[string]chan Event // Only accessed by the Run goroutine
}

func NewDispatcher(registry *Registry, botName string) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		botName:  botName,
		queues:   map[string]chan Event{},
	}
}

// SetBotName updates the identity stripped from messages that mention the bot. Channels call this once they learn
// who they are logged in as
func (d *Dispatcher) SetBotName(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.botName = name
}

func (d *Dispatcher) getBotName() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.botName
}

// Run dispatches events until the channel is closed or ctx is done, then waits for in-flight events to finish. It
// returns nil if the channel was closed and ctx.Err() otherwise
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) error {
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !ev.MentionsBot {
				continue
			}
			select {
			case d.queue(ctx, ev.ConversationID) <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (d *Dispatcher) queue(ctx context.Context, conversationID string) chan Event {
	if q, ok := d.queues[conversationID]; ok {
		return q
	}

	q := make(chan Event, queueSize)
	d.queues[conversationID] = q
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for ev := range q {
			if ctx.Err() != nil {
				return
			}
			d.handle(ctx, ev)
		}
	}()
	return q
}

func (d *Dispatcher) stop() {
	for id, q := range d.queues {
		close(q)
		delete(d.queues, id)
	}
	d.wg.Wait()
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) {
	p := d.registry.GetOrCreate(ev.ConversationID)
	text := CleanText(ev.Text, d.getBotName(), ev.MentionsBot)
	cmd := Dispatch(ctx, p, text, ev.Sender)
	if cmd != CommandProcess {
		log.Printf("Ran command %s in conversation %s", cmd, ev.ConversationID)
	}
}
