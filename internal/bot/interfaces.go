package bot

import "context"

// Event is an inbound message from a conversation. Mention detection is done by the channel that produced it
type Event struct {
	ConversationID string
	Sender         string // The participant who sent the message, used to address the reply
	Text           string
	MentionsBot    bool
}

// Sink delivers outbound messages to a conversation. Send blocks until delivery completes or fails
type Sink interface {
	Send(ctx context.Context, conversationID, text, recipient string) error
}
