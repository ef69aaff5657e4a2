// Package console connects the bot to a terminal. Every input line is a message addressed to the bot and replies are
// printed to the output.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/cchalm/roomchat/internal/bot"
)

// Channel reads messages from in and writes replies to out. A line starting with "#<name> " is sent to conversation
// <name>; other lines go to the default conversation
type Channel struct {
	in                  io.Reader
	defaultConversation string
	sender              string

	mu  sync.Mutex
	out io.Writer
}

func NewChannel(in io.Reader, out io.Writer, defaultConversation, sender string) *Channel {
	return &Channel{
		in:                  in,
		out:                 out,
		defaultConversation: defaultConversation,
		sender:              sender,
	}
}

// Events reads lines until the input ends or ctx is done, then closes the returned channel
func (c *Channel) Events(ctx context.Context) <-chan bot.Event {
	events := make(chan bot.Event)

	go func() {
		defer close(events)
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			ev, ok := c.parseLine(scanner.Text())
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("failed to read console input: %v", err)
		}
	}()

	return events
}

func (c *Channel) parseLine(line string) (bot.Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return bot.Event{}, false
	}

	conversationID := c.defaultConversation
	if rest, ok := strings.CutPrefix(line, "#"); ok {
		name, text, _ := strings.Cut(rest, " ")
		if name != "" {
			conversationID = name
			line = text
		}
	}

	return bot.Event{
		ConversationID: conversationID,
		Sender:         c.sender,
		Text:           line,
		MentionsBot:    true,
	}, true
}

// Send prints a reply
func (c *Channel) Send(ctx context.Context, conversationID, text, recipient string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	header := "[" + conversationID + "]"
	if recipient != "" {
		header += " @" + recipient
	}
	if _, err := fmt.Fprintf(c.out, "%s\n%s\n\n", header, text); err != nil {
		return fmt.Errorf("failed to write reply: %w", err)
	}
	return nil
}
