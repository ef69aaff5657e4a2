package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropt "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cchalm/roomchat/internal/chat"
)

// messageSender sends a single message request and returns the complete response
type messageSender interface {
	SendMessage(ctx context.Context, params anthropic.MessageNewParams, opts ...anthropt.RequestOption) (anthropic.Message, error)
}

// StreamingMessageSender sends messages using the streaming API and accumulates the stream into a single message
type StreamingMessageSender struct {
	client anthropic.Client
}

func NewStreamingMessageSender(client anthropic.Client) StreamingMessageSender {
	return StreamingMessageSender{
		client: client,
	}
}

func (sms StreamingMessageSender) SendMessage(
	ctx context.Context,
	params anthropic.MessageNewParams,
	opts ...anthropt.RequestOption,
) (anthropic.Message, error) {
	stream := sms.client.Messages.NewStreaming(ctx, params, opts...)
	response := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		err := response.Accumulate(event)
		if err != nil {
			return anthropic.Message{}, fmt.Errorf("failed to accumulate response content stream: %w", err)
		}
	}
	if stream.Err() != nil {
		return anthropic.Message{}, fmt.Errorf("failed to stream response: %w", stream.Err())
	}
	if response.StopReason == "" {
		b, err := json.Marshal(response)
		if err != nil {
			log.Printf("error while marshalling corrupt message for inspection: %v", err)
		}
		return anthropic.Message{}, fmt.Errorf("malformed message: %v", string(b))
	}

	return response, nil
}

// AnthropicCompleter completes conversations with the Anthropic Messages API
type AnthropicCompleter struct {
	sender          messageSender
	model           anthropic.Model
	maxOutputTokens int64
}

func NewAnthropicCompleter(client anthropic.Client, model anthropic.Model, maxOutputTokens int64) *AnthropicCompleter {
	return &AnthropicCompleter{
		sender:          NewStreamingMessageSender(client),
		model:           model,
		maxOutputTokens: maxOutputTokens,
	}
}

func (ac *AnthropicCompleter) Complete(ctx context.Context, turns []chat.Turn) (string, error) {
	params := ac.buildParams(turns)

	response, err := ac.sender.SendMessage(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	log.Printf("Token usage - Input: %d, Output: %d, Cache read: %d",
		response.Usage.InputTokens,
		response.Usage.OutputTokens,
		response.Usage.CacheReadInputTokens,
	)

	var reply strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(reply.String()) == "" {
		return "", ErrEmptyReply
	}
	return reply.String(), nil
}

// buildParams maps turns onto a request. System turns become the system prompt, since the Messages API only accepts
// user and assistant messages
func (ac *AnthropicCompleter) buildParams(turns []chat.Turn) anthropic.MessageNewParams {
	system := []anthropic.TextBlockParam{}
	messages := []anthropic.MessageParam{}
	for _, turn := range turns {
		switch turn.Role() {
		case chat.RoleSystem:
			if turn.Content() != "" {
				system = append(system, anthropic.TextBlockParam{Text: turn.Content()})
			}
		case chat.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Content())))
		case chat.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Content())))
		}
	}

	return anthropic.MessageNewParams{
		Model:     ac.model,
		MaxTokens: ac.maxOutputTokens,
		System:    system,
		Messages:  messages,
	}
}
