package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/openai/openai-go"

	"github.com/cchalm/roomchat/internal/chat"
)

// OpenAICompleter completes conversations with the OpenAI chat completions API
type OpenAICompleter struct {
	client          openai.Client
	model           string
	maxOutputTokens int64
}

func NewOpenAICompleter(client openai.Client, model string, maxOutputTokens int64) *OpenAICompleter {
	return &OpenAICompleter{
		client:          client,
		model:           model,
		maxOutputTokens: maxOutputTokens,
	}
}

func (oc *OpenAICompleter) Complete(ctx context.Context, turns []chat.Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role() {
		case chat.RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content()))
		case chat.RoleUser:
			messages = append(messages, openai.UserMessage(turn.Content()))
		case chat.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content()))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(oc.model),
		Messages: messages,
	}
	if oc.maxOutputTokens > 0 {
		params.MaxTokens = openai.Int(oc.maxOutputTokens)
	}

	completion, err := oc.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("malformed completion: no choices")
	}

	log.Printf("Token usage - Prompt: %d, Completion: %d, Total: %d",
		completion.Usage.PromptTokens,
		completion.Usage.CompletionTokens,
		completion.Usage.TotalTokens,
	)

	reply := completion.Choices[0].Message.Content
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
