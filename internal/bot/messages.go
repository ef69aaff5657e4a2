package bot

import (
	"strings"
	"unicode/utf8"
)

const (
	resetConfirmation = "Conversation history has been reset. I have forgotten our previous conversation, so feel free to start asking me questions again."

	systemPromptConfirmation = "System prompt updated. The current system prompt is:"

	completionFailureLeadIn = "I ran into an unexpected error. Please check whether your message is too long, or try again!"

	// maxErrorLength is the number of characters of an error description shown in chat
	maxErrorLength = 20
)

// truncate shortens s to at most n characters, marking the cut with an ellipsis
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// formatQuote renders s as a blockquote, prefixing every line with "> "
func formatQuote(s string) string {
	return "> " + strings.ReplaceAll(s, "\n", "\n> ")
}

func formatCompletionFailure(err error) string {
	return completionFailureLeadIn + "\n> Error message:\n" + formatQuote(truncate(err.Error(), maxErrorLength))
}

func formatSystemPromptConfirmation(prompt string) string {
	return systemPromptConfirmation + "\n" + formatQuote(prompt)
}
