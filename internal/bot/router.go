package bot

import (
	"context"
	"strings"
)

// Control markers. A message containing one of these anywhere in its text is treated as a command
const (
	MarkerRestoreSystemPrompt = "!!!SYSTEMRESET!!!"
	MarkerSetSystemPrompt     = "!!!SYSTEM!!!"
	MarkerResetHistory        = "!!!RESET!!!"
)

// Command is the operation an inbound message is routed to
type Command int

const (
	CommandProcess Command = iota
	CommandRestoreSystemPrompt
	CommandSetSystemPrompt
	CommandResetHistory
)

func (c Command) String() string {
	switch c {
	case CommandProcess:
		return "process"
	case CommandRestoreSystemPrompt:
		return "restore-system-prompt"
	case CommandSetSystemPrompt:
		return "set-system-prompt"
	case CommandResetHistory:
		return "reset-history"
	}
	return "unknown"
}

// Route picks the command for text and returns it along with its argument. Markers are checked from most to least
// specific and the first match wins. The argument is the new system prompt for CommandSetSystemPrompt, text itself
// for CommandProcess, and empty otherwise
func Route(text string) (Command, string) {
	switch {
	case strings.Contains(text, MarkerRestoreSystemPrompt):
		return CommandRestoreSystemPrompt, ""
	case strings.Contains(text, MarkerSetSystemPrompt):
		return CommandSetSystemPrompt, strings.TrimSpace(strings.ReplaceAll(text, MarkerSetSystemPrompt, ""))
	case strings.Contains(text, MarkerResetHistory):
		return CommandResetHistory, ""
	default:
		return CommandProcess, text
	}
}

// Dispatch routes text and runs the matching processor operation. Exactly one operation runs. Dispatch returns the
// command that ran
func Dispatch(ctx context.Context, p *Processor, text, recipient string) Command {
	cmd, arg := Route(text)
	switch cmd {
	case CommandRestoreSystemPrompt:
		p.SetSystemPrompt(ctx, "", true, recipient)
	case CommandSetSystemPrompt:
		p.SetSystemPrompt(ctx, arg, false, recipient)
	case CommandResetHistory:
		p.Reset(ctx, recipient)
	default:
		p.Process(ctx, arg, recipient)
	}
	return cmd
}

// CleanText prepares inbound text for routing. When the message mentions the bot, every "@<botName>" is removed.
// Surrounding whitespace is always trimmed
func CleanText(text, botName string, mentionsBot bool) string {
	if mentionsBot && botName != "" {
		text = strings.ReplaceAll(text, "@"+botName, "")
	}
	return strings.TrimSpace(text)
}
