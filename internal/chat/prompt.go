package chat

// SystemPrompt holds the active system directive of a conversation along with the default it can be restored to
type SystemPrompt struct {
	defaultPrompt string
	current       string
}

func NewSystemPrompt(defaultPrompt string) *SystemPrompt {
	return &SystemPrompt{
		defaultPrompt: defaultPrompt,
		current:       defaultPrompt,
	}
}

// Current returns the active directive
func (sp *SystemPrompt) Current() string {
	return sp.current
}

// Default returns the directive captured at construction
func (sp *SystemPrompt) Default() string {
	return sp.defaultPrompt
}

// Set replaces the active directive. Any string is accepted, including the empty string
func (sp *SystemPrompt) Set(text string) {
	sp.current = text
}

// ResetToDefault restores the directive captured at construction
func (sp *SystemPrompt) ResetToDefault() {
	sp.current = sp.defaultPrompt
}
