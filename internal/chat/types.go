// Package chat provides the per-conversation dialogue state: turns, the bounded history buffer, and the system prompt.
package chat

import "fmt"

// Role identifies the author of a turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Turn is a single message in a conversation. Turns are values and are never modified after construction
type Turn struct {
	role    Role
	content string
}

// NewTurn creates a turn, rejecting unknown roles
func NewTurn(role Role, content string) (Turn, error) {
	if !role.Valid() {
		return Turn{}, fmt.Errorf("invalid role '%s'", role)
	}
	return Turn{role: role, content: content}, nil
}

func SystemTurn(content string) Turn    { return Turn{role: RoleSystem, content: content} }
func UserTurn(content string) Turn      { return Turn{role: RoleUser, content: content} }
func AssistantTurn(content string) Turn { return Turn{role: RoleAssistant, content: content} }

func (t Turn) Role() Role      { return t.role }
func (t Turn) Content() string { return t.content }
