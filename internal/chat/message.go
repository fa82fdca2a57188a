package chat

import (
	"errors"
	"fmt"
)

// Role tags who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ErrSystemMessage is returned when a system-role message is pushed into a
// customer-facing history. It indicates a programming error.
var ErrSystemMessage = errors.New("chat: customer-facing chat history must not contain a system message")

// ErrInvalidRole is returned for messages whose role is not recognised.
var ErrInvalidRole = errors.New("chat: unsupported role")

// Message is a single role-tagged utterance. Values are never mutated after construction.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// SystemMessage builds a system-role message. Only rendered views carry these.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func validateCustomerFacing(m Message) error {
	if m.Role == RoleSystem {
		return ErrSystemMessage
	}
	if !m.Role.Valid() {
		return fmt.Errorf("%w %q", ErrInvalidRole, m.Role)
	}
	return nil
}
