package chat

import (
	"context"
	"fmt"
)

// PromptSource resolves a system prompt by template id.
type PromptSource interface {
	Resolve(ctx context.Context, templateID string) (string, error)
}

// History is the ordered, customer-facing conversation. It never holds a
// system-role entry. A History belongs to a single conversation and is not
// safe for concurrent mutation.
type History struct {
	messages []Message
}

// NewHistory builds a history from prior messages, rejecting any system-role entry.
func NewHistory(messages ...Message) (*History, error) {
	h := &History{messages: make([]Message, 0, len(messages)+2)}
	for i, m := range messages {
		if err := validateCustomerFacing(m); err != nil {
			return nil, fmt.Errorf("chat: message %d: %w", i, err)
		}
		h.messages = append(h.messages, m)
	}
	return h, nil
}

// Append adds m to the end of the history.
func (h *History) Append(m Message) error {
	if err := validateCustomerFacing(m); err != nil {
		return err
	}
	h.messages = append(h.messages, m)
	return nil
}

// Len returns the number of stored messages.
func (h *History) Len() int {
	return len(h.messages)
}

// Last returns the most recent message and false when the history is empty.
func (h *History) Last() (Message, bool) {
	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// Messages returns a copy of the customer-facing view.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Fork returns an independent working copy.
func (h *History) Fork() *History {
	return &History{messages: h.Messages()}
}

// Render resolves the named system prompt and returns it followed by the
// stored messages. The stored sequence is left untouched.
func (h *History) Render(ctx context.Context, source PromptSource, promptID string) ([]Message, error) {
	if source == nil {
		return nil, fmt.Errorf("chat: prompt source is required to render %q", promptID)
	}
	prompt, err := source.Resolve(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("chat: resolve prompt %q: %w", promptID, err)
	}
	out := make([]Message, 0, len(h.messages)+1)
	out = append(out, SystemMessage(prompt))
	out = append(out, h.messages...)
	return out, nil
}
