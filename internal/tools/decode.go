package tools

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Call is a structured tool request as returned by the model.
type Call struct {
	ID        string
	Name      string
	Arguments string
}

// UnknownToolError means the model asked for a tool that is not registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tools: unknown tool %q", e.Name)
}

// ArgumentError means the arguments for a known tool could not be decoded or
// failed validation.
type ArgumentError struct {
	Tool string
	Err  error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tools: invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// Decode turns a raw call into a validated Command.
func Decode(call Call) (Command, error) {
	raw := strings.TrimSpace(call.Arguments)
	if raw == "" {
		raw = "{}"
	}

	switch call.Name {
	case NameConfirmIdentity:
		var c ConfirmIdentity
		if err := decodeInto(call.Name, raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case NameSearchProviders:
		var c SearchProviders
		if err := decodeInto(call.Name, raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case NameBookAppointment:
		var c BookAppointment
		if err := decodeInto(call.Name, raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, &UnknownToolError{Name: call.Name}
	}
}

type normalizer interface {
	normalize()
}

func decodeInto(name, raw string, dst normalizer) error {
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return &ArgumentError{Tool: name, Err: err}
	}
	dst.normalize()
	if err := validate.Struct(dst); err != nil {
		return &ArgumentError{Tool: name, Err: err}
	}
	return nil
}
