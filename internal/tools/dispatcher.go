package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/care-coordinator/internal/chat"
	"github.com/wolfman30/care-coordinator/internal/ehr"
	"github.com/wolfman30/care-coordinator/internal/observability/metrics"
	"github.com/wolfman30/care-coordinator/internal/scheduling"
	"github.com/wolfman30/care-coordinator/pkg/logging"
)

// ToolMarker prefixes the synthetic message that carries tool results.
const ToolMarker = "[TOOL CALLS]"

var tracer = otel.Tracer("care-coordinator.tools")

// Handler executes the domain operations behind the tools.
// *scheduling.Engine satisfies it.
type Handler interface {
	ConfirmIdentity(ctx context.Context, patientID, firstName, lastName, dob string) (*ehr.PatientRecord, error)
	SearchAvailableProviders(ctx context.Context, c scheduling.Criteria) ([]scheduling.ProviderAvailability, error)
	BookAppointment(ctx context.Context, patientID string, req scheduling.BookingRequest) (scheduling.Confirmation, error)
}

// Dispatcher decodes model tool calls and runs them against a Handler.
type Dispatcher struct {
	handler Handler
	logger  *logging.Logger
	metrics *metrics.PipelineMetrics
}

// NewDispatcher builds a dispatcher. m may be nil.
func NewDispatcher(handler Handler, logger *logging.Logger, m *metrics.PipelineMetrics) *Dispatcher {
	if handler == nil {
		panic("tools: handler required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{handler: handler, logger: logger, metrics: m}
}

// Dispatch runs calls in the order given and joins their results into a
// single assistant message tagged with ToolMarker. Every call is decoded
// before any runs, so a malformed request aborts the turn without side
// effects. Rejections are folded into the text; other errors abort.
func (d *Dispatcher) Dispatch(ctx context.Context, patientID string, calls []Call) (chat.Message, error) {
	if len(calls) == 0 {
		return chat.Message{}, errors.New("tools: no calls to dispatch")
	}

	cmds := make([]Command, 0, len(calls))
	for _, call := range calls {
		cmd, err := Decode(call)
		if err != nil {
			d.metrics.ObserveToolCall(call.Name, "error")
			d.logger.WarnContext(ctx, "tool call rejected at decode", "tool", call.Name, "error", err)
			return chat.Message{}, err
		}
		cmds = append(cmds, cmd)
	}

	lines := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		result, err := d.Execute(ctx, patientID, cmd)
		if err != nil {
			return chat.Message{}, err
		}
		lines = append(lines, cmd.ToolName()+": "+result)
	}
	return chat.AssistantMessage(ToolMarker + "\n" + strings.Join(lines, "\n")), nil
}

// Execute runs one command and returns its result text.
func (d *Dispatcher) Execute(ctx context.Context, patientID string, cmd Command) (string, error) {
	ctx, span := tracer.Start(ctx, "tools.execute")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", cmd.ToolName()))

	result, err := d.run(ctx, patientID, cmd)
	var rej *scheduling.RejectionError
	switch {
	case errors.As(err, &rej):
		span.SetAttributes(attribute.String("tool.rejection", string(rej.Kind)))
		d.metrics.ObserveToolCall(cmd.ToolName(), "rejected")
		return rej.Error(), nil
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.metrics.ObserveToolCall(cmd.ToolName(), "error")
		d.logger.ErrorContext(ctx, "tool execution failed", "tool", cmd.ToolName(), "error", err)
		return "", fmt.Errorf("tools: %s: %w", cmd.ToolName(), err)
	}
	d.metrics.ObserveToolCall(cmd.ToolName(), "ok")
	return result, nil
}

func (d *Dispatcher) run(ctx context.Context, patientID string, cmd Command) (string, error) {
	switch c := cmd.(type) {
	case ConfirmIdentity:
		rec, err := d.handler.ConfirmIdentity(ctx, patientID, c.FirstName, c.LastName, c.DOB)
		if err != nil {
			return "", err
		}
		return encodeResult(rec)
	case SearchProviders:
		criteria := scheduling.Criteria{
			AppointmentType: scheduling.AppointmentType(c.AppointmentType),
			FirstName:       c.FirstName,
			LastName:        c.LastName,
			Location:        c.Location,
			Specialty:       c.Specialty,
		}
		if c.Timestamp != "" {
			ts, err := scheduling.ParseRequestTime(c.Timestamp)
			if err != nil {
				return "", err
			}
			criteria.Timestamp = &ts
		}
		found, err := d.handler.SearchAvailableProviders(ctx, criteria)
		if err != nil {
			return "", err
		}
		return encodeResult(found)
	case BookAppointment:
		ts, err := scheduling.ParseRequestTime(c.Timestamp)
		if err != nil {
			return "", err
		}
		conf, err := d.handler.BookAppointment(ctx, patientID, scheduling.BookingRequest{
			ProviderFirstName: c.ProviderFirstName,
			ProviderLastName:  c.ProviderLastName,
			Location:          c.Location,
			AppointmentType:   scheduling.AppointmentType(c.AppointmentType),
			Timestamp:         ts,
		})
		if err != nil {
			return "", err
		}
		return conf.Message, nil
	default:
		return "", fmt.Errorf("tools: unhandled command %T", cmd)
	}
}

// encodeResult renders v as compact JSON.
func encodeResult(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("tools: encode result: %w", err)
	}
	return string(b), nil
}

// IsToolMessage reports whether m is a synthetic tool-result message.
func IsToolMessage(m chat.Message) bool {
	return m.Role == chat.RoleAssistant && strings.HasPrefix(m.Content, ToolMarker)
}
