package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/care-coordinator/internal/chat"
	"github.com/wolfman30/care-coordinator/internal/ehr"
	"github.com/wolfman30/care-coordinator/internal/prompts"
	"github.com/wolfman30/care-coordinator/internal/tools"
	"github.com/wolfman30/care-coordinator/pkg/logging"
)

// MessageCreator produces the next assistant message for a conversation.
type MessageCreator interface {
	CreateMessage(ctx context.Context, history []chat.Message, patientID string) (chat.Message, error)
}

// PatientSource fetches a patient record for the debug endpoint.
type PatientSource interface {
	GetPatient(ctx context.Context, id string) (*ehr.PatientRecord, error)
}

// PromptOverrides stores runtime prompt overrides.
type PromptOverrides interface {
	Override(ctx context.Context, id, text string) error
	Reset(ctx context.Context, id string) error
}

// HandlerConfig collects the handler's collaborators. Overrides is optional.
type HandlerConfig struct {
	Pipeline  MessageCreator
	Patients  PatientSource
	Prompts   prompts.Renderer
	Overrides PromptOverrides
	PatientID string
	Logger    *logging.Logger
}

// Handler wires HTTP requests to the conversation pipeline.
type Handler struct {
	pipeline  MessageCreator
	patients  PatientSource
	prompts   prompts.Renderer
	overrides PromptOverrides
	patientID string
	logger    *logging.Logger
}

// NewHandler creates a conversation handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Pipeline == nil {
		panic("conversation: pipeline cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.PatientID == "" {
		cfg.PatientID = "1"
	}
	return &Handler{
		pipeline:  cfg.Pipeline,
		patients:  cfg.Patients,
		prompts:   cfg.Prompts,
		overrides: cfg.Overrides,
		patientID: cfg.PatientID,
		logger:    cfg.Logger,
	}
}

// CreateMessageRequest is the body of POST /message/create.
type CreateMessageRequest struct {
	Messages  []chat.Message `json:"messages"`
	PatientID string         `json:"patientId,omitempty"`
}

// CreateMessageResponse wraps the generated reply.
type CreateMessageResponse struct {
	Message chat.Message `json:"message"`
}

// CreateMessage handles POST /message/create.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode message request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "messages are required", http.StatusBadRequest)
		return
	}
	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		patientID = h.patientID
	}

	reply, err := h.pipeline.CreateMessage(r.Context(), req.Messages, patientID)
	if err != nil {
		status := statusForError(err)
		h.logger.Error("failed to create message", "error", err, "status", status)
		http.Error(w, http.StatusText(status), status)
		return
	}
	h.writeJSON(w, http.StatusOK, CreateMessageResponse{Message: reply})
}

// statusForError maps turn failures onto HTTP codes: caller mistakes are
// 400, upstream and model misbehaviour 502, timeouts 504.
func statusForError(err error) int {
	var (
		upstream *ehr.UpstreamError
		model    *ModelError
		unknown  *tools.UnknownToolError
		badArgs  *tools.ArgumentError
	)
	switch {
	case errors.Is(err, chat.ErrSystemMessage), errors.Is(err, chat.ErrInvalidRole), errors.Is(err, ErrEmptyHistory):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &upstream), errors.As(err, &model), errors.As(err, &unknown), errors.As(err, &badArgs):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DebugUser handles GET /debug/user.
func (h *Handler) DebugUser(w http.ResponseWriter, r *http.Request) {
	if h.patients == nil {
		http.Error(w, "patient source not configured", http.StatusNotImplemented)
		return
	}
	rec, err := h.patients.GetPatient(r.Context(), h.patientID)
	if err != nil {
		h.logger.Error("failed to fetch patient", "error", err)
		http.Error(w, http.StatusText(statusForError(err)), statusForError(err))
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// PromptRequest is the body of POST /debug/prompt.
type PromptRequest struct {
	TemplateID   string         `json:"template_id"`
	Role         chat.Role      `json:"role"`
	PromptKwargs map[string]any `json:"prompt_kwargs,omitempty"`
}

// DebugPrompt handles POST /debug/prompt by rendering a template into a message.
func (h *Handler) DebugPrompt(w http.ResponseWriter, r *http.Request) {
	if h.prompts == nil {
		http.Error(w, "prompt source not configured", http.StatusNotImplemented)
		return
	}
	var req PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Role.Valid() {
		http.Error(w, "invalid role", http.StatusBadRequest)
		return
	}
	text, err := h.prompts.Render(r.Context(), req.TemplateID, req.PromptKwargs)
	if err != nil {
		if errors.Is(err, prompts.ErrUnknownPrompt) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("failed to render prompt", "template_id", req.TemplateID, "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	h.writeJSON(w, http.StatusOK, chat.Message{Role: req.Role, Content: text})
}

// OverridePrompt handles PUT /debug/prompt/{id} with the raw template text as body.
func (h *Handler) OverridePrompt(w http.ResponseWriter, r *http.Request) {
	if h.overrides == nil {
		http.Error(w, "prompt overrides not configured", http.StatusNotImplemented)
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.overrides.Override(r.Context(), id, body.Text); err != nil {
		h.logger.Error("failed to override prompt", "template_id", id, "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPrompt handles DELETE /debug/prompt/{id}.
func (h *Handler) ResetPrompt(w http.ResponseWriter, r *http.Request) {
	if h.overrides == nil {
		http.Error(w, "prompt overrides not configured", http.StatusNotImplemented)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.overrides.Reset(r.Context(), id); err != nil {
		h.logger.Error("failed to reset prompt", "template_id", id, "error", err)
		http.Error(w, "failed to reset prompt", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
