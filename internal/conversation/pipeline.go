package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/care-coordinator/internal/chat"
	"github.com/wolfman30/care-coordinator/internal/observability/metrics"
	"github.com/wolfman30/care-coordinator/internal/prompts"
	"github.com/wolfman30/care-coordinator/internal/tools"
	"github.com/wolfman30/care-coordinator/pkg/logging"
)

// State names a step of a single turn.
type State string

const (
	StateAwaitUser    State = "AWAIT_USER"
	StateDecideAndAct State = "DECIDE_AND_ACT"
	StateDirectReply  State = "DIRECT_REPLY"
	StateToolPhase    State = "TOOL_PHASE"
	StateSummarize    State = "SUMMARIZE"
	StateDone         State = "DONE"
)

const (
	defaultModelTimeout = 60 * time.Second
	defaultMaxTokens    = 500
)

var (
	// ErrEmptyHistory is returned when a turn has no messages to answer.
	ErrEmptyHistory = errors.New("conversation: history is empty")
	// ErrEmptyReply is returned when the model produced neither text nor tool calls.
	ErrEmptyReply = errors.New("conversation: llm returned empty response")
)

// ModelError wraps a failed model call with the phase it happened in.
type ModelError struct {
	Phase string
	Err   error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("conversation: %s llm call failed: %v", e.Phase, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

var pipelineTracer = otel.Tracer("care-coordinator.internal.conversation.pipeline")

var llmLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "care",
		Subsystem: "conversation",
		Name:      "llm_latency_seconds",
		Help:      "Latency of LLM completions",
		Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10, 15, 20, 30, 60},
	},
	[]string{"model", "phase", "status"},
)

var llmTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "care",
		Subsystem: "conversation",
		Name:      "llm_tokens_total",
		Help:      "Tokens used by the LLM",
	},
	[]string{"model", "type"}, // type: input, output, total
)

func init() {
	prometheus.MustRegister(llmLatency)
	prometheus.MustRegister(llmTokensTotal)
}

// RegisterMetrics registers conversation metrics with a custom registry.
// Use this when exposing a non-default registry.
func RegisterMetrics(reg prometheus.Registerer) {
	if reg == nil || reg == prometheus.DefaultRegisterer {
		return
	}
	reg.MustRegister(llmLatency, llmTokensTotal)
}

// ToolDispatcher executes the tool calls of one model turn.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, patientID string, calls []tools.Call) (chat.Message, error)
}

// Pipeline runs the two-phase decide-then-summarize protocol for one turn.
// It holds no per-conversation state and is safe for concurrent use.
type Pipeline struct {
	client     LLMClient
	prompts    chat.PromptSource
	dispatcher ToolDispatcher
	model      string
	maxTokens  int32
	timeout    time.Duration
	toolSpecs  []ToolSpec
	logger     *logging.Logger
	metrics    *metrics.PipelineMetrics
}

type PipelineOption func(*Pipeline)

// WithMaxTokens bounds the output length of every model call.
func WithMaxTokens(n int32) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithModelTimeout bounds each individual model call.
func WithModelTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPipelineMetrics records turn outcomes.
func WithPipelineMetrics(m *metrics.PipelineMetrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func NewPipeline(client LLMClient, source chat.PromptSource, dispatcher ToolDispatcher, model string, logger *logging.Logger, opts ...PipelineOption) *Pipeline {
	if client == nil {
		panic("conversation: llm client cannot be nil")
	}
	if source == nil {
		panic("conversation: prompt source cannot be nil")
	}
	if dispatcher == nil {
		panic("conversation: tool dispatcher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	p := &Pipeline{
		client:     client,
		prompts:    source,
		dispatcher: dispatcher,
		model:      model,
		maxTokens:  defaultMaxTokens,
		timeout:    defaultModelTimeout,
		toolSpecs:  ToolSpecs(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ToolSpecs is the tool manifest offered to the model in the decide phase.
func ToolSpecs() []ToolSpec {
	return toolSpecs(tools.Definitions())
}

func toolSpecs(defs []tools.Definition) []ToolSpec {
	specs := make([]ToolSpec, 0, len(defs))
	for _, d := range defs {
		specs = append(specs, ToolSpec{Name: d.Name, Description: d.Description, Parameters: d.JSONSchema()})
	}
	return specs
}

// CreateMessage answers the conversation with exactly one new assistant
// message. history is the customer-facing thread and is never modified.
func (p *Pipeline) CreateMessage(ctx context.Context, history []chat.Message, patientID string) (chat.Message, error) {
	start := time.Now()
	reply, path, err := p.turn(ctx, history, patientID)
	if err != nil {
		path = "error"
	}
	p.metrics.ObserveTurn(path, time.Since(start).Seconds())
	return reply, err
}

func (p *Pipeline) turn(ctx context.Context, history []chat.Message, patientID string) (chat.Message, string, error) {
	ctx, span := pipelineTracer.Start(ctx, "conversation.turn")
	defer span.End()

	fail := func(state State, err error) (chat.Message, string, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.WarnContext(ctx, "conversation turn failed", "state", string(state), "error", err)
		return chat.Message{}, "", err
	}

	if len(history) == 0 {
		return fail(StateAwaitUser, ErrEmptyHistory)
	}
	thread, err := chat.NewHistory(history...)
	if err != nil {
		return fail(StateAwaitUser, err)
	}
	// All work happens on a fork; the caller commits the returned reply.
	work := thread.Fork()

	rendered, err := work.Render(ctx, p.prompts, prompts.ToolCall)
	if err != nil {
		return fail(StateDecideAndAct, err)
	}
	decision, err := p.complete(ctx, "decide", rendered, p.toolSpecs)
	if err != nil {
		return fail(StateDecideAndAct, err)
	}

	if len(decision.ToolCalls) == 0 {
		text := strings.TrimSpace(decision.Text)
		if text == "" {
			return fail(StateDirectReply, ErrEmptyReply)
		}
		span.SetAttributes(attribute.String("care.turn.path", string(StateDirectReply)))
		return chat.AssistantMessage(text), "direct", nil
	}

	calls := make([]tools.Call, 0, len(decision.ToolCalls))
	names := make([]string, 0, len(decision.ToolCalls))
	for _, tc := range decision.ToolCalls {
		calls = append(calls, tools.Call{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
		names = append(names, tc.Name)
	}
	span.SetAttributes(
		attribute.String("care.turn.path", string(StateToolPhase)),
		attribute.StringSlice("care.turn.tools", names),
	)
	p.logger.InfoContext(ctx, "dispatching tool calls", "tools", names)

	toolMsg, err := p.dispatcher.Dispatch(ctx, patientID, calls)
	if err != nil {
		return fail(StateToolPhase, err)
	}
	if err := work.Append(toolMsg); err != nil {
		return fail(StateToolPhase, err)
	}

	last, _ := work.Last()
	if !tools.IsToolMessage(last) {
		return fail(StateToolPhase, errors.New("conversation: tool phase produced an untagged message"))
	}

	// The summarization fork keeps the tool results for context; only the
	// summary is returned to the caller.
	summary, err := work.Fork().Render(ctx, p.prompts, prompts.Summarization)
	if err != nil {
		return fail(StateSummarize, err)
	}
	final, err := p.complete(ctx, "summarize", summary, nil)
	if err != nil {
		return fail(StateSummarize, err)
	}
	if len(final.ToolCalls) > 0 {
		p.logger.WarnContext(ctx, "ignoring tool calls requested during summarization", "count", len(final.ToolCalls))
	}
	text := strings.TrimSpace(strings.ReplaceAll(final.Text, tools.ToolMarker, ""))
	if text == "" {
		return fail(StateSummarize, ErrEmptyReply)
	}
	return chat.AssistantMessage(text), "tool", nil
}

func (p *Pipeline) complete(ctx context.Context, phase string, rendered []chat.Message, specs []ToolSpec) (LLMResponse, error) {
	ctx, span := pipelineTracer.Start(ctx, "conversation.llm")
	defer span.End()

	system, messages := splitSystemAndMessages(toChatMessages(rendered))
	req := LLMRequest{
		Model:       p.model,
		System:      system,
		Messages:    messages,
		Tools:       specs,
		MaxTokens:   p.maxTokens,
		Temperature: 0,
	}
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.Complete(callCtx, req)
	latency := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	llmLatency.WithLabelValues(p.model, phase, status).Observe(latency.Seconds())
	if span.IsRecording() {
		span.SetAttributes(
			attribute.String("care.llm.phase", phase),
			attribute.String("care.llm.model", p.model),
			attribute.Float64("care.llm.latency_ms", float64(latency.Milliseconds())),
			attribute.Int("care.llm.input_tokens", int(resp.Usage.InputTokens)),
			attribute.Int("care.llm.output_tokens", int(resp.Usage.OutputTokens)),
			attribute.Int("care.llm.tool_calls", len(resp.ToolCalls)),
			attribute.String("care.llm.stop_reason", resp.StopReason),
		)
	}
	if err != nil {
		span.RecordError(err)
		return LLMResponse{}, &ModelError{Phase: phase, Err: err}
	}
	if resp.Usage.InputTokens > 0 {
		llmTokensTotal.WithLabelValues(p.model, "input").Add(float64(resp.Usage.InputTokens))
	}
	if resp.Usage.OutputTokens > 0 {
		llmTokensTotal.WithLabelValues(p.model, "output").Add(float64(resp.Usage.OutputTokens))
	}
	if resp.Usage.TotalTokens > 0 {
		llmTokensTotal.WithLabelValues(p.model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	p.logger.InfoContext(ctx, "llm completion finished",
		"phase", phase,
		"model", p.model,
		"latency_ms", latency.Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"tool_calls", len(resp.ToolCalls),
		"stop_reason", resp.StopReason,
	)
	return resp, nil
}
