package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	appconfig "github.com/wolfman30/care-coordinator/internal/config"
	"github.com/wolfman30/care-coordinator/internal/conversation"
	"github.com/wolfman30/care-coordinator/internal/directory"
	"github.com/wolfman30/care-coordinator/internal/observability/metrics"
	"github.com/wolfman30/care-coordinator/internal/scheduling"
	"github.com/wolfman30/care-coordinator/internal/tools"
	"github.com/wolfman30/care-coordinator/pkg/logging"
)

// LLM is the model client the pipeline talks to, plus the model id it
// requests and a hook that releases provider resources.
type LLM struct {
	Client conversation.LLMClient
	Model  string
	Close  func()
}

// BuildLLMClient wires LLM_PROVIDER and, when set, LLM_FALLBACK_PROVIDER. The
// fallback is pinned to its own model id.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*LLM, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	primary, model, closePrimary, err := BuildProvider(ctx, cfg, cfg.LLMProvider)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: primary llm: %w", err)
	}
	llm := &LLM{Client: primary, Model: model, Close: closePrimary}

	name := cfg.LLMFallbackProvider
	if name == "" || name == cfg.LLMProvider {
		logger.Info("using LLM provider", "provider", cfg.LLMProvider, "model", model)
		return llm, nil
	}
	fallback, fallbackModel, closeFallback, err := BuildProvider(ctx, cfg, name)
	if err != nil {
		logger.Warn("fallback LLM unavailable", "provider", name, "error", err)
		return llm, nil
	}
	llm.Client = conversation.NewFallbackLLMClient(primary, conversation.PinModel(fallback, fallbackModel), logger)
	llm.Close = func() {
		closePrimary()
		closeFallback()
	}
	logger.Info("using LLM provider with fallback",
		"provider", cfg.LLMProvider,
		"model", model,
		"fallback_provider", name,
		"fallback_model", fallbackModel,
	)
	return llm, nil
}

// BuildProvider builds one named provider and returns it with its model id
// and a closer.
func BuildProvider(ctx context.Context, cfg *appconfig.Config, name string) (conversation.LLMClient, string, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai", "":
		client, err := conversation.NewOpenAIClientFromKey(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		if err != nil {
			return nil, "", nil, err
		}
		return client, cfg.OpenAIModel, noop, nil
	case "bedrock":
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, "", nil, errors.New("BEDROCK_MODEL_ID is required for the bedrock provider")
		}
		api, err := NewBedrockClient(ctx, cfg)
		if err != nil {
			return nil, "", nil, fmt.Errorf("load aws config: %w", err)
		}
		return conversation.NewBedrockLLMClient(api), cfg.BedrockModelID, noop, nil
	case "gemini":
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, "", nil, err
		}
		return client, cfg.GeminiModel, func() { _ = client.Close() }, nil
	default:
		return nil, "", nil, fmt.Errorf("unknown llm provider %q", name)
	}
}

// PipelineDeps are the collaborators of one conversation pipeline.
type PipelineDeps struct {
	LLM      *LLM
	Prompts  PromptSource
	Store    directory.Store
	Patients scheduling.PatientSource
	Metrics  *metrics.PipelineMetrics
	Logger   *logging.Logger
}

// BuildPipeline assembles the scheduling engine, tool dispatcher and
// two-phase pipeline.
func BuildPipeline(cfg *appconfig.Config, deps PipelineDeps) *conversation.Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	engine := scheduling.NewEngine(deps.Store, deps.Patients, logger.With("component", "scheduling"))
	dispatcher := tools.NewDispatcher(engine, logger.With("component", "tools"), deps.Metrics)

	opts := []conversation.PipelineOption{conversation.WithPipelineMetrics(deps.Metrics)}
	if cfg != nil {
		opts = append(opts,
			conversation.WithModelTimeout(cfg.LLMTimeout),
			conversation.WithMaxTokens(int32(cfg.LLMMaxTokens)),
		)
	}
	return conversation.NewPipeline(deps.LLM.Client, deps.Prompts, dispatcher, deps.LLM.Model, logger.With("component", "pipeline"), opts...)
}
