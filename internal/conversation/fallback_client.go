package conversation

import (
	"context"

	"github.com/wolfman30/care-coordinator/pkg/logging"
)

// FallbackLLMClient wraps a primary LLM client with a fallback provider.
// If the primary fails, the same request is sent once to the fallback.
type FallbackLLMClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackLLMClient creates a new fallback-enabled LLM client.
// If fallback is nil, the client will only use the primary provider.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackLLMClient {
	if primary == nil {
		panic("conversation: primary llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackLLMClient{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Complete sends a completion request to the primary LLM.
// If it fails and a fallback is configured, retries with the fallback.
func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}

	// A cancelled turn is abandoned, not retried elsewhere.
	if ctx.Err() != nil {
		return LLMResponse{}, err
	}

	c.logger.WarnContext(ctx, "primary LLM failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)

	if c.fallback == nil {
		return LLMResponse{}, err
	}

	fallbackResp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		c.logger.ErrorContext(ctx, "fallback LLM also failed",
			"primary_error", err.Error(),
			"fallback_error", fallbackErr.Error(),
		)
		return LLMResponse{}, fallbackErr
	}

	c.logger.InfoContext(ctx, "fallback LLM succeeded after primary failure")
	return fallbackResp, nil
}

// PinModel makes client ignore the request's model and use model instead.
// The fallback provider needs this because the pipeline names the primary's model.
func PinModel(client LLMClient, model string) LLMClient {
	if client == nil || model == "" {
		return client
	}
	return pinnedModelClient{client: client, model: model}
}

type pinnedModelClient struct {
	client LLMClient
	model  string
}

func (c pinnedModelClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	req.Model = c.model
	return c.client.Complete(ctx, req)
}
