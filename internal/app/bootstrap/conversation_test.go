package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/care-coordinator/internal/chat"
	appconfig "github.com/wolfman30/care-coordinator/internal/config"
	"github.com/wolfman30/care-coordinator/internal/conversation"
	"github.com/wolfman30/care-coordinator/internal/directory"
	"github.com/wolfman30/care-coordinator/internal/ehr"
	"github.com/wolfman30/care-coordinator/pkg/logging"
)

func TestBuildLLMClientRequiresConfig(t *testing.T) {
	_, err := BuildLLMClient(context.Background(), nil, nil)
	require.Error(t, err)
}

func TestBuildLLMClientProviders(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	logger := logging.New("error")

	tests := []struct {
		name      string
		cfg       appconfig.Config
		wantModel string
		wantType  any
		wantErr   string
	}{
		{
			name:      "openai",
			cfg:       appconfig.Config{LLMProvider: "openai", OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini"},
			wantModel: "gpt-4o-mini",
			wantType:  &conversation.OpenAIClient{},
		},
		{
			name:    "openai without key",
			cfg:     appconfig.Config{LLMProvider: "openai"},
			wantErr: "api key is required",
		},
		{
			name:      "bedrock",
			cfg:       appconfig.Config{LLMProvider: "bedrock", BedrockModelID: "anthropic.claude-3-haiku", AWSRegion: "us-east-1", AWSAccessKeyID: "test", AWSSecretAccessKey: "test"},
			wantModel: "anthropic.claude-3-haiku",
			wantType:  &conversation.BedrockLLMClient{},
		},
		{
			name:    "bedrock without model",
			cfg:     appconfig.Config{LLMProvider: "bedrock", AWSRegion: "us-east-1"},
			wantErr: "BEDROCK_MODEL_ID",
		},
		{
			name:    "gemini without key",
			cfg:     appconfig.Config{LLMProvider: "gemini"},
			wantErr: "gemini api key is required",
		},
		{
			name:    "unknown provider",
			cfg:     appconfig.Config{LLMProvider: "llama"},
			wantErr: `unknown llm provider "llama"`,
		},
		{
			name:      "fallback wraps primary",
			cfg:       appconfig.Config{LLMProvider: "openai", OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini", LLMFallbackProvider: "bedrock", BedrockModelID: "anthropic.claude-3-haiku", AWSRegion: "us-east-1", AWSAccessKeyID: "test", AWSSecretAccessKey: "test"},
			wantModel: "gpt-4o-mini",
			wantType:  &conversation.FallbackLLMClient{},
		},
		{
			name:      "broken fallback is skipped",
			cfg:       appconfig.Config{LLMProvider: "openai", OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-4o-mini", LLMFallbackProvider: "gemini"},
			wantModel: "gpt-4o-mini",
			wantType:  &conversation.OpenAIClient{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			llm, err := BuildLLMClient(context.Background(), &cfg, logger)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer llm.Close()
			assert.Equal(t, tt.wantModel, llm.Model)
			assert.IsType(t, tt.wantType, llm.Client)
		})
	}
}

type scriptedClient struct {
	reply    string
	requests []conversation.LLMRequest
}

func (s *scriptedClient) Complete(_ context.Context, req conversation.LLMRequest) (conversation.LLMResponse, error) {
	s.requests = append(s.requests, req)
	return conversation.LLMResponse{Text: s.reply}, nil
}

func TestBuildPipeline(t *testing.T) {
	ehrServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"name":"John Doe","dob":"01/01/1975","appointments":[]}`))
	}))
	defer ehrServer.Close()
	patients, err := ehr.New(ehr.Config{BaseURL: ehrServer.URL})
	require.NoError(t, err)

	source, overrides, err := BuildPromptSource(&appconfig.Config{PromptTimezone: "UTC"}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, overrides)

	_, pm := BuildMetrics()
	client := &scriptedClient{reply: "Hello! How can I help?"}
	cfg := &appconfig.Config{LLMTimeout: 5 * time.Second, LLMMaxTokens: 256}

	pipeline := BuildPipeline(cfg, PipelineDeps{
		LLM:      &LLM{Client: client, Model: "test-model", Close: func() {}},
		Prompts:  source,
		Store:    directory.NewMemoryStore(directory.DefaultDirectory()),
		Patients: patients,
		Metrics:  pm,
	})

	reply, err := pipeline.CreateMessage(context.Background(), []chat.Message{chat.UserMessage("hi")}, "1")
	require.NoError(t, err)
	assert.Equal(t, chat.AssistantMessage("Hello! How can I help?"), reply)

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	assert.Equal(t, "test-model", req.Model)
	assert.EqualValues(t, 256, req.MaxTokens)
	assert.Len(t, req.Tools, 3)
	assert.True(t, strings.Contains(strings.Join(req.System, "\n"), "care coordinator"))
}
