package conversation

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/care-coordinator/internal/tools"
)

func TestGeminiSchemaFromManifest(t *testing.T) {
	defs := tools.Definitions()
	schema := geminiSchema(defs[2].JSONSchema())

	assert.Equal(t, genai.TypeObject, schema.Type)
	assert.Equal(t, []string{"provider_first_name", "provider_last_name", "location", "appointment_type", "timestamp"}, schema.Required)
	require.Contains(t, schema.Properties, "appointment_type")
	assert.Equal(t, genai.TypeString, schema.Properties["appointment_type"].Type)
	assert.Equal(t, []string{"NEW", "EXISTING"}, schema.Properties["appointment_type"].Enum)

	search := geminiSchema(defs[1].JSONSchema())
	assert.Empty(t, search.Required)
	assert.Nil(t, geminiSchema(nil))
}

func TestGeminiExtractOutput(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("Checking "),
				genai.FunctionCall{Name: "search_available_providers", Args: map[string]any{"specialty": "Orthopedics"}},
			}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 7, CandidatesTokenCount: 3, TotalTokenCount: 10},
	}

	out, err := geminiExtractOutput(resp)
	require.NoError(t, err)
	assert.Equal(t, "Checking", out.Text)
	require.Len(t, out.ToolCalls, 1)
	assert.NotEmpty(t, out.ToolCalls[0].ID)
	assert.Equal(t, "search_available_providers", out.ToolCalls[0].Name)
	assert.JSONEq(t, `{"specialty":"Orthopedics"}`, out.ToolCalls[0].Arguments)
	assert.Equal(t, TokenUsage{InputTokens: 7, OutputTokens: 3, TotalTokens: 10}, out.Usage)

	_, err = geminiExtractOutput(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}

func TestGeminiHistorySkipsSystemAndMapsRoles(t *testing.T) {
	history := geminiHistory([]ChatMessage{
		{Role: ChatRoleSystem, Content: "sys"},
		{Role: ChatRoleUser, Content: "hi"},
		{Role: ChatRoleAssistant, Content: "hello"},
		{Role: ChatRoleUser, Content: "  "},
	})
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
}

func TestNewGeminiLLMClientRequiresKey(t *testing.T) {
	_, err := NewGeminiLLMClient(context.Background(), "", "")
	assert.Error(t, err)
}
