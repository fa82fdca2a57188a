package conversation

import (
	"context"
	"errors"
	"math"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChatCompletion struct {
	response openai.ChatCompletionResponse
	err      error
	lastReq  openai.ChatCompletionRequest
}

func (s *stubChatCompletion) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.lastReq = req
	return s.response, s.err
}

func TestOpenAIClientBuildsToolRequest(t *testing.T) {
	api := &stubChatCompletion{response: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			FinishReason: openai.FinishReasonToolCalls,
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:       "call_1",
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: "book_appointment", Arguments: `{"location":"Sloan"}`},
				}},
			},
		}},
		Usage: openai.Usage{PromptTokens: 120, CompletionTokens: 12, TotalTokens: 132},
	}}
	client := NewOpenAIClient(api)

	resp, err := client.Complete(context.Background(), LLMRequest{
		Model:     "gpt-4o-mini",
		System:    []string{"be helpful"},
		Messages:  []ChatMessage{{Role: ChatRoleUser, Content: "hi"}, {Role: ChatRoleAssistant, Content: "hello"}},
		Tools:     []ToolSpec{{Name: "book_appointment", Description: "Book", Parameters: map[string]any{"type": "object"}}},
		MaxTokens: 500,
	})
	require.NoError(t, err)

	req := api.lastReq
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, float32(math.SmallestNonzeroFloat32), req.Temperature)
	assert.Equal(t, 500, req.MaxCompletionTokens)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, req.Messages[2].Role)
	require.Len(t, req.Tools, 1)
	assert.Equal(t, openai.ToolTypeFunction, req.Tools[0].Type)
	assert.Equal(t, "book_appointment", req.Tools[0].Function.Name)

	assert.Equal(t, []ToolCall{{ID: "call_1", Name: "book_appointment", Arguments: `{"location":"Sloan"}`}}, resp.ToolCalls)
	assert.Equal(t, "tool_calls", resp.StopReason)
	assert.Equal(t, TokenUsage{InputTokens: 120, OutputTokens: 12, TotalTokens: 132}, resp.Usage)
}

func TestOpenAIClientKeepsNonZeroTemperature(t *testing.T) {
	api := &stubChatCompletion{response: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: " hi "}}},
	}}
	resp, err := NewOpenAIClient(api).Complete(context.Background(), LLMRequest{
		Model:       "gpt-4o-mini",
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "hi"}},
		Temperature: 0.4,
	})
	require.NoError(t, err)
	assert.Equal(t, float32(0.4), api.lastReq.Temperature)
	assert.Equal(t, "hi", resp.Text)
	assert.Empty(t, api.lastReq.Tools)
}

func TestOpenAIClientErrors(t *testing.T) {
	_, err := NewOpenAIClient(&stubChatCompletion{}).Complete(context.Background(), LLMRequest{})
	assert.Error(t, err)

	_, err = NewOpenAIClient(&stubChatCompletion{}).Complete(context.Background(), LLMRequest{Model: "m", Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	assert.ErrorContains(t, err, "no choices")

	boom := errors.New("401 unauthorized")
	_, err = NewOpenAIClient(&stubChatCompletion{err: boom}).Complete(context.Background(), LLMRequest{Model: "m", Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	assert.ErrorIs(t, err, boom)

	_, err = NewOpenAIClient(&stubChatCompletion{}).Complete(context.Background(), LLMRequest{Model: "m", Messages: []ChatMessage{{Role: "tool", Content: "x"}}})
	assert.ErrorContains(t, err, "unsupported role")

	_, err = NewOpenAIClientFromKey("", "")
	assert.Error(t, err)
}
