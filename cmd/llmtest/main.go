package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/wolfman30/care-coordinator/cmd/mainconfig"
	"github.com/wolfman30/care-coordinator/internal/app/bootstrap"
	"github.com/wolfman30/care-coordinator/internal/conversation"
	"github.com/wolfman30/care-coordinator/internal/tools"
)

// llmtest sends one tool-enabled request to every configured provider and
// reports whether it answered with the expected tool call.
func main() {
	cfg, err := mainconfig.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	providers := []string{"openai", "bedrock", "gemini"}
	if len(os.Args) > 1 {
		providers = os.Args[1:]
	}

	failed := false
	for _, name := range providers {
		client, model, closeFn, err := bootstrap.BuildProvider(context.Background(), cfg, name)
		if err != nil {
			fmt.Printf("[%s] skipped: %v\n", name, err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.LLMTimeout)
		res := probe(ctx, client, model)
		cancel()
		closeFn()

		report(os.Stdout, name, res)
		failed = failed || !res.ok()
	}
	if failed {
		os.Exit(1)
	}
}

type probeResult struct {
	model   string
	elapsed time.Duration
	resp    conversation.LLMResponse
	err     error
}

func (r probeResult) ok() bool {
	if r.err != nil || len(r.resp.ToolCalls) != 1 {
		return false
	}
	call := r.resp.ToolCalls[0]
	if call.Name != tools.NameSearchProviders {
		return false
	}
	cmd, err := tools.Decode(tools.Call{ID: call.ID, Name: call.Name, Arguments: call.Arguments})
	if err != nil {
		return false
	}
	search, isSearch := cmd.(tools.SearchProviders)
	return isSearch && strings.EqualFold(search.Specialty, "cardiology")
}

func probe(ctx context.Context, client conversation.LLMClient, model string) probeResult {
	req := conversation.LLMRequest{
		Model: model,
		System: []string{
			"You schedule appointments for a medical group. Use the tools to look up providers. " +
				"Specialty names are single words such as Cardiology or Orthopedics.",
		},
		Messages: []conversation.ChatMessage{
			{Role: conversation.ChatRoleUser, Content: "Which cardiology providers do you have?"},
		},
		Tools:       conversation.ToolSpecs(),
		MaxTokens:   200,
		Temperature: 0,
	}
	start := time.Now()
	resp, err := client.Complete(ctx, req)
	return probeResult{model: model, elapsed: time.Since(start), resp: resp, err: err}
}

func report(w io.Writer, name string, r probeResult) {
	status := "ok"
	if !r.ok() {
		status = "FAILED"
	}
	fmt.Fprintf(w, "[%s] %s model=%s elapsed=%s\n", name, status, r.model, r.elapsed.Round(time.Millisecond))
	if r.err != nil {
		fmt.Fprintf(w, "    error: %v\n", r.err)
		return
	}
	for _, call := range r.resp.ToolCalls {
		fmt.Fprintf(w, "    tool call: %s %s\n", call.Name, call.Arguments)
	}
	if r.resp.Text != "" {
		fmt.Fprintf(w, "    text: %s\n", r.resp.Text)
	}
	fmt.Fprintf(w, "    tokens: in=%d out=%d stop=%s\n", r.resp.Usage.InputTokens, r.resp.Usage.OutputTokens, r.resp.StopReason)
}
