package prompts

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"text/template"
	"time"
)

// Prompt identifiers used by the pipeline.
const (
	ToolCall      = "tool_call"
	Summarization = "summarization"
)

// ErrUnknownPrompt is returned for template ids with no definition.
var ErrUnknownPrompt = errors.New("prompts: unknown prompt")

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer renders a prompt with extra template variables.
type Renderer interface {
	Render(ctx context.Context, id string, vars map[string]any) (string, error)
}

// EmbeddedSource serves the prompts compiled into the binary. Templates run
// with missingkey=error; Date and Weekday are always provided.
type EmbeddedSource struct {
	templates map[string]*template.Template
	loc       *time.Location
	now       func() time.Time
}

// NewEmbeddedSource parses every embedded template. loc controls the date
// shown to the model; nil means UTC.
func NewEmbeddedSource(loc *time.Location) (*EmbeddedSource, error) {
	if loc == nil {
		loc = time.UTC
	}
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("prompts: read templates: %w", err)
	}
	parsed := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		id := strings.TrimSuffix(entry.Name(), ".tmpl")
		raw, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("prompts: read %s: %w", entry.Name(), err)
		}
		t, err := parse(id, string(raw))
		if err != nil {
			return nil, err
		}
		parsed[id] = t
	}
	return &EmbeddedSource{templates: parsed, loc: loc, now: time.Now}, nil
}

// IDs lists the available prompt ids in sorted order.
func (s *EmbeddedSource) IDs() []string {
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve renders the prompt with default variables only.
func (s *EmbeddedSource) Resolve(ctx context.Context, id string) (string, error) {
	return s.Render(ctx, id, nil)
}

// Render executes the prompt. vars override the defaults.
func (s *EmbeddedSource) Render(_ context.Context, id string, vars map[string]any) (string, error) {
	t, ok := s.templates[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrompt, id)
	}
	return execute(t, s.data(vars))
}

func (s *EmbeddedSource) data(vars map[string]any) map[string]any {
	now := s.now().In(s.loc)
	data := map[string]any{
		"Date":    now.Format("01/02/2006"),
		"Weekday": now.Weekday().String(),
	}
	maps.Copy(data, vars)
	return data
}

func parse(id, text string) (*template.Template, error) {
	t, err := template.New(id).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("prompts: parse %s: %w", id, err)
	}
	return t, nil
}

func execute(t *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompts: execute %s: %w", t.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
