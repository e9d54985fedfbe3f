// Package textgen drafts logbook titles and descriptions from a short prompt.
// The submission path never depends on it.
package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"

	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/logger"
)

var ErrNoAPIKey = errors.New("text generation API key is not configured")

type Request struct {
	Prompt string
	// Context is optional structured detail such as date, location or kind.
	Context map[string]string
}

type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Generator returns nil, nil when it has nothing usable to offer.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Draft, error)
}

const systemPrompt = `You write entries for an internship activity logbook.
Given a note from the student, produce a short title and a factual description
of the work done, written in the first person, past tense, 2 to 5 sentences.
Do not invent details that are not in the note or the context.
If the note has no usable content, return an empty title and description.`

const draftSchema = `{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"}
  },
  "required": ["title", "description"],
  "additionalProperties": false
}`

// prompter returns the first text block of a structured reply, or "" when
// the reply has no content.
type prompter func(system, user, schema string, settings types.RequestSettings) (string, error)

type AnthropicGenerator struct {
	config *config.TextGenConfig
	prompt prompter
	log    *logger.Logger
}

func NewAnthropic(cfg *config.TextGenConfig) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	return &AnthropicGenerator{
		config: cfg,
		prompt: func(system, user, schema string, settings types.RequestSettings) (string, error) {
			response, err := anthropic.PromptWithSettings(system, user, schema, cfg.APIKey, settings)
			if err != nil {
				return "", err
			}
			if len(response.Content) == 0 {
				return "", nil
			}
			return response.Content[0].Text, nil
		},
		log: logger.WithComponent("textgen"),
	}, nil
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (*Draft, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	settings := types.RequestSettings{
		Model:       g.config.Model,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	g.log.Info("Drafting entry from %d-character prompt", len(req.Prompt))
	text, err := g.prompt(systemPrompt, UserPrompt(req), draftSchema, settings)
	if err != nil {
		return nil, fmt.Errorf("draft request failed: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	return ParseDraft(text)
}

// UserPrompt renders the note followed by its context in key order.
func UserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Note:\n")
	b.WriteString(strings.TrimSpace(req.Prompt))

	if len(req.Context) > 0 {
		keys := make([]string, 0, len(req.Context))
		for k := range req.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\n\nContext:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, req.Context[k])
		}
	}
	return b.String()
}

// ParseDraft decodes the structured reply. A reply with neither field set is
// the absence signal.
func ParseDraft(text string) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &d); err != nil {
		return nil, fmt.Errorf("failed to parse draft response: %w", err)
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	if d.Title == "" && d.Description == "" {
		return nil, nil
	}
	return &d, nil
}
