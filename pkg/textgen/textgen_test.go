package textgen

import (
	"context"
	"errors"
	"testing"

	"github.com/aktagon/llmkit/anthropic/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logbook-automation/pkg/config"
	"github.com/logbook-automation/pkg/logger"
)

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    *Draft
		wantErr bool
	}{
		{"full", `{"title":"Deploy","description":"Deployed the service."}`, &Draft{Title: "Deploy", Description: "Deployed the service."}, false},
		{"trims", "  {\"title\":\" Deploy \",\"description\":\"x\"}\n", &Draft{Title: "Deploy", Description: "x"}, false},
		{"empty fields are absence", `{"title":"","description":"  "}`, nil, false},
		{"not json", "Sure! Here is your entry", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDraft(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserPromptOrdersContext(t *testing.T) {
	got := UserPrompt(Request{
		Prompt:  " fixed the login bug ",
		Context: map[string]string{"location": "Graha X", "date": "2025-03-01"},
	})
	assert.Equal(t, "Note:\nfixed the login bug\n\nContext:\n- date: 2025-03-01\n- location: Graha X\n", got)
}

func TestNewAnthropicRequiresKey(t *testing.T) {
	_, err := NewAnthropic(&config.TextGenConfig{})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func newTestGenerator(reply string, err error) (*AnthropicGenerator, *types.RequestSettings) {
	var seen types.RequestSettings
	g := &AnthropicGenerator{
		config: &config.TextGenConfig{APIKey: "k", Model: "m", MaxTokens: 100, Temperature: 0.2},
		log:    logger.NewNop(),
		prompt: func(system, user, schema string, settings types.RequestSettings) (string, error) {
			seen = settings
			return reply, err
		},
	}
	return g, &seen
}

func TestGenerate(t *testing.T) {
	g, seen := newTestGenerator(`{"title":"Standup","description":"Joined the standup."}`, nil)

	d, err := g.Generate(context.Background(), Request{Prompt: "standup"})
	require.NoError(t, err)
	assert.Equal(t, "Standup", d.Title)
	assert.Equal(t, "m", seen.Model)
	assert.Equal(t, 100, seen.MaxTokens)
}

func TestGenerateAbsence(t *testing.T) {
	g, _ := newTestGenerator("", nil)

	d, err := g.Generate(context.Background(), Request{Prompt: "standup"})
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = g.Generate(context.Background(), Request{Prompt: "   "})
	require.NoError(t, err)
	assert.Nil(t, d, "blank prompts never reach the API")
}

func TestGenerateError(t *testing.T) {
	g, _ := newTestGenerator("", errors.New("429 rate limited"))

	_, err := g.Generate(context.Background(), Request{Prompt: "standup"})
	assert.ErrorContains(t, err, "429")
}
