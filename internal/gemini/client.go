// Package gemini adapts the google.golang.org/genai SDK to the narrow
// surface the rest of the bot needs: stateless content generation over an
// explicit conversation history, catalog listing, and constructor-level
// model id validation.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/zrlgs/gembot/internal/registry"
	"github.com/zrlgs/gembot/internal/session"
)

const generateAction = "generateContent"

// Sentinel errors for model interaction.
var (
	ErrInvalidModelID = errors.New("invalid model id")
	ErrEmptyResponse  = errors.New("model returned no content")
)

// Client wraps a genai client for the Gemini API backend.
type Client struct {
	client *genai.Client
}

// New creates a client authenticated with apiKey against the Gemini API
// backend.
func New(ctx context.Context, apiKey string) (*Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Client{client: c}, nil
}

// ValidateModel checks that id is plausibly a model id. The check is purely
// syntactic; a passing id can still be rejected by the API at generation
// time.
func (c *Client) ValidateModel(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModelID)
	}
	if strings.ContainsAny(id, " \t\n") {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidModelID, id)
	}
	return nil
}

// Generate sends the conversation history plus the new input to model and
// returns the reply text. History is passed explicitly on every call; the
// SDK holds no conversational state.
func (c *Client) Generate(ctx context.Context, model string, history []session.Turn, input session.Turn) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		contents = append(contents, turnContent(t))
	}
	contents = append(contents, turnContent(input))

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generating content with %s: %w", model, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w (model %s)", ErrEmptyResponse, model)
	}
	return text, nil
}

// ListModels fetches the provider catalog. Pagination is handled by the SDK
// iterator; the full listing is materialized.
func (c *Client) ListModels(ctx context.Context) ([]registry.ModelInfo, error) {
	var out []registry.ModelInfo
	for m, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("listing models: %w", err)
		}
		out = append(out, registry.ModelInfo{
			ID:                 m.Name,
			DisplayName:        m.DisplayName,
			SupportsGeneration: supportsGeneration(m),
		})
	}
	return out, nil
}

func turnContent(t session.Turn) *genai.Content {
	parts := []*genai.Part{{Text: t.Text}}
	if len(t.ImageData) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: t.ImageMIME,
				Data:     t.ImageData,
			},
		})
	}
	return &genai.Content{Role: t.Role, Parts: parts}
}

func supportsGeneration(m *genai.Model) bool {
	for _, a := range m.SupportedActions {
		if a == generateAction {
			return true
		}
	}
	return false
}
