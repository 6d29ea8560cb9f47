// Package gemini generates preview site copy with Google's Gemini API.
//
// The generator asks for a single JSON object, forces the JSON response
// MIME type, strips the markdown fences models add anyway, and
// validates the result against an embedded JSON Schema before handing
// it to the deployer. Temperature stays low; outreach copy should be
// consistent, not creative.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/isethius/Autowebsites-sub001/lead"
	"github.com/isethius/Autowebsites-sub001/preview"
)

var _ preview.Generator = (*Generator)(nil)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-1.5-flash"

const generationTemperature = 0.2

// Model is the subset of *genai.GenerativeModel the generator calls,
// so tests can stub the API.
type Model interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Generator produces preview content with a Gemini model. It is safe
// for concurrent use.
type Generator struct {
	client *genai.Client
	model  Model
}

// New creates a Generator backed by the Gemini API. An empty modelName
// selects DefaultModel. Extra client options are passed through, which
// is how callers point the generator at a regional or test endpoint.
func New(ctx context.Context, apiKey, modelName string, opts ...option.ClientOption) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	m := client.GenerativeModel(modelName)
	m.SetTemperature(generationTemperature)
	m.ResponseMIMEType = "application/json"

	return &Generator{client: client, model: m}, nil
}

// NewWithModel wraps an already-configured model. Used by tests.
func NewWithModel(m Model) *Generator {
	return &Generator{model: m}
}

// Close releases the underlying API client.
func (g *Generator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Generate implements preview.Generator.
func (g *Generator) Generate(ctx context.Context, l *lead.Lead) (*preview.Content, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(buildPrompt(l)))
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content for %s: %w", l.BusinessName, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	text = cleanJSONBlock(text)

	if err := validateContent(text); err != nil {
		return nil, err
	}

	var content preview.Content
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return nil, fmt.Errorf("gemini: decode content: %w", err)
	}
	return &content, nil
}

func buildPrompt(l *lead.Lead) string {
	site := "The business has no website of its own."
	if l.HasWebsite() {
		site = "The business has an outdated website that this preview will replace."
	}
	return fmt.Sprintf(`You are writing copy for a one-page website preview built to win a small business as a client.

Business name: %s
Industry: %s
Location: %s
%s

Write warm, concrete copy a local customer would trust. No placeholder text, no mention of this being a preview.

Respond with a single JSON object and nothing else, with exactly these fields:
  "headline": short headline naming the business
  "subheadline": one supporting sentence
  "about": a short paragraph about the business
  "services": array of 3 to 6 service names typical for the industry
  "call_to_action": short imperative phrase
  "color_scheme": one of "blue", "green", "warm", "dark", "neutral"`,
		l.BusinessName, l.Industry, l.Location, site)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("gemini: no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// cleanJSONBlock strips markdown code fences. Models wrap JSON in
// ```json blocks even with the JSON MIME type forced.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
