package engine

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is the chat model answers are generated with.
const DefaultModel = "gemini-2.0-flash"

// GeminiGenerator implements TextGenerator on the Gemini API.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGeminiGenerator creates a generator backed by the Gemini API.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, temperature float64, maxTokens int) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("engine: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: create client: %w", err)
	}

	return &GeminiGenerator{
		client:      client,
		model:       model,
		temperature: float32(temperature),
		maxTokens:   int32(maxTokens),
	}, nil
}

// Generate produces the answer text for a prompt.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("engine: generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("engine: model returned no text")
	}
	return text, nil
}
