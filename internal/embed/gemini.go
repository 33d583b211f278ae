// Package embed turns corpus text into dense vectors using the Gemini
// embedding API. The Batcher wraps a raw client with the batching, rate
// limiting and retry behavior the API's quotas require.
package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the embedding model used for the corpus.
	DefaultModel = "gemini-embedding-001"

	// DefaultDimensions is the output dimensionality requested from the
	// model. Every stored vector and every query vector must use the same
	// value or distance comparisons are meaningless.
	DefaultDimensions = 3072
)

// Gemini embeds text through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	dims   int32
}

// NewGemini creates an embedder backed by the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string, dims int) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embed: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if dims <= 0 {
		dims = DefaultDimensions
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: create client: %w", err)
	}

	return &Gemini{client: client, model: model, dims: int32(dims)}, nil
}

// Embed returns the vector for a single text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in a single API call. The result is parallel to
// texts. An empty embedding in the response is treated as an error so a
// silent zero vector never reaches the index.
func (g *Gemini) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr[int32](g.dims),
	})
	if err != nil {
		return nil, fmt.Errorf("embed: batch of %d: %w", len(texts), err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("embed: empty embedding at index %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}
