package embeddings

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "text-embedding-004"

// GeminiEmbedder calls the Gemini embedContent endpoint.
type GeminiEmbedder struct {
	model  string
	client *genai.Client
}

// NewGeminiEmbedder creates a new Gemini embedder. baseURL may be empty.
func NewGeminiEmbedder(ctx context.Context, apiKey, model, baseURL string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	cc := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: create client: %w", err)
	}
	return &GeminiEmbedder{model: model, client: client}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("gemini embed: no embedding returned")
	}
	return Vector(resp.Embeddings[0].Values), nil
}
