package ai

import (
	"context"
	"fmt"

	"github.com/alakara/harvest/internal/integrations"
	"google.golang.org/genai"
)

// Gemini answers with a Google Gemini model.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int32
	temp      float32
}

func NewGemini(ctx context.Context, cfg integrations.AIConfig) (*Gemini, error) {
	if cfg.GeminiKey == "" {
		return nil, fmt.Errorf("ai: Gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create Gemini client: %w", err)
	}
	return &Gemini{
		client:    client,
		model:     cfg.GeminiModel,
		maxTokens: int32(cfg.MaxTokens),
		temp:      cfg.Temperature,
	}, nil
}

func (g *Gemini) Respond(ctx context.Context, message string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(Persona(message)), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temp),
		MaxOutputTokens: g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("ai: gemini generate: %w", err)
	}
	return resp.Text(), nil
}
