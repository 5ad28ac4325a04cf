// Package ai answers farmer questions. A language model provider is tried
// first; any failure or empty answer falls back to the keyword rules.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alakara/harvest/internal/integrations"
)

// Responder produces an answer for a user message.
type Responder interface {
	Respond(ctx context.Context, message string) (string, error)
}

// Persona frames the user's question for the model.
func Persona(message string) string {
	return fmt.Sprintf(`You are Alakara Harvest, an expert agricultural assistant for Kenyan farmers.
You help with post-harvest loss reduction for Mangoes, Tomatoes, and Oranges.
Keep answers concise, practical, and helpful for a farmer.
User Question: %q
Answer:`, message)
}

// Fallback wraps a primary responder with the rule engine.
type Fallback struct {
	primary Responder
	rules   Rules
	logger  *slog.Logger
}

func NewFallback(primary Responder, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, logger: logger.With("component", "ai")}
}

// Respond never fails: provider errors degrade to the rule engine.
func (f *Fallback) Respond(ctx context.Context, message string) (string, error) {
	if f.primary != nil {
		answer, err := f.primary.Respond(ctx, message)
		if err != nil {
			f.logger.Warn("AI provider failed, using rules", "error", err)
		} else if answer = strings.TrimSpace(answer); answer != "" {
			return answer, nil
		}
	}
	return f.rules.Respond(ctx, message)
}

// New builds the responder selected by cfg.AI.Provider. A provider without
// credentials degrades to the rule engine.
func New(ctx context.Context, cfg integrations.Config, logger *slog.Logger) (*Fallback, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var primary Responder
	switch cfg.AI.Provider {
	case integrations.ProviderHuggingFace:
		if cfg.AI.HuggingFaceKey != "" {
			primary = NewHuggingFace(cfg)
		} else {
			logger.Warn("Hugging Face API key missing, chat uses rules only")
		}
	case integrations.ProviderGemini:
		if cfg.AI.GeminiKey != "" {
			g, err := NewGemini(ctx, cfg.AI)
			if err != nil {
				return nil, err
			}
			primary = g
		} else {
			logger.Warn("Gemini API key missing, chat uses rules only")
		}
	case integrations.ProviderRules:
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.AI.Provider)
	}
	return NewFallback(primary, logger), nil
}
