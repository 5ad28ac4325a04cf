package ai

import (
	"context"
	"net/http"
	"strings"

	"github.com/alakara/harvest/internal/integrations"
	"github.com/alakara/harvest/internal/integrations/httpclient"
)

// HuggingFace calls the hosted inference API for a text-generation model.
type HuggingFace struct {
	url       string
	key       string
	maxTokens int
	temp      float32
	http      *httpclient.Client
}

func NewHuggingFace(cfg integrations.Config) *HuggingFace {
	return &HuggingFace{
		url:       cfg.AI.HuggingFaceURL,
		key:       cfg.AI.HuggingFaceKey,
		maxTokens: cfg.AI.MaxTokens,
		temp:      cfg.AI.Temperature,
		http:      httpclient.New("huggingface", cfg.Timeout, cfg.RequestsPerSecond),
	}
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float32 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (h *HuggingFace) Respond(ctx context.Context, message string) (string, error) {
	prompt := Persona(message)
	req := hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens: h.maxTokens,
			Temperature:  h.temp,
		},
	}

	var out []hfGeneration
	header := http.Header{"Authorization": []string{"Bearer " + h.key}}
	if err := h.http.PostJSON(ctx, h.url, header, req, &out); err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", nil
	}
	// Some models echo the prompt despite return_full_text=false.
	return strings.TrimSpace(strings.Replace(out[0].GeneratedText, prompt, "", 1)), nil
}
