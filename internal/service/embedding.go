package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/jobscout/internal/config"
)

const (
	jinaEndpoint = "https://api.jina.ai/v1/embeddings"
)

// Embedder turns posting text into a vector for the semantic duplicate check.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// NewEmbedder builds the configured provider, or returns nil when the
// semantic tier is disabled.
func NewEmbedder(cfg *config.EmbeddingConfig) (Embedder, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	switch cfg.Provider {
	case "ollama":
		return NewOllamaEmbedder(cfg), nil
	case "jina":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedding jina: api key is required")
		}
		return NewJinaEmbedder(cfg), nil
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", cfg.Provider)
	}
}

// JinaEmbedder calls the Jina embeddings API.
type JinaEmbedder struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
}

// NewJinaEmbedder creates a Jina client.
func NewJinaEmbedder(cfg *config.EmbeddingConfig) *JinaEmbedder {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeoutOr(cfg.Timeout, 30*time.Second))

	endpoint := jinaEndpoint
	if cfg.BaseURL != "" {
		endpoint = strings.TrimRight(cfg.BaseURL, "/") + "/v1/embeddings"
	}

	return &JinaEmbedder{
		client:     client,
		endpoint:   endpoint,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

type jinaRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// Dimensions returns the configured vector size.
func (s *JinaEmbedder) Dimensions() int {
	return s.dimensions
}

// Embed generates a passage embedding for text.
func (s *JinaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := jinaRequest{
		Model:         s.model,
		Task:          "text-matching",
		Dimensions:    s.dimensions,
		Input:         []string{text},
		EmbeddingType: "float",
	}

	var resp jinaResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call Jina API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("Jina API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("Jina API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}

// OllamaEmbedder calls a local Ollama /api/embeddings endpoint.
type OllamaEmbedder struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
}

// NewOllamaEmbedder creates an Ollama embeddings client.
func NewOllamaEmbedder(cfg *config.EmbeddingConfig) *OllamaEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeoutOr(cfg.Timeout, 30*time.Second))

	return &OllamaEmbedder{
		client:     client,
		endpoint:   strings.TrimRight(baseURL, "/") + "/api/embeddings",
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Dimensions returns the configured vector size.
func (s *OllamaEmbedder) Dimensions() int {
	return s.dimensions
}

// Embed generates an embedding for text.
func (s *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp ollamaEmbedResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(ollamaEmbedRequest{Model: s.model, Prompt: text}).
		SetResult(&resp).
		SetError(&resp).
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call Ollama embeddings: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		if resp.Error != "" {
			return nil, fmt.Errorf("Ollama embeddings error: %s", resp.Error)
		}
		return nil, fmt.Errorf("Ollama embeddings error: status %d", httpResp.StatusCode())
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embedding, nil
}

func timeoutOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
