package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultOllamaEndpoint   = "http://localhost:11434"
	defaultOllamaModel      = "nomic-embed-text"
	defaultOllamaDimensions = 768
	ollamaMaxTokens         = 8192
)

// OllamaProvider embeds through a local Ollama instance. The endpoint
// embeds one prompt per call, so Embed loops over the batch.
type OllamaProvider struct {
	endpoint   string
	model      string
	dimensions int
	client     *http.Client
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type OllamaOption func(*OllamaProvider)

func WithOllamaEndpoint(endpoint string) OllamaOption {
	return func(p *OllamaProvider) {
		if endpoint != "" {
			p.endpoint = endpoint
		}
	}
}

func WithOllamaModel(model string) OllamaOption {
	return func(p *OllamaProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithOllamaDimensions sets the dimensionality reported for the loaded
// model. Ollama has no dimension negotiation, so this must match the model.
func WithOllamaDimensions(dimensions int) OllamaOption {
	return func(p *OllamaProvider) {
		if dimensions > 0 {
			p.dimensions = dimensions
		}
	}
}

func NewOllamaProvider(opts ...OllamaOption) *OllamaProvider {
	p := &OllamaProvider{
		endpoint:   defaultOllamaEndpoint,
		model:      defaultOllamaModel,
		dimensions: defaultOllamaDimensions,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *OllamaProvider) embedOne(ctx context.Context, text string) ([]float32, error) {
	reqBody := ollamaEmbedRequest{
		Model:  p.model,
		Prompt: text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embeddings", p.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ConnectionError{
			Provider: "ollama",
			Endpoint: p.endpoint,
			Hint:     fmt.Sprintf("Make sure Ollama is running and has the %s model (ollama pull %s)", p.model, p.model),
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("Ollama returned empty embedding")
	}

	return result.Embedding, nil
}

func (p *OllamaProvider) Embed(ctx context.Context, texts []string) (*Result, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("ollama: no texts to embed")
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := p.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		embeddings[i] = embedding
	}

	tokens := EstimateTokensTotal(texts)

	return &Result{
		Embeddings: embeddings,
		Model:      p.model,
		Dimensions: p.dimensions,
		Usage:      Usage{PromptTokens: tokens, TotalTokens: tokens},
	}, nil
}

func (p *OllamaProvider) Dimensions() int {
	return p.dimensions
}

func (p *OllamaProvider) MaxTokens() int {
	return ollamaMaxTokens
}

// CostPerMillionTokens is zero: the model runs locally.
func (p *OllamaProvider) CostPerMillionTokens() float64 {
	return 0
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

// Ping checks if Ollama is reachable.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/tags", p.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return &ConnectionError{
			Provider: "ollama",
			Endpoint: p.endpoint,
			Hint:     "Make sure Ollama is running (ollama serve) before starting a run",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	return nil
}
