package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1"
	defaultOpenAIModel    = "text-embedding-3-small"
	openAIMaxTokens       = 8191
)

// openAIModels maps the selectable embedding models to their native
// dimensionality and USD cost per million tokens.
var openAIModels = map[string]struct {
	dimensions int
	costPerM   float64
}{
	"text-embedding-3-small": {1536, 0.02},
	"text-embedding-3-large": {3072, 0.13},
	"text-embedding-ada-002": {1536, 0.10},
}

// OpenAIProvider embeds through the OpenAI embeddings API.
type OpenAIProvider struct {
	endpoint   string
	model      string
	apiKey     string
	dimensions int
	costPerM   float64
	client     *http.Client
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type OpenAIOption func(*OpenAIProvider)

func WithOpenAIEndpoint(endpoint string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if endpoint != "" {
			p.endpoint = endpoint
		}
	}
}

func WithOpenAIModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if model != "" {
			p.model = model
		}
	}
}

func WithOpenAIKey(key string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if key != "" {
			p.apiKey = key
		}
	}
}

func NewOpenAIProvider(opts ...OpenAIOption) (*OpenAIProvider, error) {
	p := &OpenAIProvider{
		endpoint: defaultOpenAIEndpoint,
		model:    defaultOpenAIModel,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.apiKey == "" {
		p.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if p.apiKey == "" {
		return nil, NewConfigError("openai", "API key not set (use OPENAI_API_KEY environment variable)")
	}

	// Dimensionality is model-dependent and must be pinned before the
	// first call so one run never mixes vector sizes.
	info, ok := openAIModels[p.model]
	if !ok {
		return nil, NewConfigError("openai", "unknown embedding model %q", p.model)
	}
	p.dimensions = info.dimensions
	p.costPerM = info.costPerM

	return p, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) (*Result, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("openai: no texts to embed")
	}

	reqBody := openAIEmbedRequest{
		Model: p.model,
		Input: texts,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/embeddings", p.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenAI: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp openAIErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("OpenAI API error: %s", errResp.Error.Message)
		}
		return nil, fmt.Errorf("OpenAI returned status %d: %s", resp.StatusCode, string(body))
	}

	var result openAIEmbedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Data))
	}

	// Sort by index to maintain input order
	embeddings := make([][]float32, len(texts))
	for _, item := range result.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		embeddings[item.Index] = item.Embedding
	}

	usage := result.Usage
	if usage.TotalTokens == 0 {
		usage.PromptTokens = EstimateTokensTotal(texts)
		usage.TotalTokens = usage.PromptTokens
	}

	return &Result{
		Embeddings: embeddings,
		Model:      p.model,
		Dimensions: p.dimensions,
		Usage:      usage,
	}, nil
}

func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

func (p *OpenAIProvider) MaxTokens() int {
	return openAIMaxTokens
}

func (p *OpenAIProvider) CostPerMillionTokens() float64 {
	return p.costPerM
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}
