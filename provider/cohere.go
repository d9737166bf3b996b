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
	defaultCohereEndpoint = "https://api.cohere.com/v1"
	defaultCohereModel    = "embed-multilingual-v3.0"
	cohereDimensions      = 1024
	cohereMaxTokens       = 512
	cohereCostPerMillion  = 0.10
)

// CohereProvider embeds through the Cohere embed API. The v3 multilingual
// model has a fixed 1024-dimension output.
type CohereProvider struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

type cohereEmbedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

type cohereEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Meta       struct {
		BilledUnits struct {
			InputTokens int `json:"input_tokens"`
		} `json:"billed_units"`
	} `json:"meta"`
}

type cohereErrorResponse struct {
	Message string `json:"message"`
}

type CohereOption func(*CohereProvider)

func WithCohereEndpoint(endpoint string) CohereOption {
	return func(p *CohereProvider) {
		if endpoint != "" {
			p.endpoint = endpoint
		}
	}
}

func WithCohereModel(model string) CohereOption {
	return func(p *CohereProvider) {
		if model != "" {
			p.model = model
		}
	}
}

func WithCohereKey(key string) CohereOption {
	return func(p *CohereProvider) {
		if key != "" {
			p.apiKey = key
		}
	}
}

func NewCohereProvider(opts ...CohereOption) (*CohereProvider, error) {
	p := &CohereProvider{
		endpoint: defaultCohereEndpoint,
		model:    defaultCohereModel,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.apiKey == "" {
		p.apiKey = os.Getenv("COHERE_API_KEY")
	}
	if p.apiKey == "" {
		return nil, NewConfigError("cohere", "API key not set (use COHERE_API_KEY environment variable)")
	}

	return p, nil
}

func (p *CohereProvider) Embed(ctx context.Context, texts []string) (*Result, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("cohere: no texts to embed")
	}

	reqBody := cohereEmbedRequest{
		Model:     p.model,
		Texts:     texts,
		InputType: "search_document",
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/embed", p.endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Cohere: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp cohereErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
			return nil, fmt.Errorf("Cohere API error: %s", errResp.Message)
		}
		return nil, fmt.Errorf("Cohere returned status %d: %s", resp.StatusCode, string(body))
	}

	var result cohereEmbedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	usage := Usage{
		PromptTokens: result.Meta.BilledUnits.InputTokens,
		TotalTokens:  result.Meta.BilledUnits.InputTokens,
	}
	if usage.TotalTokens == 0 {
		usage.PromptTokens = EstimateTokensTotal(texts)
		usage.TotalTokens = usage.PromptTokens
	}

	return &Result{
		Embeddings: result.Embeddings,
		Model:      p.model,
		Dimensions: cohereDimensions,
		Usage:      usage,
	}, nil
}

func (p *CohereProvider) Dimensions() int {
	return cohereDimensions
}

func (p *CohereProvider) MaxTokens() int {
	return cohereMaxTokens
}

func (p *CohereProvider) CostPerMillionTokens() float64 {
	return cohereCostPerMillion
}

func (p *CohereProvider) Name() string {
	return "cohere"
}
