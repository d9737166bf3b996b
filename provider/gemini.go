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
	defaultGeminiEndpoint   = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel      = "gemini-embedding-001"
	defaultGeminiDimensions = 768
	defaultGeminiTaskType   = "RETRIEVAL_DOCUMENT"
	geminiMaxTokens         = 2048
)

// GeminiProvider embeds through the Google Generative Language API.
// The free tier makes it the default provider; cost is zero up to quota.
type GeminiProvider struct {
	endpoint   string
	model      string
	apiKey     string
	dimensions int
	taskType   string
	client     *http.Client
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiEmbedRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	TaskType             string        `json:"taskType,omitempty"`
	OutputDimensionality int           `json:"outputDimensionality,omitempty"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

type GeminiOption func(*GeminiProvider)

func WithGeminiEndpoint(endpoint string) GeminiOption {
	return func(p *GeminiProvider) {
		if endpoint != "" {
			p.endpoint = endpoint
		}
	}
}

func WithGeminiModel(model string) GeminiOption {
	return func(p *GeminiProvider) {
		if model != "" {
			p.model = model
		}
	}
}

func WithGeminiKey(key string) GeminiOption {
	return func(p *GeminiProvider) {
		if key != "" {
			p.apiKey = key
		}
	}
}

// WithGeminiDimensions sets the requested output dimensionality. The API
// truncates the native vector; 768 and 256 are the supported sizes here.
func WithGeminiDimensions(dimensions int) GeminiOption {
	return func(p *GeminiProvider) {
		if dimensions > 0 {
			p.dimensions = dimensions
		}
	}
}

func WithGeminiTaskType(taskType string) GeminiOption {
	return func(p *GeminiProvider) {
		if taskType != "" {
			p.taskType = taskType
		}
	}
}

func NewGeminiProvider(opts ...GeminiOption) (*GeminiProvider, error) {
	p := &GeminiProvider{
		endpoint:   defaultGeminiEndpoint,
		model:      defaultGeminiModel,
		dimensions: defaultGeminiDimensions,
		taskType:   defaultGeminiTaskType,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.apiKey == "" {
		p.apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if p.apiKey == "" {
		return nil, NewConfigError("gemini", "API key not set (use GEMINI_API_KEY environment variable)")
	}

	return p, nil
}

func (p *GeminiProvider) Embed(ctx context.Context, texts []string) (*Result, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("gemini: no texts to embed")
	}

	requests := make([]geminiEmbedRequest, len(texts))
	for i, text := range texts {
		requests[i] = geminiEmbedRequest{
			Model:                fmt.Sprintf("models/%s", p.model),
			Content:              geminiContent{Parts: []geminiPart{{Text: text}}},
			TaskType:             p.taskType,
			OutputDimensionality: p.dimensions,
		}
	}

	jsonData, err := json.Marshal(geminiBatchEmbedRequest{Requests: requests})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:batchEmbedContents?key=%s", p.endpoint, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to Gemini: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp geminiErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("Gemini API error (%s): %s", errResp.Error.Status, errResp.Error.Message)
		}
		return nil, fmt.Errorf("Gemini returned status %d: %s", resp.StatusCode, string(body))
	}

	var result geminiBatchEmbedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	embeddings := make([][]float32, len(texts))
	for i, item := range result.Embeddings {
		embeddings[i] = item.Values
	}

	// The batch endpoint returns no usage block.
	tokens := EstimateTokensTotal(texts)

	return &Result{
		Embeddings: embeddings,
		Model:      p.model,
		Dimensions: p.dimensions,
		Usage:      Usage{PromptTokens: tokens, TotalTokens: tokens},
	}, nil
}

func (p *GeminiProvider) Dimensions() int {
	return p.dimensions
}

func (p *GeminiProvider) MaxTokens() int {
	return geminiMaxTokens
}

// CostPerMillionTokens is zero within the free-tier quota; overage is
// accounted by the usage log, not billed through this adapter.
func (p *GeminiProvider) CostPerMillionTokens() float64 {
	return 0
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}
