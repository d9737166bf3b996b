package provider

import "context"

// Provider is the uniform contract over embedding services.
//
// Implementations must return embeddings in the exact order of the input
// texts; the pipeline zips results back onto records by position and a
// reordering provider would silently corrupt the mapping.
type Provider interface {
	// Embed converts a non-empty list of texts into vectors, one per text,
	// in input order. Callers are responsible for keeping each text under
	// MaxTokens; providers do not enforce the ceiling themselves.
	Embed(ctx context.Context, texts []string) (*Result, error)

	// Dimensions returns the vector dimension size for this provider.
	// It is resolved at construction and constant for the provider's lifetime.
	Dimensions() int

	// MaxTokens returns the per-text token ceiling accepted upstream.
	MaxTokens() int

	// CostPerMillionTokens returns the provider's price in USD per million tokens.
	CostPerMillionTokens() float64

	// Name returns the provider identifier (e.g. "gemini", "openai").
	Name() string
}

// Result is the uniform response shape for one Embed call.
type Result struct {
	Embeddings [][]float32
	Model      string
	Dimensions int
	Usage      Usage
}

// Usage reports token consumption for one Embed call. Providers that do
// not return usage fill it from EstimateTokens.
type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// EstimateTokens estimates the token count for a text string.
// Uses a conservative estimate of ~4 characters per token for English text.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4 // Round up
}

// EstimateTokensTotal sums EstimateTokens over a list of texts.
func EstimateTokensTotal(texts []string) int {
	total := 0
	for _, t := range texts {
		total += EstimateTokens(t)
	}
	return total
}
