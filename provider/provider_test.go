package provider

import (
	"errors"
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{"empty", "", 0},
		{"one char", "a", 1},
		{"four chars", "abcd", 1},
		{"five chars", "abcde", 2},
		{"eight chars", "abcdefgh", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateTokens(tt.text); got != tt.expected {
				t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.expected)
			}
		})
	}
}

func TestEstimateTokensTotal(t *testing.T) {
	texts := []string{"abcd", "abcdefgh", ""}
	if got := EstimateTokensTotal(texts); got != 3 {
		t.Errorf("EstimateTokensTotal = %d, want 3", got)
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(Settings{Name: "bedrock"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	for _, name := range Names() {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected error to list valid name %q, got: %v", name, err)
		}
	}
}

func TestNew_MissingCredential(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		envVar   string
	}{
		{"gemini", "gemini", "GEMINI_API_KEY"},
		{"openai", "openai", "OPENAI_API_KEY"},
		{"cohere", "cohere", "COHERE_API_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envVar, "")

			_, err := New(Settings{Name: tt.provider})
			if err == nil {
				t.Fatal("expected error for missing credential")
			}
			if !IsConfigError(err) {
				t.Errorf("expected ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestNew_OllamaNeedsNoCredential(t *testing.T) {
	p, err := New(Settings{Name: "ollama", Dimensions: 512})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("expected name ollama, got %s", p.Name())
	}
	if p.Dimensions() != 512 {
		t.Errorf("expected dimensions 512, got %d", p.Dimensions())
	}
}

func TestNew_OpenAIModelDimensions(t *testing.T) {
	tests := []struct {
		model      string
		dimensions int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p, err := New(Settings{Name: "openai", Model: tt.model, APIKey: "sk-test"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Dimensions() != tt.dimensions {
				t.Errorf("expected dimensions %d, got %d", tt.dimensions, p.Dimensions())
			}
		})
	}
}

func TestNew_OpenAIUnknownModel(t *testing.T) {
	_, err := New(Settings{Name: "openai", Model: "text-embedding-9-huge", APIKey: "sk-test"})
	if err == nil {
		t.Fatal("expected error for unknown model")
	}
	if !IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}
