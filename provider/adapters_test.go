package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected Authorization header %q", got)
		}

		var req openAIEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		// Return data out of order to verify index-based reassembly
		resp := map[string]any{
			"model": req.Model,
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{1, 1}},
				{"index": 0, "embedding": []float32{0, 0}},
			},
			"usage": map[string]int{"prompt_tokens": 7, "total_tokens": 7},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(
		WithOpenAIEndpoint(server.URL),
		WithOpenAIKey("sk-test"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := p.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	if result.Embeddings[0][0] != 0 || result.Embeddings[1][0] != 1 {
		t.Errorf("embeddings not restored to input order: %v", result.Embeddings)
	}
	if result.Usage.TotalTokens != 7 {
		t.Errorf("expected 7 total tokens, got %d", result.Usage.TotalTokens)
	}
	if result.Model != defaultOpenAIModel {
		t.Errorf("expected model %s, got %s", defaultOpenAIModel, result.Model)
	}
}

func TestOpenAIProvider_EmbedAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(
		WithOpenAIEndpoint(server.URL),
		WithOpenAIKey("sk-bad"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = p.Embed(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected error from API")
	}
	if !strings.Contains(err.Error(), "Incorrect API key") {
		t.Errorf("expected upstream message in error, got: %v", err)
	}
}

func TestOpenAIProvider_EmbedCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[0.5]}],"usage":{"total_tokens":1}}`)
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(WithOpenAIEndpoint(server.URL), WithOpenAIKey("sk-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = p.Embed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error for embedding count mismatch")
	}
}

func TestGeminiProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":batchEmbedContents") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "g-test" {
			t.Errorf("expected key query parameter, got %q", r.URL.Query().Get("key"))
		}

		var req geminiBatchEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Requests) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(req.Requests))
		}
		if req.Requests[0].TaskType != "RETRIEVAL_DOCUMENT" {
			t.Errorf("expected default task type, got %q", req.Requests[0].TaskType)
		}
		if req.Requests[0].OutputDimensionality != 256 {
			t.Errorf("expected output dimensionality 256, got %d", req.Requests[0].OutputDimensionality)
		}

		fmt.Fprint(w, `{"embeddings":[{"values":[0.1,0.2]},{"values":[0.3,0.4]}]}`)
	}))
	defer server.Close()

	p, err := NewGeminiProvider(
		WithGeminiEndpoint(server.URL),
		WithGeminiKey("g-test"),
		WithGeminiDimensions(256),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := p.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	if len(result.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result.Embeddings))
	}
	if result.Embeddings[1][0] != 0.3 {
		t.Errorf("embeddings out of order: %v", result.Embeddings)
	}
	if result.Dimensions != 256 {
		t.Errorf("expected dimensions 256, got %d", result.Dimensions)
	}
	if result.Usage.TotalTokens == 0 {
		t.Error("expected estimated usage for Gemini, got 0")
	}
}

func TestCohereProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req cohereEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.InputType != "search_document" {
			t.Errorf("expected input_type search_document, got %q", req.InputType)
		}

		fmt.Fprint(w, `{"embeddings":[[0.1],[0.2]],"meta":{"billed_units":{"input_tokens":12}}}`)
	}))
	defer server.Close()

	p, err := NewCohereProvider(
		WithCohereEndpoint(server.URL),
		WithCohereKey("co-test"),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := p.Embed(context.Background(), []string{"premier", "deuxième"})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	if result.Usage.TotalTokens != 12 {
		t.Errorf("expected billed 12 tokens, got %d", result.Usage.TotalTokens)
	}
	if result.Dimensions != cohereDimensions {
		t.Errorf("expected dimensions %d, got %d", cohereDimensions, result.Dimensions)
	}
}

func TestOllamaProvider_Embed(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		fmt.Fprintf(w, `{"embedding":[%d]}`, calls)
	}))
	defer server.Close()

	p := NewOllamaProvider(
		WithOllamaEndpoint(server.URL),
		WithOllamaDimensions(1),
	)

	result, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	if calls != 3 {
		t.Errorf("expected 3 upstream calls, got %d", calls)
	}
	for i, vec := range result.Embeddings {
		if vec[0] != float32(i+1) {
			t.Errorf("embedding %d out of order: %v", i, vec)
		}
	}
}

func TestOllamaProvider_ConnectionError(t *testing.T) {
	p := NewOllamaProvider(WithOllamaEndpoint("http://127.0.0.1:1"))

	_, err := p.Embed(context.Background(), []string{"text"})
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !IsConnectionError(err) {
		t.Errorf("expected ConnectionError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "Make sure Ollama is running") {
		t.Errorf("expected remediation hint in error, got: %v", err)
	}
}
