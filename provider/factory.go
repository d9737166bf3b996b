package provider

import "strings"

// Settings carries the resolved configuration a provider is built from.
// Zero fields fall back to the adapter's defaults.
type Settings struct {
	Name       string
	Endpoint   string
	Model      string
	APIKey     string
	Dimensions int
	TaskType   string
}

// Names lists the valid provider names accepted by New.
func Names() []string {
	return []string{"gemini", "openai", "ollama", "cohere"}
}

// New resolves a provider name to a constructed adapter. Credential
// problems surface here, before any embedding call is attempted.
func New(s Settings) (Provider, error) {
	switch s.Name {
	case "gemini":
		return NewGeminiProvider(
			WithGeminiEndpoint(s.Endpoint),
			WithGeminiModel(s.Model),
			WithGeminiKey(s.APIKey),
			WithGeminiDimensions(s.Dimensions),
			WithGeminiTaskType(s.TaskType),
		)
	case "openai":
		return NewOpenAIProvider(
			WithOpenAIEndpoint(s.Endpoint),
			WithOpenAIModel(s.Model),
			WithOpenAIKey(s.APIKey),
		)
	case "ollama":
		return NewOllamaProvider(
			WithOllamaEndpoint(s.Endpoint),
			WithOllamaModel(s.Model),
			WithOllamaDimensions(s.Dimensions),
		), nil
	case "cohere":
		return NewCohereProvider(
			WithCohereEndpoint(s.Endpoint),
			WithCohereModel(s.Model),
			WithCohereKey(s.APIKey),
		)
	default:
		return nil, NewConfigError(s.Name, "unknown provider (valid: %s)", strings.Join(Names(), ", "))
	}
}
