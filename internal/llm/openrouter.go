package llm

import "fmt"

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "google/gemini-2.0-flash-001"
)

// OpenRouterProvider talks to OpenRouter through its OpenAI-compatible
// chat endpoint. Model IDs are routed verbatim ("vendor/model").
//
// Requests go out as plain chat messages, so quiz generation from a PDF
// is rejected with *ErrUnsupportedAttachment before any network call.
// Analysis requests carry no attachments and work normally.
type OpenRouterProvider struct {
	*OpenAIProvider
}

// NewOpenRouterProvider builds a provider for the OpenRouter API. Empty
// Model and BaseURL fall back to the package defaults.
func NewOpenRouterProvider(cfg OpenRouterConfig) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openrouter API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenRouterModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}

	inner, err := NewOpenAIProvider(OpenAIConfig{
		APIKey:  cfg.APIKey,
		Model:   model,
		BaseURL: baseURL,
	})
	if err != nil {
		return nil, err
	}
	inner.name = "openrouter"

	return &OpenRouterProvider{OpenAIProvider: inner}, nil
}
