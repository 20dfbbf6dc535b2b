package engine

import (
	"context"
	"fmt"
	"strings"
)

// Supported providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DetectConfig holds the settings needed to construct any backend.
type DetectConfig struct {
	Provider      string
	OllamaBaseURL string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
}

// Detect returns the backend named by cfg.Provider. An empty provider
// selects Ollama.
func Detect(ctx context.Context, cfg DetectConfig) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOllama:
		return NewOllamaEngine(cfg.OllamaBaseURL), nil
	case ProviderOpenAI:
		return NewOpenAIEngine(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	case ProviderGemini:
		return NewGeminiEngine(ctx, cfg.GeminiAPIKey)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (want ollama, openai or gemini)", cfg.Provider)
	}
}
