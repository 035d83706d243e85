// Package llm provides centralized configuration and client abstractions for the
// generative vision-language model that writes item assessments.
package llm

import "fmt"

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is any OpenAI-compatible chat completions endpoint,
	// including self-hosted VLM servers.
	ProviderOpenAI Provider = "openai"
)

// Config holds the model configuration for the application
type Config struct {
	Provider        Provider
	Model           string
	BaseURL         string // OpenAI-compatible endpoints only
	Temperature     float32
	MaxOutputTokens int32
	// Serialize wraps the client in a single-slot semaphore so concurrent
	// requests queue instead of calling the model in parallel.
	Serialize bool
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider:        ProviderGemini,
		Model:           "gemini-2.5-flash",
		Temperature:     0.1,
		MaxOutputTokens: 512,
		Serialize:       true,
	}
}

// DefaultOpenAIConfig returns the default configuration for an
// OpenAI-compatible vision endpoint.
func DefaultOpenAIConfig() *Config {
	return &Config{
		Provider:        ProviderOpenAI,
		Model:           "Qwen/Qwen2-VL-2B-Instruct",
		Temperature:     0.1,
		MaxOutputTokens: 256,
		Serialize:       true,
	}
}

// WithModel returns a copy of the config using a different model name.
func (c *Config) WithModel(model string) *Config {
	newConfig := *c
	newConfig.Model = model
	return &newConfig
}

// ParseProvider converts a configuration string into a Provider.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderGemini, "":
		return ProviderGemini, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	default:
		return "", fmt.Errorf("unknown LLM provider %q", s)
	}
}
