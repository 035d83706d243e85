package llm

import (
	"context"
	"fmt"
)

// VisionClient sends one prompt with one image to a generative model and
// returns its raw text output.
type VisionClient interface {
	GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
	ModelName() string
	Close() error
}

// NewClient builds the client for config.Provider. A nil config selects the
// defaults. When config.Serialize is set the client is wrapped so only one
// generation runs at a time.
func NewClient(ctx context.Context, config *Config, apiKey string) (VisionClient, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		return nil, fmt.Errorf("no model configured for provider %s", config.Provider)
	}

	var (
		client VisionClient
		err    error
	)
	switch config.Provider {
	case ProviderOpenAI:
		client, err = NewOpenAIClient(config, apiKey)
	case ProviderGemini, "":
		client, err = NewGeminiClient(ctx, config, apiKey)
	default:
		err = fmt.Errorf("unknown LLM provider %q", config.Provider)
	}
	if err != nil {
		return nil, err
	}

	if config.Serialize {
		return NewSerialized(client), nil
	}
	return client, nil
}
