package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements VisionClient on the Gemini API. The model handle is
// configured once and reused for every request.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	config *Config
}

// NewGeminiClient creates a Gemini client for config.Model.
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(config.Temperature)
	if config.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(config.MaxOutputTokens)
	}
	model.SetCandidateCount(1)
	model.ResponseMIMEType = "application/json"

	return &GeminiClient{client: client, model: model, config: config}, nil
}

// GenerateFromImage sends the prompt followed by the inline image.
func (c *GeminiClient) GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt), genai.ImageData(imageFormat(mimeType), image))
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", c.config.Model, err)
	}
	return responseText(resp)
}

func (c *GeminiClient) ModelName() string {
	return c.config.Model
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// imageFormat maps a MIME type to the subtype genai.ImageData wants.
func imageFormat(mimeType string) string {
	if mimeType == "" {
		return "jpeg"
	}
	if _, sub, ok := strings.Cut(mimeType, "/"); ok {
		return sub
	}
	return mimeType
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("gemini candidate has no content (finish reason %v)", cand.FinishReason)
	}

	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini candidate has no text parts")
	}
	return b.String(), nil
}
