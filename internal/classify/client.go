// Package classify runs the two-stage image classification cascade and
// provides clients for the remote classifier services.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/jonathan/footwear-triage/internal/types"
)

// Classifier returns a label distribution for one image.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (types.Distribution, error)
}

// ClassifyResponse is the inference service response body. Labels keep the
// order the service reported them in.
type ClassifyResponse struct {
	Model  string             `json:"model,omitempty"`
	Labels []types.LabelScore `json:"labels"`
}

// HealthResponse represents the inference service health check response
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Model       string `json:"model,omitempty"`
}

// HTTPClient is a client for one classifier inference service
type HTTPClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the service at baseURL. name is used in
// error messages to tell the stage-1 and stage-2 services apart.
func NewHTTPClient(name, baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Classify uploads the image as multipart form field "image".
func (c *HTTPClient) Classify(ctx context.Context, image []byte) (types.Distribution, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "image")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s classifier: failed to send request: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s classifier returned status %d: %s", c.name, resp.StatusCode, string(msg))
	}

	var result ClassifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%s classifier: failed to decode response: %w", c.name, err)
	}

	return types.Distribution(result.Labels), nil
}

// Health checks the inference service health
func (c *HTTPClient) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s classifier: failed to send request: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s classifier health check failed with status %d", c.name, resp.StatusCode)
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
