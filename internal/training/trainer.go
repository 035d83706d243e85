package training

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Trainer is the external training capability. It blocks until the job
// finishes and returns opaque metrics and artifact references.
type Trainer interface {
	Train(ctx context.Context, sampleCount int, params map[string]any) (metrics, artifacts map[string]any, err error)
}

// DefaultParams returns the fixed training parameters used for every run.
func DefaultParams() map[string]any {
	return map[string]any{
		"seed":      42,
		"epochs":    80,
		"imgsz":     640,
		"optimizer": "adamw",
	}
}

// TrainRequest is the body sent to a remote trainer
type TrainRequest struct {
	SampleCount int            `json:"sample_count"`
	Params      map[string]any `json:"params"`
}

// TrainResponse is the body returned by a remote trainer
type TrainResponse struct {
	Metrics   map[string]any `json:"metrics"`
	Artifacts map[string]any `json:"artifacts"`
	Error     string         `json:"error,omitempty"`
}

// HTTPTrainer runs training on a remote service
type HTTPTrainer struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPTrainer creates a trainer client. Training jobs are long; timeout
// bounds the whole call.
func NewHTTPTrainer(baseURL string, timeout time.Duration) *HTTPTrainer {
	if timeout <= 0 {
		timeout = 6 * time.Hour
	}
	return &HTTPTrainer{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Train posts the job and waits for its result. A non-200 status or an
// "error" field in the body is returned as the error text.
func (t *HTTPTrainer) Train(ctx context.Context, sampleCount int, params map[string]any) (map[string]any, map[string]any, error) {
	body, err := json.Marshal(TrainRequest{SampleCount: sampleCount, Params: params})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/train", bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("trainer returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result TrainResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return nil, nil, errors.New(result.Error)
	}
	return result.Metrics, result.Artifacts, nil
}

// StubTrainer returns fixed metrics without training anything. It is used
// when no trainer service is configured.
type StubTrainer struct {
	Delay time.Duration
}

// Train waits for Delay and returns canned results.
func (s StubTrainer) Train(ctx context.Context, _ int, _ map[string]any) (map[string]any, map[string]any, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	return map[string]any{"f1": 0.84, "acc": 0.90},
		map[string]any{
			"weights": fmt.Sprintf("/tmp/best_%s.pt", uuid.NewString()),
			"metrics": "/tmp/metrics.json",
		},
		nil
}
