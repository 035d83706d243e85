package llm

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Serialized wraps a VisionClient so at most one generation runs at a time.
// Waiting callers give up when their context is cancelled.
type Serialized struct {
	inner VisionClient
	sem   *semaphore.Weighted
}

// NewSerialized returns a client that serializes access to inner.
func NewSerialized(inner VisionClient) *Serialized {
	return &Serialized{inner: inner, sem: semaphore.NewWeighted(1)}
}

// GenerateFromImage acquires the model slot, then delegates.
func (s *Serialized) GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.sem.Release(1)
	return s.inner.GenerateFromImage(ctx, prompt, image, mimeType)
}

// ModelName returns the wrapped client's model
func (s *Serialized) ModelName() string {
	return s.inner.ModelName()
}

// Close closes the wrapped client
func (s *Serialized) Close() error {
	return s.inner.Close()
}
