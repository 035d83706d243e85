package classify

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/jonathan/footwear-triage/internal/types"
)

// Serialized guards a classifier that is not safe for concurrent use.
// Callers queue on the model, not on the request.
type Serialized struct {
	inner Classifier
	sem   *semaphore.Weighted
}

// NewSerialized wraps inner with a single-slot semaphore.
func NewSerialized(inner Classifier) *Serialized {
	return &Serialized{inner: inner, sem: semaphore.NewWeighted(1)}
}

// Classify waits for the model slot, or for ctx to be cancelled.
func (s *Serialized) Classify(ctx context.Context, image []byte) (types.Distribution, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)
	return s.inner.Classify(ctx, image)
}
