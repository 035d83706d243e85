package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WaitReady polls the health endpoint with exponential backoff until the
// service reports a loaded model. It gives up after maxWait or when ctx ends.
func (c *HTTPClient) WaitReady(ctx context.Context, maxWait time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxWait

	check := func() error {
		h, err := c.Health(ctx)
		if err != nil {
			return err
		}
		if !h.ModelLoaded {
			return fmt.Errorf("%s classifier: model not loaded", c.name)
		}
		return nil
	}
	if err := backoff.Retry(check, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("%s classifier not ready: %w", c.name, err)
	}
	return nil
}
