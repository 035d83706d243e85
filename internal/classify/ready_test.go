package classify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReady_AfterModelLoads(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"status":"loading","model_loaded":false}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","model_loaded":true}`))
	}))
	defer srv.Close()

	err := NewHTTPClient("stage1", srv.URL, time.Second).WaitReady(context.Background(), 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitReady_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewHTTPClient("stage2", srv.URL, time.Second).WaitReady(context.Background(), 300*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage2 classifier not ready")
}

func TestWaitReady_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"loading","model_loaded":false}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := NewHTTPClient("stage1", srv.URL, time.Second).WaitReady(ctx, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
