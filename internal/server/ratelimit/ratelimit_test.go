package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is advanced manually by tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(cfg *Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	cfg.CleanupInterval = 0
	l := NewLimiter(cfg)
	l.now = clock.Now
	return l, clock
}

func TestLimiter_AnalyzeBurstAndRefill(t *testing.T) {
	l, clock := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1000, DefaultWindow: time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(60)})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/analyze", "POST")
		require.True(t, allowed, "request %d within burst", i+1)
	}
	allowed, info := l.Allow("10.0.0.1", "/analyze", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 60, info.Limit)
	assert.Equal(t, time.Second, info.RetryAfter)

	// one token per second
	clock.Advance(time.Second)
	allowed, _ = l.Allow("10.0.0.1", "/analyze", "POST")
	assert.True(t, allowed)
	allowed, _ = l.Allow("10.0.0.1", "/analyze", "POST")
	assert.False(t, allowed)

	// other clients are unaffected
	allowed, _ = l.Allow("10.0.0.2", "/analyze", "POST")
	assert.True(t, allowed)
}

func TestLimiter_AdminPrefixSharesBucket(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1000, DefaultWindow: time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(60)})
	defer l.Stop()

	paths := []string{
		"/admin/training/trigger",
		"/admin/training/cold-start",
		"/admin/training/runs/a/approve",
		"/admin/training/runs/b/reject",
		"/admin/training/runs/c/approve",
	}
	for _, p := range paths {
		allowed, _ := l.Allow("1.2.3.4", p, "POST")
		require.True(t, allowed, p)
	}
	allowed, _ := l.Allow("1.2.3.4", "/admin/training/trigger", "POST")
	assert.False(t, allowed)

	// GET has its own tier
	allowed, _ = l.Allow("1.2.3.4", "/admin/training/runs", "GET")
	assert.True(t, allowed)
}

func TestLimiter_ProbesUnlimited(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour})
	defer l.Stop()

	for i := 0; i < 100; i++ {
		allowed, _ := l.Allow("c", "/health", "GET")
		require.True(t, allowed)
		allowed, _ = l.Allow("c", "/metrics", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_DefaultLimit(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 2, DefaultWindow: time.Hour})
	defer l.Stop()

	allowed, _ := l.Allow("c", "/anything", "GET")
	assert.True(t, allowed)
	allowed, info := l.Allow("c", "/anything", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	allowed, _ = l.Allow("c", "/anything", "GET")
	assert.False(t, allowed)

	// default buckets are per path
	allowed, _ = l.Allow("c", "/other", "GET")
	assert.True(t, allowed)
}

func TestLimiter_WhitelistBlacklistDisabled(t *testing.T) {
	cfg := &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Hour,
		Whitelist:     IPSet([]string{" 10.0.0.1 ", ""}),
		Blacklist:     IPSet([]string{"10.0.0.9"}),
	}
	l, _ := newTestLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/x", "GET")
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("10.0.0.9", "/health", "GET")
	assert.False(t, allowed)

	off, _ := newTestLimiter(&Config{Enabled: false, Blacklist: IPSet([]string{"10.0.0.9"})})
	defer off.Stop()
	allowed, _ = off.Allow("10.0.0.9", "/x", "GET")
	assert.True(t, allowed)
}

func TestLimiter_EvictIdle(t *testing.T) {
	l, clock := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour})
	defer l.Stop()

	l.Allow("a", "/x", "GET")
	clock.Advance(30 * time.Minute)
	l.Allow("b", "/x", "GET")
	clock.Advance(45 * time.Minute)

	l.evictIdle(time.Hour)
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.buckets, 1)
	_, ok := l.buckets["b:GET:/x"]
	assert.True(t, ok)
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})
	defer l.Stop()

	var allowedCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/x", "GET"); ok {
				allowedCount.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(50), allowedCount.Load())
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()
	l.Stop()

	allowed, _ := l.Allow("c", "/analyze", "POST")
	assert.True(t, allowed)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs(60)

	ec := MatchEndpoint("/analyze", "POST", configs)
	require.NotNil(t, ec)
	assert.Equal(t, 60, ec.Limit)
	assert.Equal(t, 10, ec.Burst)

	ec = MatchEndpoint("/admin/training/runs/x/approve", "POST", configs)
	require.NotNil(t, ec)
	assert.Equal(t, "/admin/", ec.Path)

	assert.Nil(t, MatchEndpoint("/analyze", "GET", configs))
	ec = MatchEndpoint("/health", "GET", configs)
	require.NotNil(t, ec)
	assert.Zero(t, ec.Limit)
}
