package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig is the limit applied to one route.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends in "/"
	Method string        // HTTP method
	Limit  int           // requests per window; 0 means unlimited
	Window time.Duration // refill window
	Burst  int           // bucket capacity, Limit when 0
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns an enabled configuration with the standard tiers.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
		EndpointConfigs: DefaultEndpointConfigs(60),
	}
}

// DefaultEndpointConfigs returns the per-route tiers. analyzePerMinute bounds
// model-backed analysis per client.
func DefaultEndpointConfigs(analyzePerMinute int) []EndpointConfig {
	burst := analyzePerMinute / 6
	if burst < 1 {
		burst = 1
	}
	return []EndpointConfig{
		// Inference
		{Path: "/analyze", Method: "POST", Limit: analyzePerMinute, Window: time.Minute, Burst: burst},

		// Admin writes; a failed credential still spends a token
		{Path: "/admin/", Method: "POST", Limit: 30, Window: time.Minute, Burst: 5},
		{Path: "/admin/", Method: "GET", Limit: 120, Window: time.Minute, Burst: 20},
	}
}

// IPSet turns a list of addresses into a lookup set, ignoring blanks.
func IPSet(ips []string) map[string]bool {
	result := make(map[string]bool, len(ips))
	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}
