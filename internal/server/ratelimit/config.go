package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig builds the limiter configuration from RATE_LIMIT_* variables read through lookup.
func LoadConfig(lookup func(string) (string, bool)) *Config {
	env := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	if !parseBool(env("RATE_LIMIT_ENABLED"), true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    parseInt(env("RATE_LIMIT_DEFAULT_LIMIT"), 600),
		DefaultWindow:   parseDuration(env("RATE_LIMIT_DEFAULT_WINDOW"), time.Minute),
		CleanupInterval: parseDuration(env("RATE_LIMIT_CLEANUP_INTERVAL"), 5*time.Minute),
		Whitelist:       parseIPList(env("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(env("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Tier 1: full pipeline runs and letter writing (several completions each)
		{Path: "/api/generate", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/api/generate/stream", Method: "POST", Limit: 20, Window: time.Hour, Burst: 3},
		{Path: "/api/generate/cover-letter", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/api/refine/cover-letter", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/api/analyze/strategy", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},

		// Tier 2: single-agent calls
		{Path: "/api/analyze/", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/api/validate/", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/api/standardize/", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},

		// Tier 3: writes that embed documents
		{Path: "/api/documents", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/api/resume", Method: "PUT", Limit: 30, Window: time.Minute, Burst: 5},

		// Reads use the default limit; health and metrics are unlimited (see MatchEndpoint)
	}
}

func parseInt(value string, defaultValue int) int {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return defaultValue
}

func parseBool(value string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
