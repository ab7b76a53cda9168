// Package config loads service configuration from defaults, an optional JSON or YAML file
// and the environment, in that order of precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/cover-letter-agent/internal/llm"
)

// Duration is a time.Duration written as a Go duration string ("30s") in config files.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	return d.parse(s)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config is the complete service configuration
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Ingestion IngestionConfig `json:"ingestion" yaml:"ingestion"`
	Log       LogConfig       `json:"log" yaml:"log"`
	// DatabaseURL enables Postgres storage for resumes and documents when set.
	DatabaseURL string  `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	APIKeys     APIKeys `json:"api_keys" yaml:"api_keys"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
	RateLimit      bool     `json:"rate_limit" yaml:"rate_limit"`
}

// LLMConfig configures the completion provider shared by every agent
type LLMConfig struct {
	Provider llm.Provider `json:"provider" yaml:"provider"`
	// Models overrides the provider's default model per tier (lite, standard, advanced).
	Models        map[llm.ModelTier]string `json:"models,omitempty" yaml:"models,omitempty"`
	Temperature   float64                  `json:"temperature" yaml:"temperature"`
	MaxTokens     int                      `json:"max_tokens" yaml:"max_tokens"`
	Timeout       Duration                 `json:"timeout" yaml:"timeout"`
	RetryAttempts int                      `json:"retry_attempts" yaml:"retry_attempts"`
	RetryDelay    Duration                 `json:"retry_delay" yaml:"retry_delay"`
}

// EmbeddingConfig configures the embedding model used for the document store
type EmbeddingConfig struct {
	Provider llm.Provider `json:"provider" yaml:"provider"`
	Model    string       `json:"model,omitempty" yaml:"model,omitempty"`
}

// CacheConfig configures agent output caching
type CacheConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Size    int      `json:"size" yaml:"size"`
	TTL     Duration `json:"ttl" yaml:"ttl"`
	// RedisURL adds a shared tier behind the in-process cache when set.
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty"`
}

// IngestionConfig configures document chunking
type IngestionConfig struct {
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// APIKeys holds provider credentials. They are never written back out.
type APIKeys struct {
	Gemini    string `json:"gemini,omitempty" yaml:"gemini,omitempty"`
	OpenAI    string `json:"openai,omitempty" yaml:"openai,omitempty"`
	Anthropic string `json:"anthropic,omitempty" yaml:"anthropic,omitempty"`
}

// For returns the key of provider
func (k APIKeys) For(provider llm.Provider) string {
	switch provider {
	case llm.ProviderOpenAI:
		return k.OpenAI
	case llm.ProviderAnthropic:
		return k.Anthropic
	default:
		return k.Gemini
	}
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
			RateLimit:      true,
		},
		LLM: LLMConfig{
			Provider:      llm.ProviderGemini,
			Temperature:   0.7,
			MaxTokens:     4096,
			Timeout:       Duration{60 * time.Second},
			RetryAttempts: 3,
			RetryDelay:    Duration{time.Second},
		},
		Embedding: EmbeddingConfig{Provider: llm.ProviderGemini},
		Cache: CacheConfig{
			Enabled: true,
			Size:    1000,
			TTL:     Duration{time.Hour},
		},
		Ingestion: IngestionConfig{ChunkSize: 1000, ChunkOverlap: 200},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

// Load returns the defaults overlaid with the file at path (skipped when path is empty)
// and then with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays a JSON or YAML file, chosen by extension. Unset keys keep their values.
func (c *Config) loadFile(path string) error {
	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}
	return nil
}

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays every variable that lookup finds.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	env := envReader{lookup: lookup}

	env.str("AGENT_ADDR", &c.Server.Addr)
	if port, ok := lookup("PORT"); ok && port != "" {
		c.Server.Addr = ":" + port
	}
	env.list("AGENT_ALLOWED_ORIGINS", &c.Server.AllowedOrigins)
	env.boolean("AGENT_RATE_LIMIT", &c.Server.RateLimit)

	if v, ok := lookup("AGENT_PROVIDER"); ok && v != "" {
		c.LLM.Provider = llm.Provider(strings.ToLower(v))
	}
	if v, ok := lookup("AGENT_MODEL_NAME"); ok && v != "" {
		c.LLM.Models = map[llm.ModelTier]string{
			llm.TierLite:     v,
			llm.TierStandard: v,
			llm.TierAdvanced: v,
		}
	}
	env.float("AGENT_TEMPERATURE", &c.LLM.Temperature)
	env.integer("AGENT_MAX_TOKENS", &c.LLM.MaxTokens)
	env.duration("AGENT_TIMEOUT", &c.LLM.Timeout)
	env.integer("AGENT_RETRY_ATTEMPTS", &c.LLM.RetryAttempts)
	env.duration("AGENT_RETRY_DELAY", &c.LLM.RetryDelay)

	if v, ok := lookup("AGENT_EMBEDDING_PROVIDER"); ok && v != "" {
		c.Embedding.Provider = llm.Provider(strings.ToLower(v))
	}
	env.str("AGENT_EMBEDDING_MODEL", &c.Embedding.Model)

	env.boolean("AGENT_CACHE_ENABLED", &c.Cache.Enabled)
	env.integer("AGENT_CACHE_SIZE", &c.Cache.Size)
	env.duration("AGENT_CACHE_TTL", &c.Cache.TTL)
	env.str("REDIS_URL", &c.Cache.RedisURL)

	env.integer("AGENT_CHUNK_SIZE", &c.Ingestion.ChunkSize)
	env.integer("AGENT_CHUNK_OVERLAP", &c.Ingestion.ChunkOverlap)

	env.str("AGENT_LOG_LEVEL", &c.Log.Level)
	env.str("AGENT_LOG_FORMAT", &c.Log.Format)

	env.str("DATABASE_URL", &c.DatabaseURL)
	env.str("GEMINI_API_KEY", &c.APIKeys.Gemini)
	env.str("OPENAI_API_KEY", &c.APIKeys.OpenAI)
	env.str("ANTHROPIC_API_KEY", &c.APIKeys.Anthropic)

	return env.err
}

// envReader keeps the first parse failure so ApplyEnv reads like a list of bindings
type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(key, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid value %q for %s: %w", value, key, err)
	}
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *Duration) {
	if v, ok := e.get(key); ok {
		if err := dst.parse(v); err != nil {
			e.fail(key, v, err)
		}
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case llm.ProviderGemini, llm.ProviderOpenAI, llm.ProviderAnthropic:
	default:
		return fmt.Errorf("config error: unsupported llm provider %q", c.LLM.Provider)
	}
	switch c.Embedding.Provider {
	case llm.ProviderGemini, llm.ProviderOpenAI:
	default:
		return fmt.Errorf("config error: provider %q cannot embed documents", c.Embedding.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("config error: 'temperature' must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("config error: 'max_tokens' must be non-negative")
	}
	if c.LLM.RetryAttempts < 1 {
		return fmt.Errorf("config error: 'retry_attempts' must be at least 1")
	}
	if c.LLM.Timeout.Duration < 0 || c.LLM.RetryDelay.Duration < 0 || c.Cache.TTL.Duration < 0 {
		return fmt.Errorf("config error: durations must be non-negative")
	}
	if c.Cache.Enabled && c.Cache.Size <= 0 {
		return fmt.Errorf("config error: 'cache.size' must be positive when caching is enabled")
	}
	if c.Ingestion.ChunkSize <= 0 {
		return fmt.Errorf("config error: 'chunk_size' must be positive")
	}
	if c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		return fmt.Errorf("config error: 'chunk_overlap' must be in [0, chunk_size)")
	}
	return nil
}

// RequireAPIKey fails when the completion provider has no key
func (c *Config) RequireAPIKey() error {
	if c.APIKeys.For(c.LLM.Provider) == "" {
		return fmt.Errorf("config error: no API key for provider %q", c.LLM.Provider)
	}
	return nil
}

// LLMClientConfig returns the provider defaults with the configured model overrides applied
func (c *Config) LLMClientConfig() *llm.Config {
	out := llm.DefaultConfigFor(c.LLM.Provider)
	for tier, model := range c.LLM.Models {
		if model != "" {
			out = out.WithModel(tier, model)
		}
	}
	if c.LLM.MaxTokens > 0 {
		out.MaxTokens = c.LLM.MaxTokens
	}
	return out
}
