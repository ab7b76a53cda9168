package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/cover-letter-agent/internal/llm"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, llm.ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
	assert.Equal(t, 3, cfg.LLM.RetryAttempts)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Duration)
	assert.Equal(t, 1000, cfg.Ingestion.ChunkSize)
}

func TestLoad_JSONFile(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"server": {"addr": ":9090"},
		"llm": {"provider": "openai", "timeout": "15s", "models": {"advanced": "gpt-4o"}},
		"cache": {"ttl": "10m"},
		"database_url": "postgres://localhost/letters"
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout.Duration)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL.Duration)
	assert.Equal(t, "postgres://localhost/letters", cfg.DatabaseURL)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.LLM.RetryAttempts)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  provider: anthropic
  temperature: 0.2
  retry_delay: 250ms
ingestion:
  chunk_size: 500
  chunk_overlap: 50
log:
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, 250*time.Millisecond, cfg.LLM.RetryDelay.Duration)
	assert.Equal(t, 500, cfg.Ingestion.ChunkSize)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{ invalid json }`)

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeFile(t, "config.json", `{"llm": {"timeout": 30}}`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"PORT":                  "7000",
		"AGENT_ALLOWED_ORIGINS": "http://localhost:3000, https://app.example.com",
		"AGENT_PROVIDER":        "OpenAI",
		"AGENT_MODEL_NAME":      "gpt-4",
		"AGENT_TEMPERATURE":     "0",
		"AGENT_RETRY_ATTEMPTS":  "5",
		"AGENT_CACHE_ENABLED":   "false",
		"AGENT_CACHE_TTL":       "5m",
		"AGENT_CHUNK_SIZE":      "800",
		"AGENT_LOG_LEVEL":       "debug",
		"DATABASE_URL":          "postgres://db/letters",
		"REDIS_URL":             "redis://cache:6379/0",
		"OPENAI_API_KEY":        "sk-test",
		"GEMINI_API_KEY":        "   ",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4", cfg.LLM.Models[llm.TierLite])
	assert.Equal(t, "gpt-4", cfg.LLM.Models[llm.TierAdvanced])
	assert.Equal(t, 0.0, cfg.LLM.Temperature)
	assert.Equal(t, 5, cfg.LLM.RetryAttempts)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL.Duration)
	assert.Equal(t, 800, cfg.Ingestion.ChunkSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "postgres://db/letters", cfg.DatabaseURL)
	assert.Equal(t, "redis://cache:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, "sk-test", cfg.APIKeys.For(llm.ProviderOpenAI))
	assert.Empty(t, cfg.APIKeys.Gemini)
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"AGENT_CACHE_SIZE":  "lots",
		"AGENT_TEMPERATURE": "warm",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGENT_TEMPERATURE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "cohere" }, wantErr: "unsupported llm provider"},
		{name: "anthropic cannot embed", mutate: func(c *Config) { c.Embedding.Provider = llm.ProviderAnthropic }, wantErr: "cannot embed"},
		{name: "temperature too high", mutate: func(c *Config) { c.LLM.Temperature = 3 }, wantErr: "temperature"},
		{name: "no attempts", mutate: func(c *Config) { c.LLM.RetryAttempts = 0 }, wantErr: "retry_attempts"},
		{name: "empty cache", mutate: func(c *Config) { c.Cache.Size = 0 }, wantErr: "cache.size"},
		{
			name: "disabled cache may be empty",
			mutate: func(c *Config) {
				c.Cache.Enabled = false
				c.Cache.Size = 0
			},
		},
		{name: "overlap too large", mutate: func(c *Config) { c.Ingestion.ChunkOverlap = 1000 }, wantErr: "chunk_overlap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.RequireAPIKey())

	cfg.APIKeys.Gemini = "key"
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestLLMClientConfig(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = llm.ProviderOpenAI
	cfg.LLM.Models = map[llm.ModelTier]string{llm.TierAdvanced: "gpt-4o"}
	cfg.LLM.MaxTokens = 2048

	out := cfg.LLMClientConfig()

	assert.Equal(t, llm.ProviderOpenAI, out.Provider)
	assert.Equal(t, "gpt-4o", out.GetModel(llm.TierAdvanced))
	assert.Equal(t, "gpt-4o-mini", out.GetModel(llm.TierLite))
	assert.Equal(t, 2048, out.MaxTokens)
}
