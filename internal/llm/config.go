// Package llm wraps the completion providers behind one Client.
// The cover letter agents never see which provider answered; that is fixed at startup.
package llm

import "maps"

// ModelTier selects how capable (and costly) a model a call needs.
type ModelTier string

const (
	// TierLite handles term standardization and short keyword work.
	TierLite ModelTier = "lite"
	// TierStandard handles structured extraction and content checks.
	TierStandard ModelTier = "standard"
	// TierAdvanced handles strategy, drafting and refinement.
	TierAdvanced ModelTier = "advanced"
)

// Provider names a completion backend.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

const defaultMaxTokens = 4096

// providerModels lists the model used for each tier when nothing is configured.
var providerModels = map[Provider]map[ModelTier]string{
	ProviderGemini: {
		TierLite:     "gemini-2.5-flash-lite",
		TierStandard: "gemini-2.5-flash",
		TierAdvanced: "gemini-2.5-pro",
	},
	ProviderOpenAI: {
		TierLite:     "gpt-4o-mini",
		TierStandard: "gpt-4o",
		TierAdvanced: "gpt-4-turbo",
	},
	ProviderAnthropic: {
		TierLite:     "claude-haiku-4-5-20251001",
		TierStandard: "claude-sonnet-4-5-20250929",
		TierAdvanced: "claude-opus-4-5-20251101",
	},
}

// Config maps tiers to model names for one provider.
type Config struct {
	Provider  Provider
	Models    map[ModelTier]string
	MaxTokens int
}

// DefaultConfig is the Gemini setup.
func DefaultConfig() *Config {
	return DefaultConfigFor(ProviderGemini)
}

// DefaultConfigFor returns the built-in tier table for provider.
// Unknown providers get the Gemini table.
func DefaultConfigFor(provider Provider) *Config {
	models, ok := providerModels[provider]
	if !ok {
		provider = ProviderGemini
		models = providerModels[ProviderGemini]
	}
	return &Config{
		Provider:  provider,
		Models:    maps.Clone(models),
		MaxTokens: defaultMaxTokens,
	}
}

// GetModel resolves tier to a model name, falling back to the standard
// then the lite model. It returns "" when neither is configured.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model, ok := c.Models[t]; ok {
			return model
		}
	}
	return ""
}

// WithModel returns a copy of c with tier pointed at model.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	models := make(map[ModelTier]string, len(c.Models)+1)
	maps.Copy(models, c.Models)
	models[tier] = model
	return &Config{Provider: c.Provider, Models: models, MaxTokens: c.MaxTokens}
}

func (c *Config) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return defaultMaxTokens
}
