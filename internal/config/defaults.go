package config

import "time"

// QualityPreset describes the models to use for a given quality tier.
type QualityPreset struct {
	Model      string
	ImageModel string
}

// qualityPresets maps each provider+quality combination to its model choices.
// Providers without an image model of their own leave ImageModel empty and the
// image side falls back to the Google preset.
var qualityPresets = map[ProviderType]map[QualityTier]QualityPreset{
	ProviderGoogle: {
		QualityLite:   {Model: "gemini-2.5-flash-lite", ImageModel: "imagen-4.0-fast-generate-001"},
		QualityNormal: {Model: "gemini-2.5-flash", ImageModel: "imagen-4.0-generate-001"},
		QualityMax:    {Model: "gemini-2.5-pro", ImageModel: "imagen-4.0-ultra-generate-001"},
	},
	ProviderOpenAI: {
		QualityLite:   {Model: "gpt-4o-mini", ImageModel: "gpt-image-1"},
		QualityNormal: {Model: "gpt-4o", ImageModel: "gpt-image-1"},
		QualityMax:    {Model: "gpt-4.1", ImageModel: "gpt-image-1"},
	},
	ProviderAnthropic: {
		QualityLite:   {Model: "claude-haiku-4-5-20251001"},
		QualityNormal: {Model: "claude-sonnet-4-5-20250929"},
		QualityMax:    {Model: "claude-opus-4-6"},
	},
	ProviderOllama: {
		QualityLite:   {Model: "llama3"},
		QualityNormal: {Model: "llama3"},
		QualityMax:    {Model: "llama3:70b"},
	},
	ProviderOpenRouter: {
		QualityLite:   {Model: "google/gemini-2.5-flash-lite"},
		QualityNormal: {Model: "google/gemini-2.5-flash"},
		QualityMax:    {Model: "anthropic/claude-sonnet-4.5"},
	},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderGoogle,
		Model:             "gemini-2.5-flash",
		ImageProvider:     ProviderGoogle,
		ImageModel:        "imagen-4.0-generate-001",
		Quality:           QualityNormal,
		DataDir:           ".sitesmith",
		Port:              8080,
		DefaultLanguage:   "en",
		MaxImageCount:     12,
		HistoryLimit:      200,
		AutosaveDelayMS:   1000,
		StorageQuotaBytes: 5 * 1024 * 1024,
		ImagePacingMS:     250,
		RequestsPerMinute: 60,
		LogLevel:          "info",
		LogFormat:         "console",
	}
}

// GetPreset returns the quality preset for the given provider and tier.
// Returns the Normal Google preset if the combination is not found.
func GetPreset(provider ProviderType, tier QualityTier) QualityPreset {
	if tiers, ok := qualityPresets[provider]; ok {
		if preset, ok := tiers[tier]; ok {
			return preset
		}
	}
	return qualityPresets[ProviderGoogle][QualityNormal]
}

// ImageProviderFor returns the image provider to pair with a text provider.
// Only Google and OpenAI host image models.
func ImageProviderFor(p ProviderType) ProviderType {
	if p == ProviderOpenAI {
		return ProviderOpenAI
	}
	return ProviderGoogle
}

// AutosaveDelay is the debounce window for background saves.
func (c *Config) AutosaveDelay() time.Duration {
	return time.Duration(c.AutosaveDelayMS) * time.Millisecond
}

// ImagePacing is the pause inserted between sequential image renders.
func (c *Config) ImagePacing() time.Duration {
	return time.Duration(c.ImagePacingMS) * time.Millisecond
}
