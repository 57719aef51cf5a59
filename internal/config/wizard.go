package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to sitesmith! Let's configure your generator.")
	fmt.Println()

	// 1. Text provider selection.
	providerPrompt := promptui.Select{
		Label: "Select text model provider",
		Items: []string{"google", "openai", "anthropic", "openrouter", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	provider := ProviderType(providerStr)

	// 2. Quality tier.
	qualityPrompt := promptui.Select{
		Label: "Select quality tier",
		Items: []string{
			"lite   — fast & cheap (flash-lite / gpt-4o-mini)",
			"normal — balanced (flash / gpt-4o)",
			"max    — highest quality (pro / gpt-4.1)",
		},
	}
	qualityIdx, _, err := qualityPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("quality selection: %w", err)
	}
	tiers := []QualityTier{QualityLite, QualityNormal, QualityMax}
	quality := tiers[qualityIdx]

	preset := GetPreset(provider, quality)
	imageProvider := ImageProviderFor(provider)
	imageModel := preset.ImageModel
	if imageModel == "" {
		imageModel = GetPreset(imageProvider, quality).ImageModel
	}

	// 3. Default content language.
	languagePrompt := promptui.Prompt{
		Label:   "Default site language (BCP 47 tag)",
		Default: "en",
	}
	language, err := languagePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("language: %w", err)
	}

	// 4. Editor port.
	portPrompt := promptui.Prompt{
		Label:   "Editor port",
		Default: "8080",
		Validate: func(s string) error {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	port, _ := strconv.Atoi(strings.TrimSpace(portStr))

	// Build the config.
	cfg := DefaultConfig()
	cfg.Provider = provider
	cfg.Model = preset.Model
	cfg.ImageProvider = imageProvider
	cfg.ImageModel = imageModel
	cfg.Quality = quality
	cfg.DefaultLanguage = strings.TrimSpace(language)
	cfg.Port = port

	// Check for API keys.
	for _, p := range []ProviderType{provider, imageProvider} {
		envVar := APIKeyEnvVar(p)
		if envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment (or .env) before running sitesmith generate.\n", envVar)
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
