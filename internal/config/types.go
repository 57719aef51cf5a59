package config

// QualityTier controls the model selection and trade-off between speed/cost and quality.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies a text or image model provider.
type ProviderType string

const (
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenAI     ProviderType = "openai"
	ProviderGoogle     ProviderType = "google"
	ProviderOllama     ProviderType = "ollama"
	ProviderOpenRouter ProviderType = "openrouter"
)

// Config is the top-level sitesmith configuration, corresponding to .sitesmith.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	ImageProvider     ProviderType `yaml:"image_provider" koanf:"image_provider"`
	ImageModel        string       `yaml:"image_model" koanf:"image_model"`
	Quality           QualityTier  `yaml:"quality" koanf:"quality"`
	DataDir           string       `yaml:"data_dir" koanf:"data_dir"`
	Port              int          `yaml:"port" koanf:"port"`
	DefaultLanguage   string       `yaml:"default_language" koanf:"default_language"`
	MaxImageCount     int          `yaml:"max_image_count" koanf:"max_image_count"`
	HistoryLimit      int          `yaml:"history_limit" koanf:"history_limit"`
	AutosaveDelayMS   int          `yaml:"autosave_delay_ms" koanf:"autosave_delay_ms"`
	StorageQuotaBytes int          `yaml:"storage_quota_bytes" koanf:"storage_quota_bytes"`
	ImagePacingMS     int          `yaml:"image_pacing_ms" koanf:"image_pacing_ms"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	LogLevel          string       `yaml:"log_level" koanf:"log_level"`
	LogFormat         string       `yaml:"log_format" koanf:"log_format"`
}
