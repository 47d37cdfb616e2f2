package config

// Config holds sift configuration.
// Stored at: ./config.yaml or ~/.sift/config.yaml
type Config struct {
	APIKeys      map[string]string         `mapstructure:"api_keys" yaml:"api_keys" json:"api_keys"`
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers" json:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults" json:"defaults"`
	Render       RenderCfg                 `mapstructure:"render" yaml:"render" json:"render"`
	Sessions     SessionsCfg               `mapstructure:"sessions" yaml:"sessions" json:"sessions"`
	Extraction   ExtractionCfg             `mapstructure:"extraction" yaml:"extraction" json:"extraction"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type" json:"type"`                                  // "openrouter", "openai"
	Model          string  `mapstructure:"model" yaml:"model" json:"model"`                               // Vision-capable model name
	APIKey         string  `mapstructure:"api_key" yaml:"api_key" json:"api_key"`                         // API key (supports ${ENV_VAR} syntax)
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url,omitempty" json:"base_url,omitempty"`  // Optional endpoint override
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`                // Requests per second
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`             // Transport retry attempts
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"` // HTTP timeout
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider" json:"llm_provider"` // Provider used for schema generation and extraction
}

// RenderCfg configures PDF page rendering.
type RenderCfg struct {
	Backend     string  `mapstructure:"backend" yaml:"backend" json:"backend"`                   // "fitz" or "pdftoppm"
	DPI         float64 `mapstructure:"dpi" yaml:"dpi" json:"dpi"`                               // Render resolution
	MaxFileSize int64   `mapstructure:"max_file_size" yaml:"max_file_size" json:"max_file_size"` // Upload limit in bytes
}

// SessionsCfg configures the in-memory session store.
type SessionsCfg struct {
	IdleTTLMinutes         int `mapstructure:"idle_ttl_minutes" yaml:"idle_ttl_minutes" json:"idle_ttl_minutes"`
	CleanupIntervalMinutes int `mapstructure:"cleanup_interval_minutes" yaml:"cleanup_interval_minutes" json:"cleanup_interval_minutes"`
}

// ExtractionCfg tunes the LLM calls made for schema generation and extraction.
type ExtractionCfg struct {
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature" json:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
	RepairAttempts int     `mapstructure:"repair_attempts" yaml:"repair_attempts" json:"repair_attempts"`
}
