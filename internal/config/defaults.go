package config

const (
	DefaultRenderBackend = "fitz"
	DefaultRenderDPI     = 150.0
	DefaultMaxFileSize   = 50 << 20 // 50MB
)

// DefaultConfig returns the configuration used when no config file is present.
func DefaultConfig() *Config {
	return &Config{
		APIKeys: map[string]string{
			"openrouter": "${OPENROUTER_API_KEY}",
			"openai":     "${OPENAI_API_KEY}",
		},
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:           "openrouter",
				Model:          "google/gemini-2.5-flash",
				APIKey:         "${OPENROUTER_API_KEY}",
				RateLimit:      5.0,
				MaxRetries:     5,
				TimeoutSeconds: 300,
				Enabled:        true,
			},
			"openai": {
				Type:           "openai",
				Model:          "gpt-4.1-mini",
				APIKey:         "${OPENAI_API_KEY}",
				RateLimit:      5.0,
				MaxRetries:     3,
				TimeoutSeconds: 300,
				Enabled:        true,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openrouter",
		},
		Render: RenderCfg{
			Backend:     DefaultRenderBackend,
			DPI:         DefaultRenderDPI,
			MaxFileSize: DefaultMaxFileSize,
		},
		Sessions: SessionsCfg{
			IdleTTLMinutes:         60,
			CleanupIntervalMinutes: 10,
		},
		Extraction: ExtractionCfg{
			Temperature:    0,
			MaxTokens:      8192,
			RepairAttempts: 2,
		},
	}
}
