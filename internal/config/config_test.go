package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.APIKeys["openrouter"] != "${OPENROUTER_API_KEY}" {
		t.Error("expected openrouter API key placeholder")
	}
	if _, ok := cfg.LLMProviders[cfg.Defaults.LLMProvider]; !ok {
		t.Errorf("default provider %q is not configured", cfg.Defaults.LLMProvider)
	}
	if cfg.Render.Backend != DefaultRenderBackend {
		t.Errorf("expected render backend %s, got %s", DefaultRenderBackend, cfg.Render.Backend)
	}
	if cfg.Render.DPI != DefaultRenderDPI {
		t.Errorf("expected dpi %v, got %v", DefaultRenderDPI, cfg.Render.DPI)
	}
	if cfg.Extraction.RepairAttempts != 2 {
		t.Errorf("expected 2 repair attempts, got %d", cfg.Extraction.RepairAttempts)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_ResolveAPIKey(t *testing.T) {
	os.Setenv("TEST_OPENROUTER_KEY", "or-key-123")
	defer os.Unsetenv("TEST_OPENROUTER_KEY")

	cfg := &Config{
		APIKeys: map[string]string{
			"openrouter": "${TEST_OPENROUTER_KEY}",
			"literal":    "direct-key",
		},
	}

	t.Run("resolves env var reference", func(t *testing.T) {
		result := cfg.ResolveAPIKey("openrouter")
		if result != "or-key-123" {
			t.Errorf("expected or-key-123, got %s", result)
		}
	})

	t.Run("returns literal value", func(t *testing.T) {
		result := cfg.ResolveAPIKey("literal")
		if result != "direct-key" {
			t.Errorf("expected direct-key, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
api_keys:
  test_key: "test_value"
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.APIKeys["test_key"] != "test_value" {
			t.Errorf("expected test_value, got %s", cfg.APIKeys["test_key"])
		}
	})
}

func TestManager_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
render:
  dpi: 200
sessions:
  idle_ttl_minutes: 5
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	cfg := mgr.Get()
	if cfg.Render.DPI != 200 {
		t.Errorf("expected dpi 200, got %v", cfg.Render.DPI)
	}
	if cfg.Render.Backend != DefaultRenderBackend {
		t.Errorf("expected default backend to survive partial file, got %q", cfg.Render.Backend)
	}
	if cfg.SessionTTL() != 5*time.Minute {
		t.Errorf("expected 5m ttl, got %s", cfg.SessionTTL())
	}
	if cfg.Defaults.LLMProvider != "openrouter" {
		t.Errorf("expected default llm provider openrouter, got %s", cfg.Defaults.LLMProvider)
	}
	if mgr.ConfigFile() != configFile {
		t.Errorf("expected config file %s, got %s", configFile, mgr.ConfigFile())
	}
}

func TestManager_OnChange(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("api_keys:\n  test_key: \"v\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 1 {
		t.Errorf("expected 1 callback, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_OnChange_Multiple(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api_keys:
  key: "value"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Register multiple callbacks
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api_keys:
  key: "value"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Call Get concurrently to verify no race conditions
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.APIKeys["key"]
			}
			done <- struct{}{}
		}()
	}

	// Wait for all goroutines
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
api_keys:
  test_key: "initial_value"
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	// Verify initial value
	cfg := mgr.Get()
	if cfg.APIKeys["test_key"] != "initial_value" {
		t.Errorf("initial value mismatch: expected initial_value, got %s", cfg.APIKeys["test_key"])
	}

	// Track callback invocations
	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.APIKeys["test_key"])
	})

	// Start watching
	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	// Update the config file
	newContent := `
api_keys:
  test_key: "updated_value"
`
	if err := os.WriteFile(configFile, []byte(newContent), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Wait for the watcher to detect the change (fsnotify is async)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}

	// Verify the config was updated
	newCfg := mgr.Get()
	if newCfg.APIKeys["test_key"] != "updated_value" {
		t.Errorf("config not updated: expected updated_value, got %s", newCfg.APIKeys["test_key"])
	}

	// Verify callback received the updated value
	if v := lastValue.Load(); v != "updated_value" {
		t.Errorf("callback received wrong value: expected updated_value, got %v", v)
	}
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	os.Setenv("TEST_SIFT_OR_KEY", "or-key")
	defer os.Unsetenv("TEST_SIFT_OR_KEY")

	cfg := &Config{
		APIKeys: map[string]string{
			"fallback": "${TEST_SIFT_OR_KEY}",
		},
		LLMProviders: map[string]LLMProviderCfg{
			"direct": {
				Type:           "openrouter",
				Model:          "m1",
				APIKey:         "${TEST_SIFT_OR_KEY}",
				RateLimit:      2,
				TimeoutSeconds: 30,
				Enabled:        true,
			},
			"fallback": {
				Type:    "openai",
				Model:   "m2",
				Enabled: true,
			},
		},
	}

	reg := cfg.ToProviderRegistryConfig()

	direct := reg.LLMProviders["direct"]
	if direct.APIKey != "or-key" {
		t.Errorf("expected resolved key, got %q", direct.APIKey)
	}
	if direct.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", direct.Timeout)
	}
	if direct.RateLimit != 2 {
		t.Errorf("expected rate limit 2, got %v", direct.RateLimit)
	}

	fallback := reg.LLMProviders["fallback"]
	if fallback.APIKey != "or-key" {
		t.Errorf("expected key from api_keys fallback, got %q", fallback.APIKey)
	}
	if fallback.Type != "openai" {
		t.Errorf("expected type openai, got %s", fallback.Type)
	}
}

func TestConfig_Redacted(t *testing.T) {
	cfg := &Config{
		APIKeys: map[string]string{
			"env":     "${SOME_KEY}",
			"literal": "sk-secret",
		},
		LLMProviders: map[string]LLMProviderCfg{
			"p": {APIKey: "sk-other"},
		},
	}

	red := cfg.Redacted()
	if red.APIKeys["env"] != "${SOME_KEY}" {
		t.Errorf("env reference should be kept, got %q", red.APIKeys["env"])
	}
	if red.APIKeys["literal"] == "sk-secret" {
		t.Error("literal key should be masked")
	}
	if red.LLMProviders["p"].APIKey == "sk-other" {
		t.Error("provider key should be masked")
	}
	if cfg.APIKeys["literal"] != "sk-secret" {
		t.Error("original config must not be modified")
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to load written default: %v", err)
	}
	cfg := mgr.Get()
	if cfg.LLMProviders["openai"].Model != "gpt-4.1-mini" {
		t.Errorf("unexpected openai model %q", cfg.LLMProviders["openai"].Model)
	}
	if cfg.Extraction.MaxTokens != 8192 {
		t.Errorf("expected max tokens 8192, got %d", cfg.Extraction.MaxTokens)
	}
}
