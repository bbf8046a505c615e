package cascadeconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Cascade.RHat != 10000 {
		t.Errorf("expected default r_hat 10000, got %d", config.Cascade.RHat)
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", config.Logging.Level)
	}
	if config.Store.DSN == "" {
		t.Error("expected a non-empty default store DSN")
	}
}

func TestConfigValidation(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("valid config failed validation: %v", err)
	}

	config.Cascade.RHat = 0
	if err := config.Validate(); err == nil {
		t.Error("zero r_hat should fail validation")
	}

	config = DefaultConfig()
	config.Logging.Level = "invalid"
	if err := config.Validate(); err == nil {
		t.Error("invalid log level should fail validation")
	}

	config = DefaultConfig()
	config.Store.DSN = ""
	if err := config.Validate(); err == nil {
		t.Error("empty store DSN should fail validation")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	os.Setenv("CASCADE_R_HAT", "2500")
	os.Setenv("CASCADE_LOG_LEVEL", "debug")
	os.Setenv("CASCADE_STORE_DSN", "postgres://example/cascade")
	defer func() {
		os.Unsetenv("CASCADE_R_HAT")
		os.Unsetenv("CASCADE_LOG_LEVEL")
		os.Unsetenv("CASCADE_STORE_DSN")
	}()

	config := DefaultConfig()
	config.applyEnvironmentOverrides()

	if config.Cascade.RHat != 2500 {
		t.Errorf("environment override failed for r_hat, got %d", config.Cascade.RHat)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("environment override failed for log level, got %s", config.Logging.Level)
	}
	if config.Store.DSN != "postgres://example/cascade" {
		t.Errorf("environment override failed for store DSN, got %s", config.Store.DSN)
	}
}

func TestConfigFileRoundTrip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "cascadeconfig_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	configPath := filepath.Join(tmpDir, "config.json")

	config := DefaultConfig()
	config.Cascade.RHat = 42

	if err := config.SaveToFile(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if loaded.Cascade.RHat != 42 {
		t.Errorf("config not loaded correctly, got r_hat=%d", loaded.Cascade.RHat)
	}
}

func TestLoadNonexistentConfigUsesDefaults(t *testing.T) {
	config, err := LoadConfig("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("loading nonexistent config should not error: %v", err)
	}
	if config.Cascade.RHat != 10000 {
		t.Errorf("nonexistent config should use defaults, got r_hat=%d", config.Cascade.RHat)
	}
}
