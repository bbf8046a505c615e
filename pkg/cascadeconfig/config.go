// Package cascadeconfig holds cascade-tool's configuration: cascade sizing
// parameters, logging, and the Postgres store, loaded from a JSON file with
// environment variable overrides in the same layering order cascade-tool's
// teacher repo used.
package cascadeconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds cascade-tool's full configuration surface.
type Config struct {
	Cascade CascadeConfig `json:"cascade"`
	Store   StoreConfig   `json:"store"`
	Logging LoggingConfig `json:"logging"`
}

// CascadeConfig holds cascade construction parameters. cascade-tool build
// uses RHat and MaxLayers when their flags are left at zero. The two target
// rates are validated but not passed to FromSets, which always uses the
// rates built into pkg/cascade.
type CascadeConfig struct {
	RHat                  int     `json:"r_hat"`
	MaxLayers             int     `json:"max_layers"`
	LayerOneTargetRate    float64 `json:"layer_one_target_rate"`
	DeeperLayerTargetRate float64 `json:"deeper_layer_target_rate"`
}

// StoreConfig holds the Postgres connection settings for cascadestore.Open.
// cascade-tool itself does not open a store.
type StoreConfig struct {
	DSN             string `json:"dsn"`
	MigrationsPath  string `json:"migrations_path"`
	ConnectTimeoutS int    `json:"connect_timeout_seconds"`
}

// LoggingConfig mirrors cascadelog.Config in JSON-serializable form.
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
	File   string `json:"file"`
}

// DefaultConfig returns cascade-tool's out-of-the-box configuration.
func DefaultConfig() *Config {
	return &Config{
		Cascade: CascadeConfig{
			RHat:                  10000,
			MaxLayers:             64,
			LayerOneTargetRate:    0.35355339059327373,
			DeeperLayerTargetRate: 0.5,
		},
		Store: StoreConfig{
			DSN:             "postgres://localhost:5432/cascade?sslmode=disable",
			MigrationsPath:  "pkg/cascadestore/migrations",
			ConnectTimeoutS: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "console",
			File:   "",
		},
	}
}

// LoadConfig reads configPath if it exists, layers environment variable
// overrides on top, then validates the result.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if err := config.loadFromFile(configPath); err != nil {
			return nil, fmt.Errorf("cascadeconfig: failed to load config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("cascadeconfig: invalid configuration: %w", err)
	}
	return config, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	if val := os.Getenv("CASCADE_R_HAT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cascade.RHat = n
		}
	}
	if val := os.Getenv("CASCADE_MAX_LAYERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Cascade.MaxLayers = n
		}
	}

	if val := os.Getenv("CASCADE_STORE_DSN"); val != "" {
		c.Store.DSN = val
	}
	if val := os.Getenv("CASCADE_STORE_MIGRATIONS_PATH"); val != "" {
		c.Store.MigrationsPath = val
	}
	if val := os.Getenv("CASCADE_STORE_CONNECT_TIMEOUT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Store.ConnectTimeoutS = n
		}
	}

	if val := os.Getenv("CASCADE_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("CASCADE_LOG_FORMAT"); val != "" {
		c.Logging.Format = val
	}
	if val := os.Getenv("CASCADE_LOG_OUTPUT"); val != "" {
		c.Logging.Output = val
	}
	if val := os.Getenv("CASCADE_LOG_FILE"); val != "" {
		c.Logging.File = val
	}
}

// Validate rejects configurations FromSets or the store layer could not
// act on.
func (c *Config) Validate() error {
	if c.Cascade.RHat <= 0 {
		return fmt.Errorf("cascade.r_hat must be positive")
	}
	if c.Cascade.MaxLayers <= 0 {
		return fmt.Errorf("cascade.max_layers must be positive")
	}
	if c.Cascade.LayerOneTargetRate <= 0 || c.Cascade.LayerOneTargetRate >= 1 {
		return fmt.Errorf("cascade.layer_one_target_rate must be in (0,1)")
	}
	if c.Cascade.DeeperLayerTargetRate <= 0 || c.Cascade.DeeperLayerTargetRate >= 1 {
		return fmt.Errorf("cascade.deeper_layer_target_rate must be in (0,1)")
	}

	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn cannot be empty")
	}
	if c.Store.ConnectTimeoutS <= 0 {
		return fmt.Errorf("store.connect_timeout_seconds must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	validOutputs := map[string]bool{"console": true, "file": true, "both": true}
	if !validOutputs[strings.ToLower(c.Logging.Output)] {
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	return nil
}

// SaveToFile writes c as indented JSON to path, creating its directory if
// needed.
func (c *Config) SaveToFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cascadeconfig: failed to create config directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("cascadeconfig: failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfigPath returns ~/.cascade-tool/config.json.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cascadeconfig: failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".cascade-tool", "config.json"), nil
}
