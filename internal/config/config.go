// Package config loads handoff configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all handoff configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Backend configuration
	Backends BackendsConfig `yaml:"backends"`

	// Context optimization settings
	Context ContextConfig `yaml:"context"`

	// Storage paths
	Storage StorageConfig `yaml:"storage"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BackendsConfig configures the available LLM backends.
type BackendsConfig struct {
	// Default is the backend used when none is specified.
	Default string `yaml:"default"`

	Ollama OllamaConfig `yaml:"ollama"`
	Claude ClaudeConfig `yaml:"claude"`
	Gemini GeminiConfig `yaml:"gemini"`
}

// OllamaConfig configures the local ollama backend.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// ClaudeConfig configures the Anthropic backend.
type ClaudeConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// GeminiConfig configures the Google backend.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// ContextConfig configures the context optimization subsystem.
type ContextConfig struct {
	// MaxContextLength is the character budget for optimized context.
	MaxContextLength int `yaml:"max_context_length"`

	// OptimizeThreshold is the token estimate above which conversations
	// are optimized automatically.
	OptimizeThreshold int `yaml:"optimize_threshold"`

	// RetentionDays controls session cleanup.
	RetentionDays int `yaml:"retention_days"`
}

// StorageConfig configures where handoff keeps its data.
type StorageConfig struct {
	DataDir      string `yaml:"data_dir"`
	SessionsFile string `yaml:"sessions_file"`
	AnalyticsDB  string `yaml:"analytics_db"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "handoff",
		Version: "0.1.0",
		Backends: BackendsConfig{
			Default: "local",
			Ollama: OllamaConfig{
				BaseURL: "http://localhost:11434",
				Model:   "codellama",
				Timeout: "120s",
			},
			Claude: ClaudeConfig{
				BaseURL: "https://api.anthropic.com",
				Model:   "claude-sonnet-4-20250514",
				Timeout: "120s",
			},
			Gemini: GeminiConfig{
				BaseURL: "https://generativelanguage.googleapis.com",
				Model:   "gemini-2.0-flash",
				Timeout: "120s",
			},
		},
		Context: ContextConfig{
			MaxContextLength:  4000,
			OptimizeThreshold: 6000,
			RetentionDays:     30,
		},
		Storage: StorageConfig{
			DataDir:      ".handoff",
			SessionsFile: "sessions.json",
			AnalyticsDB:  "analytics.db",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Backends.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Backends.Gemini.APIKey = key
	}
	if url := os.Getenv("OLLAMA_HOST"); url != "" {
		c.Backends.Ollama.BaseURL = url
	}
	if name := os.Getenv("HANDOFF_BACKEND"); name != "" {
		c.Backends.Default = name
	}
	if dir := os.Getenv("HANDOFF_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if v := os.Getenv("HANDOFF_MAX_CONTEXT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Context.MaxContextLength = n
		}
	}
}

// SessionsPath returns the absolute path of the session store file.
func (c *Config) SessionsPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.SessionsFile)
}

// AnalyticsPath returns the absolute path of the analytics database.
func (c *Config) AnalyticsPath() string {
	return filepath.Join(c.Storage.DataDir, c.Storage.AnalyticsDB)
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Context.MaxContextLength <= 0 {
		return fmt.Errorf("context.max_context_length must be positive")
	}
	if c.Context.OptimizeThreshold <= 0 {
		return fmt.Errorf("context.optimize_threshold must be positive")
	}
	if c.Context.RetentionDays < 0 {
		return fmt.Errorf("context.retention_days must not be negative")
	}
	if c.Backends.Default == "" {
		return fmt.Errorf("backends.default must be set")
	}
	return nil
}
