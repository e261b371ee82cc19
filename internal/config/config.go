// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/shortlister/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete shortlister configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Assistant service configuration
	Assistant AssistantConfig `toml:"assistant" json:"assistant"`

	// Conversation store configuration
	Store StoreConfig `toml:"store" json:"store"`

	// HTTP server configuration
	Server ServerConfig `toml:"server" json:"server"`

	// Login gate configuration
	Auth AuthConfig `toml:"auth" json:"auth"`

	// Export configuration
	Export ExportConfig `toml:"export" json:"export"`

	// Terminal UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// AssistantConfig contains the hosted assistant service settings.
type AssistantConfig struct {
	// APIKey is the OpenAI API key. Usually supplied via environment.
	APIKey string `toml:"api_key" json:"api_key"`
	// AssistantID addresses the remotely configured assistant.
	AssistantID string `toml:"assistant_id" json:"assistant_id"`
	// PollIntervalSecs is the delay between run status checks.
	PollIntervalSecs int `toml:"poll_interval_secs" json:"poll_interval_secs"`
	// MaxWaitSecs bounds the total wait for one assistant run.
	MaxWaitSecs int `toml:"max_wait_secs" json:"max_wait_secs"`
}

// StoreConfig contains conversation store settings.
type StoreConfig struct {
	// Backend selects the store implementation: "json" or "sqlite".
	Backend string `toml:"backend" json:"backend"`
	// Path is the backing file. Empty means the default under the
	// config directory.
	Path string `toml:"path" json:"path"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Port is the listen port for `shortlister serve`.
	Port int `toml:"port" json:"port"`
}

// AuthConfig contains login gate settings. Credentials are usually
// supplied via SHORTLISTER_USERNAME / SHORTLISTER_PASSWORD rather than
// written to the config file.
type AuthConfig struct {
	Username string `toml:"username" json:"username"`
	Password string `toml:"password" json:"password"`
	// SessionTimeoutSecs is the idle expiry for HTTP session tokens.
	SessionTimeoutSecs int `toml:"session_timeout_secs" json:"session_timeout_secs"`
}

// ExportConfig contains export settings.
type ExportConfig struct {
	// OutputDir is where export artifacts are written.
	OutputDir string `toml:"output_dir" json:"output_dir"`
	// IncludeTimestamps includes per-message timestamps in exports.
	IncludeTimestamps bool `toml:"include_timestamps" json:"include_timestamps"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// RenderMarkdown renders assistant replies through glamour.
	RenderMarkdown bool `toml:"render_markdown" json:"render_markdown"`
}

// PollInterval returns the assistant poll interval as a duration.
func (c *AssistantConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// MaxWait returns the assistant wait budget as a duration.
func (c *AssistantConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSecs) * time.Second
}

// SessionTimeout returns the session idle expiry as a duration.
func (c *AuthConfig) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutSecs) * time.Second
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Assistant: AssistantConfig{
			PollIntervalSecs: 1,
			MaxWaitSecs:      120,
		},

		Store: StoreConfig{
			Backend: "json",
		},

		Server: ServerConfig{
			Port: 8790,
		},

		Auth: AuthConfig{
			SessionTimeoutSecs: 1800, // 30 minutes
		},

		Export: ExportConfig{
			OutputDir:         ".",
			IncludeTimestamps: true,
		},

		UI: UIConfig{
			Theme:          "dark",
			RenderMarkdown: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the shortlister configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".shortlister"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err // File doesn't exist or not accessible
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// A .env file in the working directory is applied first, then the TOML
// config is tried, then JSON, then built-in defaults. Environment
// overrides are applied last.
func Load() (*Config, error) {
	// Missing .env is fine; an existing one feeds the env overrides.
	_ = godotenv.Load()

	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// finishLoad applies env overrides, defaults, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems; warn only.
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. JSON files are detected by extension; anything else is
// parsed as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies SHORTLISTER_* environment variables over
// the loaded configuration. OPENAI_API_KEY is honored as a fallback
// for the assistant key.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SHORTLISTER_API_KEY"); v != "" {
		c.Assistant.APIKey = v
	} else if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Assistant.APIKey == "" {
		c.Assistant.APIKey = v
	}
	if v := os.Getenv("SHORTLISTER_ASSISTANT_ID"); v != "" {
		c.Assistant.AssistantID = v
	}
	if v := os.Getenv("SHORTLISTER_USERNAME"); v != "" {
		c.Auth.Username = v
	}
	if v := os.Getenv("SHORTLISTER_PASSWORD"); v != "" {
		c.Auth.Password = v
	}
	if v := os.Getenv("SHORTLISTER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SHORTLISTER_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("SHORTLISTER_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("SHORTLISTER_EXPORT_DIR"); v != "" {
		c.Export.OutputDir = v
	}
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

// SetDefaults fills in any missing values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Assistant.PollIntervalSecs <= 0 {
		c.Assistant.PollIntervalSecs = defaults.Assistant.PollIntervalSecs
	}
	if c.Assistant.MaxWaitSecs <= 0 {
		c.Assistant.MaxWaitSecs = defaults.Assistant.MaxWaitSecs
	}
	if c.Store.Backend == "" {
		c.Store.Backend = defaults.Store.Backend
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Auth.SessionTimeoutSecs <= 0 {
		c.Auth.SessionTimeoutSecs = defaults.Auth.SessionTimeoutSecs
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = defaults.Export.OutputDir
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	validBackends := map[string]bool{"json": true, "sqlite": true}
	if !validBackends[strings.ToLower(c.Store.Backend)] {
		errs = append(errs, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("must be one of: json, sqlite (got %q)", c.Store.Backend),
		})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be between 1 and 65535 (got %d)", c.Server.Port),
		})
	}

	if c.Assistant.PollIntervalSecs > c.Assistant.MaxWaitSecs {
		errs = append(errs, ValidationError{
			Field:   "assistant.poll_interval_secs",
			Message: "must not exceed assistant.max_wait_secs",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("must be one of: dark, light, auto (got %q)", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Ensure permissions are correct even if the file already existed.
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# shortlister configuration file")
	fmt.Fprintln(file, "# Generated by shortlister - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// DERIVED PATHS
// =============================================================================

// StorePath resolves the conversation store path: the configured one,
// or the default under the config directory for the selected backend.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}

	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	switch strings.ToLower(c.Store.Backend) {
	case "sqlite":
		return filepath.Join(dir, "conversations.db"), nil
	default:
		return filepath.Join(dir, "conversations.json"), nil
	}
}

// ThreadSnapshotPath returns the path of the thread bindings snapshot,
// kept next to the conversation store.
func (c *Config) ThreadSnapshotPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "threads.json"), nil
}
