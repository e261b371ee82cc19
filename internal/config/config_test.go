// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Store.Backend != "json" {
		t.Errorf("Store.Backend = %q, want json", cfg.Store.Backend)
	}
	if cfg.Assistant.PollIntervalSecs != 1 {
		t.Errorf("PollIntervalSecs = %d, want 1", cfg.Assistant.PollIntervalSecs)
	}
	if cfg.Auth.SessionTimeoutSecs != 1800 {
		t.Errorf("SessionTimeoutSecs = %d, want 1800", cfg.Auth.SessionTimeoutSecs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config fails validation: %v", err)
	}
}

func TestLoadFromPath_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = "1.0.0"

[assistant]
assistant_id = "asst_123"
poll_interval_secs = 2
max_wait_secs = 60

[store]
backend = "sqlite"

[server]
port = 9000
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Assistant.AssistantID != "asst_123" {
		t.Errorf("AssistantID = %q", cfg.Assistant.AssistantID)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Backend = %q, want sqlite", cfg.Store.Backend)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}

	// Unset fields fall back to defaults.
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q, want default dark", cfg.UI.Theme)
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"server": {"port": 9100}, "ui": {"theme": "light"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q, want light", cfg.UI.Theme)
	}
}

func TestLoadFromPath_InvalidBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[store]\nbackend = \"redis\"\n"), 0600)

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatal("Expected validation error for unknown backend")
	}
	if !strings.Contains(err.Error(), "store.backend") {
		t.Errorf("Error missing field name: %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SHORTLISTER_API_KEY", "sk-test")
	t.Setenv("SHORTLISTER_ASSISTANT_ID", "asst_env")
	t.Setenv("SHORTLISTER_USERNAME", "hr")
	t.Setenv("SHORTLISTER_PASSWORD", "secret")
	t.Setenv("SHORTLISTER_PORT", "9200")
	t.Setenv("SHORTLISTER_STORE_BACKEND", "sqlite")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Assistant.APIKey != "sk-test" {
		t.Errorf("APIKey = %q", cfg.Assistant.APIKey)
	}
	if cfg.Assistant.AssistantID != "asst_env" {
		t.Errorf("AssistantID = %q", cfg.Assistant.AssistantID)
	}
	if cfg.Auth.Username != "hr" || cfg.Auth.Password != "secret" {
		t.Errorf("Auth = %q/%q", cfg.Auth.Username, cfg.Auth.Password)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Backend = %q", cfg.Store.Backend)
	}
}

func TestApplyEnvOverrides_OpenAIFallback(t *testing.T) {
	t.Setenv("SHORTLISTER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Assistant.APIKey != "sk-openai" {
		t.Errorf("APIKey = %q, want OPENAI_API_KEY fallback", cfg.Assistant.APIKey)
	}
}

func TestSaveTOML_RoundTripAndPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.Port = 9300
	cfg.Assistant.AssistantID = "asst_save"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Permissions = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if loaded.Server.Port != 9300 || loaded.Assistant.AssistantID != "asst_save" {
		t.Errorf("Round trip lost values: %+v", loaded)
	}
}

func TestSaveJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.UI.Theme = "light"
	if err := SaveJSON(cfg, path); err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("Theme = %q, want light", loaded.UI.Theme)
	}
}

func TestLoadJSON_FixesInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{}`), 0644)

	cfg := Default()
	if err := LoadJSON(cfg, path); err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}

	info, _ := os.Stat(path)
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Permissions after load = %o, want 0600", perm)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme"},
		{"poll exceeds wait", func(c *Config) {
			c.Assistant.PollIntervalSecs = 300
			c.Assistant.MaxWaitSecs = 60
		}, "assistant.poll_interval_secs"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Error = %v, want mention of %s", err, tc.wantErr)
			}
		})
	}
}

func TestStorePath(t *testing.T) {
	cfg := Default()
	cfg.Store.Path = "/tmp/custom.json"
	path, err := cfg.StorePath()
	if err != nil {
		t.Fatalf("StorePath failed: %v", err)
	}
	if path != "/tmp/custom.json" {
		t.Errorf("StorePath = %q, want configured path", path)
	}

	cfg.Store.Path = ""
	cfg.Store.Backend = "sqlite"
	path, err = cfg.StorePath()
	if err != nil {
		t.Fatalf("StorePath failed: %v", err)
	}
	if !strings.HasSuffix(path, "conversations.db") {
		t.Errorf("StorePath = %q, want default sqlite path", path)
	}
}
