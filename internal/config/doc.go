// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading for shortlister.
//
// Supports both TOML and JSON configuration formats, with built-in
// defaults, .env file support, environment variable overrides, and
// validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - AssistantConfig: Hosted assistant service settings
//   - StoreConfig: Conversation store backend selection
//   - AuthConfig: Login gate and session settings
//   - Watcher: Reloads the config when the file changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (SHORTLISTER_*; a .env file feeds these)
//   - ~/.shortlister/config.toml
//   - ~/.shortlister/config.json
//   - Built-in defaults
//
// Secrets (API key, login credentials) are normally supplied through
// the environment so they never land in a config file. Config files
// are kept at 0600 permissions regardless.
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	port := cfg.Server.Port
//	timeout := cfg.Auth.SessionTimeout()
package config
