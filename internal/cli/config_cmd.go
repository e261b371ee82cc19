// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration inspection for the shortlister CLI.
//
// CLI: Comprehensive help and examples for all commands
//
// Command: config
// Short:   Show or initialize configuration
//
// Examples:
//   shortlister config show           Print effective settings (secrets redacted)
//   shortlister config path           Print the config file location
//   shortlister config init           Write a default config.toml
//   shortlister config validate       Check the config file for errors

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/shortlister/internal/config"
)

// runConfig dispatches the config subcommands.
func runConfig(parser *ArgParser) error {
	switch parser.Subcommand() {
	case "show", "":
		return configShow(parser)
	case "path":
		return configPath()
	case "init":
		return configInit(parser)
	case "validate":
		return configValidate()
	default:
		return ErrInvalidFormat("subcommand", parser.Subcommand(),
			"config <show|path|init|validate>")
	}
}

// configShow prints the effective configuration with secrets redacted.
func configShow(parser *ArgParser) error {
	cfg, err := config.Load()
	if err != nil {
		return WrapError(err, "load configuration")
	}

	// SECURITY: Never print the API key or password, even partially.
	redacted := *cfg
	redacted.Assistant.APIKey = redactSecret(cfg.Assistant.APIKey)
	redacted.Auth.Password = redactSecret(cfg.Auth.Password)

	if parser.BoolFlag("json") {
		return outputJSON(redacted)
	}

	storePath, _ := cfg.StorePath()

	fmt.Println(TitleStyle.Render("Configuration"))
	fmt.Printf("%s %s\n", RenderLabel("Version"), cfg.Version)
	fmt.Printf("%s %s\n", RenderLabel("API key"), redacted.Assistant.APIKey)
	fmt.Printf("%s %s\n", RenderLabel("Assistant ID"), valueOr(cfg.Assistant.AssistantID, "(not set)"))
	fmt.Printf("%s %s\n", RenderLabel("Poll interval"), cfg.Assistant.PollInterval())
	fmt.Printf("%s %s\n", RenderLabel("Max wait"), cfg.Assistant.MaxWait())
	fmt.Printf("%s %s\n", RenderLabel("Store backend"), cfg.Store.Backend)
	fmt.Printf("%s %s\n", RenderLabel("Store path"), storePath)
	fmt.Printf("%s %d\n", RenderLabel("Server port"), cfg.Server.Port)
	fmt.Printf("%s %s\n", RenderLabel("Login user"), valueOr(cfg.Auth.Username, "(not set)"))
	fmt.Printf("%s %s\n", RenderLabel("Session idle"), cfg.Auth.SessionTimeout())
	fmt.Printf("%s %s\n", RenderLabel("Export dir"), valueOr(cfg.Export.OutputDir, "."))
	fmt.Printf("%s %s\n", RenderLabel("Theme"), cfg.UI.Theme)
	return nil
}

// configPath prints where configuration is read from.
func configPath() error {
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return WrapError(err, "resolve config path")
	}
	jsonPath, _ := config.ConfigPathJSON()

	if _, err := os.Stat(tomlPath); err == nil {
		fmt.Println(tomlPath)
		return nil
	}
	if _, err := os.Stat(jsonPath); err == nil {
		fmt.Println(jsonPath)
		return nil
	}

	fmt.Println(tomlPath)
	fmt.Println(DimStyle.Render("(file does not exist yet; run: shortlister config init)"))
	return nil
}

// configInit writes a default config.toml, refusing to clobber an
// existing file unless --force is passed.
func configInit(parser *ArgParser) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return WrapError(err, "resolve config path")
	}

	if _, err := os.Stat(path); err == nil && !parser.BoolFlag("force") {
		return NewCommandError("config", "init",
			fmt.Sprintf("%s already exists (use --force to overwrite)", path), nil)
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return WrapError(err, "write default config")
	}

	fmt.Printf("%s Wrote %s\n", SuccessStyle.Render("[OK]"), path)
	fmt.Println(DimStyle.Render("Set SHORTLISTER_API_KEY and SHORTLISTER_ASSISTANT_ID in the environment or a .env file."))
	return nil
}

// configValidate loads and validates, reporting all problems at once.
func configValidate() error {
	if _, err := config.Load(); err != nil {
		return err
	}
	fmt.Printf("%s Configuration is valid\n", SuccessStyle.Render("[OK]"))
	return nil
}

func redactSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "********"
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
