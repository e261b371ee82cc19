// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface parsing and execution for
// shortlister.
//
// This package implements all CLI commands, covering the interactive
// chat shell, stored conversation management, export, configuration,
// and the HTTP server entry point.
//
// # Key Types
//
//   - ArgParser: Unified flag/subcommand/positional argument parsing
//   - ChatSession: State for the interactive chat REPL
//   - ChatCLI: Line editing and persistent input history (liner)
//
// # Usage
//
// Dispatch from main:
//
//	os.Exit(cli.Run(os.Args[1:]))
//
// # Commands Overview
//
//   - serve: HTTP API server with login gate and per-IP rate limiting
//   - chat: interactive REPL against the hosted assistant
//   - sessions: list/show/rename/move/delete/folders/search
//   - export: Markdown and PDF artifacts for conversations and folders
//   - config: show/path/init/validate
//
// Listing and search commands support a --json flag for scripting.
package cli
