// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command dispatch and shared wiring for the shortlister CLI.
//
// CLI: Comprehensive help and examples for all commands
//
// Commands:
//   serve      Start the HTTP API server
//   chat       Start the interactive chat shell
//   sessions   Manage stored conversations and folders
//   export     Export conversations to Markdown or PDF
//   config     Show or initialize configuration
//   version    Print version information
//   help       Show usage

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/shortlister/internal/assistant"
	"github.com/jeranaias/shortlister/internal/chat"
	"github.com/jeranaias/shortlister/internal/config"
	"github.com/jeranaias/shortlister/internal/export"
	"github.com/jeranaias/shortlister/internal/storage"
	"github.com/jeranaias/shortlister/internal/thread"
)

// Version is the CLI version, kept in lockstep with the server.
const Version = "0.2.0"

// =============================================================================
// DISPATCH
// =============================================================================

// Run parses argv and executes the matching command, returning the
// process exit code. main defers all error display and exit code
// selection to this function.
func Run(argv []string) int {
	if len(argv) == 0 {
		printUsage()
		return ExitUsageError
	}

	command := argv[0]
	parser := NewArgParser(argv[1:])
	jsonMode := parser.BoolFlag("json")

	var err error
	switch command {
	case "serve":
		err = runServe(parser)
	case "chat":
		err = runChat(parser)
	case "sessions":
		err = runSessions(parser)
	case "export":
		err = runExport(parser)
	case "config":
		err = runConfig(parser)
	case "version", "--version", "-v":
		fmt.Printf("shortlister %s\n", Version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "%s unknown command: %s\n\n", ErrorStyle.Render("[ERROR]"), command)
		printUsage()
		return ExitUsageError
	}

	if err != nil {
		DisplayError(err, jsonMode)
		return GetExitCode(err)
	}
	return ExitSuccess
}

func printUsage() {
	fmt.Println(TitleStyle.Render("shortlister - HR screening assistant"))
	fmt.Println("Usage: shortlister <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                     Start the HTTP API server")
	fmt.Println("  chat                      Start the interactive chat shell")
	fmt.Println("  sessions <subcommand>     Manage stored conversations")
	fmt.Println("  export <id> [flags]       Export a conversation or folder")
	fmt.Println("  config <subcommand>       Show or initialize configuration")
	fmt.Println("  version                   Print version information")
	fmt.Println()
	fmt.Println("Session subcommands:")
	fmt.Println("  sessions list [--folder NAME] [--json]")
	fmt.Println("  sessions show <id>")
	fmt.Println("  sessions rename <id> <new title...>")
	fmt.Println("  sessions move <id> <folder>")
	fmt.Println("  sessions delete <id> [--yes]")
	fmt.Println("  sessions folders")
	fmt.Println("  sessions search <query...>")
	fmt.Println()
	fmt.Println("Export flags:")
	fmt.Println("  --format md|pdf           Output format (default: md)")
	fmt.Println("  --folder NAME             Export a whole folder instead of one conversation")
	fmt.Println("  --out DIR                 Output directory (default: from config)")
	fmt.Println()
	fmt.Println("Run with --json for machine-readable output where supported.")
}

// =============================================================================
// SHARED WIRING
// =============================================================================

// app bundles the wired dependency graph behind the CLI commands.
// Close releases the store; it is safe to call once.
type app struct {
	cfg     *config.Config
	store   storage.Store
	manager *chat.Manager
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// buildApp loads configuration and wires the store, thread registry,
// assistant bridge, and manager. When needAssistant is set, missing
// service credentials abort before any state is touched.
func buildApp(needAssistant bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapError(err, "load configuration")
	}
	return buildAppWithConfig(cfg, needAssistant)
}

func buildAppWithConfig(cfg *config.Config, needAssistant bool) (*app, error) {
	if needAssistant {
		if cfg.Assistant.APIKey == "" {
			return nil, NewCommandError("config", "check", "assistant API key is not set (SHORTLISTER_API_KEY or OPENAI_API_KEY)", nil)
		}
		if cfg.Assistant.AssistantID == "" {
			return nil, NewCommandError("config", "check", "assistant ID is not set (SHORTLISTER_ASSISTANT_ID)", nil)
		}
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, WrapError(err, "open conversation store")
	}

	client := assistant.NewOpenAIClient(cfg.Assistant.APIKey, cfg.Assistant.AssistantID)
	bridge := assistant.NewBridge(client, assistant.Config{
		PollInterval: cfg.Assistant.PollInterval(),
		MaxWait:      cfg.Assistant.MaxWait(),
	})

	snapshotPath, err := cfg.ThreadSnapshotPath()
	if err != nil {
		store.Close()
		return nil, WrapError(err, "resolve thread snapshot path")
	}
	registry, err := thread.NewPersistentRegistry(bridge, snapshotPath)
	if err != nil {
		store.Close()
		return nil, WrapError(err, "load thread registry")
	}

	manager, err := chat.NewManager(store, registry, bridge)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: store, manager: manager}, nil
}

// openStore opens the configured persistence backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	path, err := cfg.StorePath()
	if err != nil {
		return nil, err
	}

	switch cfg.Store.Backend {
	case "sqlite":
		return storage.OpenSQLite(path)
	default:
		return storage.NewFileStoreWithPath(path)
	}
}

// exportOptions builds export options from config, honoring an
// explicit --out override.
func exportOptions(cfg *config.Config, outDir string) *export.Options {
	opts := export.DefaultOptions()
	if cfg.Export.OutputDir != "" {
		opts.OutputDir = cfg.Export.OutputDir
	}
	if outDir != "" {
		opts.OutputDir = outDir
	}
	opts.IncludeTimestamps = cfg.Export.IncludeTimestamps
	return opts
}
