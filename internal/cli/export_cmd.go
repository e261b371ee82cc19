// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - Conversation export command for the shortlister CLI.
//
// CLI: Comprehensive help and examples for all commands
//
// Command: export
// Short:   Export conversations to Markdown or PDF
//
// Examples:
//   shortlister export 3f2a91c0                   Markdown export of one conversation
//   shortlister export 3f2a91c0 --format pdf      PDF export
//   shortlister export --folder Hiring            Aggregate a whole folder
//   shortlister export 3f2a --out ./reports       Choose the output directory
//
// Artifacts are named after the sanitized conversation title (or
// folder name) plus a timestamp, so repeated exports never collide.

package cli

import (
	"fmt"
	"sort"

	"github.com/jeranaias/shortlister/internal/export"
	"github.com/jeranaias/shortlister/internal/storage"
)

// runExport exports one conversation or a whole folder.
func runExport(parser *ArgParser) error {
	app, err := buildApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	format := parser.FlagOrDefault("format", "md")
	opts := exportOptions(app.cfg, parser.Flag("out"))

	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return ErrInvalidFormat("format", format, "--format md|pdf")
	}

	if folder := parser.Flag("folder"); folder != "" {
		return exportFolder(app, folder, exporter, opts, parser.BoolFlag("json"))
	}

	id := parser.Positional(0)
	if id == "" {
		return ErrMissingArgument("id", "export 3f2a91c0 --format pdf")
	}

	resolved, err := resolveConversationID(app.manager, id)
	if err != nil {
		return err
	}
	conv, err := app.manager.Get(resolved)
	if err != nil {
		return err
	}

	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		return NewCommandError("export", "write", "could not write artifact", err)
	}

	if parser.BoolFlag("json") {
		return outputJSON(map[string]string{"path": path})
	}
	fmt.Printf("%s Exported %q to %s\n", SuccessStyle.Render("[OK]"), conv.Title, path)
	return nil
}

// exportFolder aggregates every conversation in a folder into one file.
// Conversations are ID-sorted so repeated exports are stable.
func exportFolder(app *app, folder string, exporter export.Exporter, opts *export.Options, jsonMode bool) error {
	convs := app.manager.InFolder(folder)
	if len(convs) == 0 {
		return storage.ErrConversationNotFound
	}
	sort.Slice(convs, func(i, j int) bool { return convs[i].ID < convs[j].ID })

	path, err := export.ExportFolderToFile(folder, convs, exporter, opts)
	if err != nil {
		return NewCommandError("export", "write", "could not write folder artifact", err)
	}

	if jsonMode {
		return outputJSON(map[string]string{"path": path})
	}
	fmt.Printf("%s Exported folder %s (%d conversations) to %s\n",
		SuccessStyle.Render("[OK]"), folder, len(convs), path)
	return nil
}
