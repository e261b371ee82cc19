// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions_cmd.go - Stored conversation management for the shortlister CLI.
//
// CLI: Comprehensive help and examples for all commands
//
// Command: sessions
// Short:   Manage stored conversations and folders
//
// Examples:
//   shortlister sessions list                     List all conversations
//   shortlister sessions list --folder Hiring     List one folder
//   shortlister sessions list --json              Machine-readable output
//   shortlister sessions show 3f2a91c0            Show a transcript
//   shortlister sessions rename 3f2a Backend screening
//   shortlister sessions move 3f2a Hiring
//   shortlister sessions delete 3f2a --yes
//   shortlister sessions folders
//   shortlister sessions search golang backend
//
// These commands operate on the local store only and never contact the
// assistant service, so they work without API credentials.

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/shortlister/internal/chat"
	"github.com/jeranaias/shortlister/internal/storage"
)

// runSessions dispatches the sessions subcommands.
func runSessions(parser *ArgParser) error {
	app, err := buildApp(false)
	if err != nil {
		return err
	}
	defer app.Close()

	switch parser.Subcommand() {
	case "list", "":
		return sessionsList(app, parser)
	case "show":
		return sessionsShow(app, parser)
	case "rename":
		return sessionsRename(app, parser)
	case "move":
		return sessionsMove(app, parser)
	case "delete":
		return sessionsDelete(app, parser)
	case "folders":
		return sessionsFolders(app, parser)
	case "search":
		return sessionsSearch(app, parser)
	default:
		return ErrInvalidFormat("subcommand", parser.Subcommand(),
			"sessions <list|show|rename|move|delete|folders|search>")
	}
}

// sessionsList prints conversation summaries, optionally scoped to a folder.
func sessionsList(app *app, parser *ArgParser) error {
	var metas []chat.Meta
	if folder := parser.Flag("folder"); folder != "" {
		for _, conv := range app.manager.InFolder(folder) {
			metas = append(metas, chat.Meta{
				ID:           conv.ID,
				Title:        conv.Title,
				Folder:       conv.Folder,
				MessageCount: conv.MessageCount(),
				Preview:      conv.Preview(),
			})
		}
	} else {
		metas = app.manager.List()
	}

	if parser.BoolFlag("json") {
		return outputJSON(metas)
	}

	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("No conversations."))
		return nil
	}

	fmt.Println(TitleStyle.Render("Conversations"))
	printConversationList(metas)
	return nil
}

// sessionsShow prints one full transcript.
func sessionsShow(app *app, parser *ArgParser) error {
	id := parser.Positional(1)
	if id == "" {
		return ErrMissingArgument("id", "sessions show 3f2a91c0")
	}

	resolved, err := resolveConversationID(app.manager, id)
	if err != nil {
		return err
	}
	conv, err := app.manager.Get(resolved)
	if err != nil {
		return err
	}

	if parser.BoolFlag("json") {
		return outputJSON(conv)
	}

	fmt.Println(TitleStyle.Render(conv.Title))
	fmt.Printf("%s %s\n", RenderLabel("ID"), conv.ID)
	fmt.Printf("%s %s\n", RenderLabel("Folder"), conv.Folder)
	fmt.Printf("%s %s\n", RenderLabel("Updated"), formatAge(conv.UpdatedAt))
	fmt.Printf("%s %d\n", RenderLabel("Messages"), conv.MessageCount())
	fmt.Println()

	for _, msg := range conv.Messages {
		label := UserStyle.Render("[User]")
		if msg.Role == storage.RoleAssistant {
			label = AssistantStyle.Render("[Assistant]")
		}
		fmt.Printf("%s %s\n", label, DimStyle.Render(msg.Timestamp.Format("2006-01-02 15:04")))
		fmt.Println(WrapText(msg.Content, GetTerminalWidth()))
		fmt.Println()
	}
	return nil
}

// sessionsRename retitles a conversation. Remaining positional args
// form the new title so quoting is optional.
func sessionsRename(app *app, parser *ArgParser) error {
	id := parser.Positional(1)
	title := JoinPositionalArgs(parser, 2)
	if id == "" || title == "" {
		return ErrMissingArgument("id and title", "sessions rename 3f2a Backend screening")
	}

	resolved, err := resolveConversationID(app.manager, id)
	if err != nil {
		return err
	}
	if err := app.manager.Rename(resolved, title); err != nil {
		return err
	}

	fmt.Printf("%s Renamed %s to %q\n", SuccessStyle.Render("[OK]"), shortID(resolved), title)
	return nil
}

// sessionsMove refiles a conversation into a folder.
func sessionsMove(app *app, parser *ArgParser) error {
	id := parser.Positional(1)
	folder := parser.Positional(2)
	if id == "" || folder == "" {
		return ErrMissingArgument("id and folder", "sessions move 3f2a Hiring")
	}

	resolved, err := resolveConversationID(app.manager, id)
	if err != nil {
		return err
	}
	if err := app.manager.Move(resolved, folder); err != nil {
		return err
	}

	fmt.Printf("%s Moved %s to %s\n", SuccessStyle.Render("[OK]"), shortID(resolved), folder)
	return nil
}

// sessionsDelete removes a conversation. Requires --yes to skip the
// confirmation prompt in scripts.
func sessionsDelete(app *app, parser *ArgParser) error {
	id := parser.Positional(1)
	if id == "" {
		return ErrMissingArgument("id", "sessions delete 3f2a --yes")
	}

	resolved, err := resolveConversationID(app.manager, id)
	if err != nil {
		return err
	}
	conv, err := app.manager.Get(resolved)
	if err != nil {
		return err
	}

	if !parser.BoolFlag("yes") && !parser.BoolFlag("y") {
		if err := RequiresTTY("confirm deletion"); err != nil {
			return WrapError(err, "pass --yes to delete without confirmation")
		}
		fmt.Printf("Delete %q (%s)? [y/N] ", conv.Title, shortID(resolved))
		var answer string
		fmt.Scanln(&answer)
		if ok, err := ParseBoolString(answer); err != nil || !ok {
			fmt.Println(DimStyle.Render("Aborted."))
			return nil
		}
	}

	if err := app.manager.Delete(nil, resolved); err != nil {
		return err
	}
	fmt.Printf("%s Deleted %s\n", SuccessStyle.Render("[OK]"), shortID(resolved))
	return nil
}

// sessionsFolders lists folders with conversation counts.
func sessionsFolders(app *app, parser *ArgParser) error {
	folders := app.manager.ListFolders()

	if parser.BoolFlag("json") {
		type folderInfo struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		}
		infos := make([]folderInfo, 0, len(folders))
		for _, folder := range folders {
			infos = append(infos, folderInfo{Name: folder, Count: len(app.manager.InFolder(folder))})
		}
		return outputJSON(infos)
	}

	if len(folders) == 0 {
		fmt.Println(DimStyle.Render("No folders."))
		return nil
	}

	fmt.Println(TitleStyle.Render("Folders"))
	for _, folder := range folders {
		fmt.Printf("  %-25s %d\n", folder, len(app.manager.InFolder(folder)))
	}
	return nil
}

// sessionsSearch finds conversations matching a case-insensitive query.
func sessionsSearch(app *app, parser *ArgParser) error {
	query := strings.TrimSpace(JoinPositionalArgs(parser, 1))
	if query == "" {
		return ErrMissingArgument("query", "sessions search golang backend")
	}

	metas := app.manager.Search(query)
	if parser.BoolFlag("json") {
		return outputJSON(metas)
	}

	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("No matches."))
		return nil
	}

	fmt.Printf("%s\n", TitleStyle.Render(fmt.Sprintf("Matches for %q", query)))
	printConversationList(metas)
	return nil
}
