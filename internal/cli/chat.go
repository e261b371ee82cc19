// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the shortlister CLI.
//
// CLI: Comprehensive help and examples for all commands
// USABILITY: Markdown rendering and history for better CLI experience
//
// Handles the "shortlister chat" command which provides an interactive
// REPL for screening conversations with the hosted assistant.
//
// Command: chat
// Short:   Start an interactive chat session
//
// Examples:
//   shortlister chat                  Resume or start a conversation
//   shortlister chat --folder Hiring  Start in a specific folder
//   shortlister chat --plain          Disable markdown rendering
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new [folder]       Start a new conversation
//   /list, /l           List conversations
//   /select ID, /s ID   Switch to a conversation
//   /rename TITLE       Rename the active conversation
//   /move FOLDER        Move the active conversation to a folder
//   /delete [ID]        Delete a conversation
//   /folders            List folders
//   /delfolder NAME     Delete an empty folder
//   /search QUERY       Search titles and transcripts
//   /export [md|pdf]    Export the active conversation
//   /history            Show the active transcript
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel the in-flight exchange
//   Ctrl+D              Exit chat

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/jeranaias/shortlister/internal/auth"
	"github.com/jeranaias/shortlister/internal/chat"
	"github.com/jeranaias/shortlister/internal/config"
	"github.com/jeranaias/shortlister/internal/export"
	"github.com/jeranaias/shortlister/internal/storage"
)

// maxLoginAttempts bounds interactive login retries before giving up.
const maxLoginAttempts = 3

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the shared glamour renderer for assistant replies.
// USABILITY: Renders markdown responses with syntax highlighting and formatting.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fallback to plain text if renderer initialization fails
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails or renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}

	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
// USABILITY: Supports arrow keys for history navigation and line editing.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		// Fallback to temp directory if config dir unavailable
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "chat_history")

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}

	cli.LoadHistory()

	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
// Supports history navigation with arrow keys.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}

	return input, nil
}

// SaveHistory persists command history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}

	// SECURITY: 0600 - owner read/write only
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()

	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	App   *app
	State *chat.State

	// RenderMarkdown controls glamour rendering of assistant replies.
	RenderMarkdown bool

	// Tracking
	StartTime time.Time
	Sent      int

	// Cancel function for the in-flight exchange
	CancelFunc context.CancelFunc

	// Input history handler
	// USABILITY: Provides readline-like input with history
	InputCLI *ChatCLI
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// runChat handles the "chat" command with full interactive support.
func runChat(parser *ArgParser) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	app, err := buildApp(true)
	if err != nil {
		return err
	}
	defer app.Close()

	// SECURITY: When login credentials are configured, gate the shell
	// behind them. An unconfigured gate means a single-user local setup.
	gate := auth.NewGate(auth.Credentials{
		Username: app.cfg.Auth.Username,
		Password: app.cfg.Auth.Password,
	})
	if gate.Configured() {
		if err := promptLogin(gate); err != nil {
			return err
		}
	}

	session := &ChatSession{
		App:            app,
		State:          &chat.State{},
		RenderMarkdown: app.cfg.UI.RenderMarkdown && !parser.BoolFlag("plain") && IsStdoutTTY(),
		StartTime:      time.Now(),
		InputCLI:       NewChatCLI(),
	}

	// Resume the most recently updated conversation, or start fresh in
	// the requested folder on first message.
	if folder := parser.Flag("folder"); folder != "" {
		conv, err := app.manager.CreateConversation(context.Background(), session.State, folder)
		if err != nil {
			return WrapError(err, "create conversation")
		}
		fmt.Printf("%s Started %s in %s\n",
			SuccessStyle.Render("[OK]"), shortID(conv.ID), conv.Folder)
	} else if metas := app.manager.List(); len(metas) > 0 {
		session.State.ActiveID = metas[0].ID
		fmt.Printf("%s Resumed %q (%s)\n",
			InfoStyle.Render("[INFO]"), metas[0].Title, shortID(metas[0].ID))
	}

	printWelcome(session)

	// Ensure input history is saved on exit
	// USABILITY: Save history for future sessions
	defer session.InputCLI.Close()

	// Set up signal handling for graceful Ctrl+C
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			// First Ctrl+C cancels the in-flight exchange
			if session.CancelFunc != nil {
				session.CancelFunc()
				session.CancelFunc = nil
				fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	// Main REPL loop using liner for input history
	// USABILITY: Provides readline-like line editing and history navigation
	for {
		input, err := session.InputCLI.ReadInput(PromptStyle.Render(promptFor(session)))
		if err != nil {
			// liner.ErrPromptAborted is Ctrl+C, anything else is EOF
			// (Ctrl+D) - both exit gracefully.
			fmt.Println()
			printExitSummary(session)
			return nil
		}

		input = strings.TrimSpace(input)

		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldContinue, err := handleSlashCommand(input, session)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !shouldContinue {
				printExitSummary(session)
				return nil
			}
			continue
		}

		// Handle exit/quit without slash
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			printExitSummary(session)
			return nil
		}

		if err := processMessage(session, input); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
		}
	}
}

// promptFor builds the REPL prompt, including the active conversation.
func promptFor(session *ChatSession) string {
	if session.State.ActiveID == "" {
		return "shortlister> "
	}
	if conv, err := session.App.manager.Get(session.State.ActiveID); err == nil {
		return fmt.Sprintf("[%s]> ", conv.Title)
	}
	return "shortlister> "
}

// =============================================================================
// LOGIN
// =============================================================================

// promptLogin asks for credentials on the terminal and checks them
// against the gate. The password is read without echo.
func promptLogin(gate *auth.Gate) error {
	fmt.Println(TitleStyle.Render("Login required"))

	for attempt := 1; attempt <= maxLoginAttempts; attempt++ {
		fmt.Print("Username: ")
		var username string
		if _, err := fmt.Scanln(&username); err != nil {
			return WrapError(err, "read username")
		}

		fmt.Print("Password: ")
		// SECURITY: read without terminal echo
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return WrapError(err, "read password")
		}

		if err := gate.Check(username, string(raw)); err != nil {
			if attempt == maxLoginAttempts {
				return err
			}
			fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			continue
		}
		return nil
	}
	return auth.ErrInvalidCredentials
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage forwards input to the assistant and displays the reply.
func processMessage(session *ChatSession, input string) error {
	manager := session.App.manager

	// First message without an active conversation starts one.
	if session.State.ActiveID == "" {
		conv, err := manager.CreateConversation(context.Background(), session.State, "")
		if err != nil {
			return WrapError(err, "create conversation")
		}
		fmt.Printf("%s Started %s\n", InfoStyle.Render("[INFO]"), shortID(conv.ID))
	}

	ctx, cancel := context.WithCancel(context.Background())
	session.CancelFunc = cancel
	defer func() {
		session.CancelFunc = nil
		cancel()
	}()

	stopSpinner := startSpinner("Waiting for assistant")
	reply, err := manager.Send(ctx, session.State.ActiveID, input)
	stopSpinner()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// The user message stays in the transcript; the next send
			// continues the same thread.
			return nil
		}
		return err
	}

	session.Sent++

	fmt.Println()
	fmt.Println(AssistantStyle.Render("[Assistant]"))
	if session.RenderMarkdown {
		fmt.Print(renderMarkdown(reply))
	} else {
		fmt.Println(WrapText(reply, GetTerminalWidth()))
	}
	fmt.Println()

	return nil
}

// =============================================================================
// SPINNER
// =============================================================================

var spinnerFrames = []string{"|", "/", "-", "\\"}

// startSpinner renders a lightweight progress indicator on stderr while
// a blocking exchange is in flight. The returned function stops it and
// clears the line. Nothing is drawn when stderr is not a terminal.
func startSpinner(label string) func() {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return func() {}
	}

	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		frame := 0
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(label)+4))
				return
			case <-ticker.C:
				fmt.Fprintf(os.Stderr, "\r%s %s ", DimStyle.Render(label), spinnerFrames[frame%len(spinnerFrames)])
				frame++
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}

// =============================================================================
// WELCOME AND EXIT
// =============================================================================

func printWelcome(session *ChatSession) {
	fmt.Println()
	fmt.Println(TitleStyle.Render("shortlister chat"))
	fmt.Println(DimStyle.Render("Type a message to screen candidates, /help for commands, /quit to exit."))
	fmt.Println()
}

func printExitSummary(session *ChatSession) {
	fmt.Println()
	fmt.Println(RenderSeparator(40))
	fmt.Printf("%s %s\n", RenderLabel("Session"), formatDuration(time.Since(session.StartTime)))
	fmt.Printf("%s %d\n", RenderLabel("Exchanges"), session.Sent)
	fmt.Println(RenderSeparator(40))
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// splitSlashCommand splits "/rename New title" into ("rename", "New title").
func splitSlashCommand(input string) (name, arg string) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(input), "/")
	parts := strings.SplitN(trimmed, " ", 2)
	name = strings.ToLower(parts[0])
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}
	return name, arg
}

// handleSlashCommand dispatches an interactive command. Returns false
// when the REPL should exit.
func handleSlashCommand(input string, session *ChatSession) (bool, error) {
	name, arg := splitSlashCommand(input)
	manager := session.App.manager

	switch name {
	case "help", "h":
		printChatHelp()
		return true, nil

	case "quit", "q", "exit":
		return false, nil

	case "new":
		conv, err := manager.CreateConversation(context.Background(), session.State, arg)
		if err != nil {
			return true, err
		}
		fmt.Printf("%s Started %s in %s\n",
			SuccessStyle.Render("[OK]"), shortID(conv.ID), conv.Folder)
		return true, nil

	case "list", "l":
		printConversationList(manager.List())
		return true, nil

	case "select", "s":
		if arg == "" {
			return true, ErrMissingArgument("id", "/select 3f2a91c0")
		}
		id, err := resolveConversationID(manager, arg)
		if err != nil {
			return true, err
		}
		if err := manager.Select(session.State, id); err != nil {
			return true, err
		}
		conv, _ := manager.Get(id)
		fmt.Printf("%s Switched to %q\n", SuccessStyle.Render("[OK]"), conv.Title)
		return true, nil

	case "rename":
		if arg == "" {
			return true, ErrMissingArgument("title", "/rename Backend screening")
		}
		if session.State.ActiveID == "" {
			return true, storage.ErrConversationNotFound
		}
		if err := manager.Rename(session.State.ActiveID, arg); err != nil {
			return true, err
		}
		fmt.Printf("%s Renamed to %q\n", SuccessStyle.Render("[OK]"), arg)
		return true, nil

	case "move":
		if arg == "" {
			return true, ErrMissingArgument("folder", "/move Hiring")
		}
		if session.State.ActiveID == "" {
			return true, storage.ErrConversationNotFound
		}
		if err := manager.Move(session.State.ActiveID, arg); err != nil {
			return true, err
		}
		fmt.Printf("%s Moved to %s\n", SuccessStyle.Render("[OK]"), arg)
		return true, nil

	case "delete":
		target := arg
		if target == "" {
			target = session.State.ActiveID
		}
		if target == "" {
			return true, ErrMissingArgument("id", "/delete 3f2a91c0")
		}
		id, err := resolveConversationID(manager, target)
		if err != nil {
			return true, err
		}
		if err := manager.Delete(session.State, id); err != nil {
			return true, err
		}
		fmt.Printf("%s Deleted %s\n", SuccessStyle.Render("[OK]"), shortID(id))
		return true, nil

	case "folders":
		folders := manager.ListFolders()
		if len(folders) == 0 {
			fmt.Println(DimStyle.Render("No folders."))
			return true, nil
		}
		for _, folder := range folders {
			fmt.Printf("  %s (%d)\n", folder, len(manager.InFolder(folder)))
		}
		return true, nil

	case "delfolder":
		if arg == "" {
			return true, ErrMissingArgument("folder", "/delfolder Archive")
		}
		if err := manager.DeleteFolder(arg); err != nil {
			return true, err
		}
		fmt.Printf("%s Deleted folder %s\n", SuccessStyle.Render("[OK]"), arg)
		return true, nil

	case "search":
		if arg == "" {
			return true, ErrMissingArgument("query", "/search golang")
		}
		printConversationList(manager.Search(arg))
		return true, nil

	case "export":
		return true, exportActive(session, arg)

	case "history":
		return true, printHistory(session)

	default:
		return true, fmt.Errorf("unknown command: /%s (try /help)", name)
	}
}

func printChatHelp() {
	rows := [][2]string{
		{"/help, /h", "Show this help"},
		{"/new [folder]", "Start a new conversation"},
		{"/list, /l", "List conversations"},
		{"/select ID", "Switch to a conversation (ID prefix is enough)"},
		{"/rename TITLE", "Rename the active conversation"},
		{"/move FOLDER", "Move the active conversation"},
		{"/delete [ID]", "Delete a conversation (default: active)"},
		{"/folders", "List folders with counts"},
		{"/delfolder NAME", "Delete an empty folder"},
		{"/search QUERY", "Search titles and transcripts"},
		{"/export [md|pdf]", "Export the active conversation"},
		{"/history", "Show the active transcript"},
		{"/quit, /q", "Exit"},
	}

	fmt.Println()
	for _, row := range rows {
		fmt.Printf("  %s %s\n", RenderLabel(row[0], 20), row[1])
	}
	fmt.Println()
}

// printConversationList renders conversation summaries as a table.
func printConversationList(metas []chat.Meta) {
	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("No conversations."))
		return
	}

	for _, meta := range metas {
		line := fmt.Sprintf("  %s  %-30s  %-15s  %d msgs",
			DimStyle.Render(shortID(meta.ID)), meta.Title, meta.Folder, meta.MessageCount)
		fmt.Println(line)
		if meta.Preview != "" {
			fmt.Printf("            %s\n", DimStyle.Render(meta.Preview))
		}
	}
}

// printHistory shows the active conversation transcript.
func printHistory(session *ChatSession) error {
	if session.State.ActiveID == "" {
		return storage.ErrConversationNotFound
	}
	conv, err := session.App.manager.Get(session.State.ActiveID)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(TitleStyle.Render(conv.Title))
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

// exportActive exports the active conversation in the given format.
func exportActive(session *ChatSession, format string) error {
	if session.State.ActiveID == "" {
		return storage.ErrConversationNotFound
	}
	if format == "" {
		format = "md"
	}

	conv, err := session.App.manager.Get(session.State.ActiveID)
	if err != nil {
		return err
	}

	opts := exportOptions(session.App.cfg, "")
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return err
	}

	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		return err
	}
	fmt.Printf("%s Exported to %s\n", SuccessStyle.Render("[OK]"), path)
	return nil
}

// resolveConversationID accepts a full ID or unique prefix.
func resolveConversationID(manager *chat.Manager, idOrPrefix string) (string, error) {
	if _, err := manager.Get(idOrPrefix); err == nil {
		return idOrPrefix, nil
	}

	var matches []string
	for _, meta := range manager.List() {
		if strings.HasPrefix(meta.ID, idOrPrefix) {
			matches = append(matches, meta.ID)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", storage.ErrConversationNotFound
	default:
		return "", fmt.Errorf("ambiguous ID prefix %q matches %d conversations", idOrPrefix, len(matches))
	}
}
