// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jeranaias/shortlister/internal/assistant"
	"github.com/jeranaias/shortlister/internal/auth"
	"github.com/jeranaias/shortlister/internal/storage"
)

// =============================================================================
// ARG PARSER
// =============================================================================

func TestArgParser_Subcommand(t *testing.T) {
	parser := NewArgParser([]string{"list", "--folder", "Hiring"})
	if got := parser.Subcommand(); got != "list" {
		t.Errorf("Subcommand() = %q, want list", got)
	}
}

func TestArgParser_FlagFormats(t *testing.T) {
	parser := NewArgParser([]string{"list", "--folder", "Hiring", "--format=pdf", "-o", "out", "--json"})

	if got := parser.Flag("folder"); got != "Hiring" {
		t.Errorf("Flag(folder) = %q", got)
	}
	if got := parser.Flag("format"); got != "pdf" {
		t.Errorf("Flag(format) = %q", got)
	}
	if got := parser.Flag("o"); got != "out" {
		t.Errorf("Flag(o) = %q", got)
	}
	if !parser.BoolFlag("json") {
		t.Error("BoolFlag(json) = false, want true")
	}
	if parser.BoolFlag("verbose") {
		t.Error("BoolFlag(verbose) = true for absent flag")
	}
}

func TestArgParser_ExplicitBoolValues(t *testing.T) {
	parser := NewArgParser([]string{"--json=false", "--quiet=true"})

	if parser.BoolFlag("json") {
		t.Error("--json=false parsed as true")
	}
	if !parser.BoolFlag("quiet") {
		t.Error("--quiet=true parsed as false")
	}
}

func TestArgParser_Positionals(t *testing.T) {
	parser := NewArgParser([]string{"rename", "3f2a", "Backend", "screening"})

	if got := parser.Positional(1); got != "3f2a" {
		t.Errorf("Positional(1) = %q", got)
	}
	if got := JoinPositionalArgs(parser, 2); got != "Backend screening" {
		t.Errorf("JoinPositionalArgs(2) = %q", got)
	}
	if got := parser.Positional(9); got != "" {
		t.Errorf("Positional(9) = %q, want empty", got)
	}
	if got := parser.PositionalCount(); got != 4 {
		t.Errorf("PositionalCount() = %d, want 4", got)
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	parser := NewArgParser([]string{"--port", "9000", "--bad", "abc"})

	if got := parser.FlagIntOrDefault("port", 8790); got != 9000 {
		t.Errorf("FlagIntOrDefault(port) = %d", got)
	}
	if got := parser.FlagIntOrDefault("bad", 42); got != 42 {
		t.Errorf("FlagIntOrDefault(bad) = %d, want default 42", got)
	}
	if got := parser.FlagIntOrDefault("missing", 7); got != 7 {
		t.Errorf("FlagIntOrDefault(missing) = %d, want default 7", got)
	}
}

func TestArgParser_HasFlag(t *testing.T) {
	parser := NewArgParser([]string{"--folder", "Hiring", "--json"})

	if !parser.HasFlag("folder") || !parser.HasFlag("json") {
		t.Error("HasFlag missed present flags")
	}
	if parser.HasFlag("format") {
		t.Error("HasFlag reported absent flag")
	}
}

func TestParseBoolString(t *testing.T) {
	truthy := []string{"true", "YES", "y", "1", "On"}
	for _, s := range truthy {
		if got, err := ParseBoolString(s); err != nil || !got {
			t.Errorf("ParseBoolString(%q) = %v, %v", s, got, err)
		}
	}

	falsy := []string{"false", "no", "N", "0", "off"}
	for _, s := range falsy {
		if got, err := ParseBoolString(s); err != nil || got {
			t.Errorf("ParseBoolString(%q) = %v, %v", s, got, err)
		}
	}

	if _, err := ParseBoolString("maybe"); err == nil {
		t.Error("ParseBoolString(maybe) succeeded")
	}
}

// =============================================================================
// SLASH COMMAND PARSING
// =============================================================================

func TestSplitSlashCommand(t *testing.T) {
	cases := []struct {
		input    string
		wantName string
		wantArg  string
	}{
		{"/help", "help", ""},
		{"/new Hiring", "new", "Hiring"},
		{"/rename Backend screening", "rename", "Backend screening"},
		{"/SELECT 3f2a", "select", "3f2a"},
		{"  /quit  ", "quit", ""},
	}

	for _, tc := range cases {
		name, arg := splitSlashCommand(tc.input)
		if name != tc.wantName || arg != tc.wantArg {
			t.Errorf("splitSlashCommand(%q) = (%q, %q), want (%q, %q)",
				tc.input, name, arg, tc.wantName, tc.wantArg)
		}
	}
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestGetExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"generic", errors.New("boom"), ExitGeneralError},
		{"validation", ErrMissingArgument("id", "sessions show ID"), ExitUsageError},
		{"not found", storage.ErrConversationNotFound, ExitNotFoundError},
		{"wrapped not found", fmt.Errorf("lookup: %w", storage.ErrConversationNotFound), ExitNotFoundError},
		{"bad login", auth.ErrInvalidCredentials, ExitAuthError},
		{"timeout", assistant.ErrRunTimeout, ExitTimeoutError},
		{"run failed", assistant.ErrRunFailed, ExitAssistantError},
		{"no reply", assistant.ErrNoReply, ExitAssistantError},
		{"corrupt store", storage.ErrCorruptStore, ExitConfigError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GetExitCode(tc.err); got != tc.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestCommandError_Unwrap(t *testing.T) {
	inner := storage.ErrConversationNotFound
	err := NewCommandError("sessions", "show", "lookup failed", inner)

	if !errors.Is(err, storage.ErrConversationNotFound) {
		t.Error("CommandError does not unwrap to its cause")
	}
	if GetExitCode(err) != ExitNotFoundError {
		t.Error("wrapped domain error lost its exit code")
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{48 * time.Hour, "2d"},
	}

	for _, tc := range cases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestFormatAge_Zero(t *testing.T) {
	if got := formatAge(time.Time{}); got != "never" {
		t.Errorf("formatAge(zero) = %q, want never", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("3f2a91c0-aaaa-bbbb"); got != "3f2a91c0" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID(short input) = %q", got)
	}
}

func TestWrapText(t *testing.T) {
	wrapped := WrapText("one two three four five six seven eight nine ten", 22)
	for i, line := range splitLines(wrapped) {
		if len(line) > 20 {
			t.Errorf("line %d exceeds width: %q", i, line)
		}
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}

// =============================================================================
// DISPATCH
// =============================================================================

func TestRun_UnknownCommand(t *testing.T) {
	if got := Run([]string{"frobnicate"}); got != ExitUsageError {
		t.Errorf("Run(unknown) = %d, want %d", got, ExitUsageError)
	}
}

func TestRun_NoArgs(t *testing.T) {
	if got := Run(nil); got != ExitUsageError {
		t.Errorf("Run(nil) = %d, want %d", got, ExitUsageError)
	}
}

func TestRun_Version(t *testing.T) {
	if got := Run([]string{"version"}); got != ExitSuccess {
		t.Errorf("Run(version) = %d, want %d", got, ExitSuccess)
	}
}

func TestRun_Help(t *testing.T) {
	if got := Run([]string{"help"}); got != ExitSuccess {
		t.Errorf("Run(help) = %d, want %d", got, ExitSuccess)
	}
}
