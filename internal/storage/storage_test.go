// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// FILE STORE TESTS
// =============================================================================

func TestFileStore_LoadMissingFile(t *testing.T) {
	store, err := NewFileStoreWithPath(filepath.Join(t.TempDir(), "conversations.json"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	conversations, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(conversations) != 0 {
		t.Errorf("Expected empty mapping, got %d entries", len(conversations))
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	store, err := NewFileStoreWithPath(filepath.Join(t.TempDir(), "conversations.json"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	conv := NewConversation("Hiring")
	conv.Append(RoleUser, "Hello")
	conv.Append(RoleAssistant, "Hi there")

	if err := store.Save(map[string]*Conversation{conv.ID: conv}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("Loaded %d conversations, want 1", len(loaded))
	}

	got := loaded[conv.ID]
	if got == nil {
		t.Fatal("Conversation missing after round trip")
	}
	if got.Folder != "Hiring" {
		t.Errorf("Folder = %q, want %q", got.Folder, "Hiring")
	}
	if len(got.Messages) != 2 {
		t.Fatalf("Messages count = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != RoleUser || got.Messages[0].Content != "Hello" {
		t.Errorf("First message = %+v, want user/Hello", got.Messages[0])
	}
	if got.Messages[1].Role != RoleAssistant || got.Messages[1].Content != "Hi there" {
		t.Errorf("Second message = %+v, want assistant/Hi there", got.Messages[1])
	}
}

func TestFileStore_RoundTripPreservesMessageOrder(t *testing.T) {
	store, err := NewFileStoreWithPath(filepath.Join(t.TempDir(), "conversations.json"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	conv := NewConversation("")
	contents := []string{"one", "two", "three", "four", "five"}
	for i, c := range contents {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		conv.Append(role, c)
	}

	if err := store.Save(map[string]*Conversation{conv.ID: conv}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := loaded[conv.ID]
	for i, c := range contents {
		if got.Messages[i].Content != c {
			t.Errorf("Message %d = %q, want %q", i, got.Messages[i].Content, c)
		}
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	store, err := NewFileStoreWithPath(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	_, err = store.Load()
	if !errors.Is(err, ErrCorruptStore) {
		t.Errorf("Expected ErrCorruptStore, got %v", err)
	}
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	store, err := NewFileStoreWithPath(filepath.Join(t.TempDir(), "conversations.json"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	first := NewConversation("A")
	if err := store.Save(map[string]*Conversation{first.ID: first}); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	second := NewConversation("B")
	if err := store.Save(map[string]*Conversation{second.ID: second}); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("Loaded %d conversations, want 1", len(loaded))
	}
	if _, ok := loaded[first.ID]; ok {
		t.Error("First conversation should have been replaced by full re-serialization")
	}
}

func TestFileStore_EmptyFolderFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.json")
	data := `{"c1": {"id": "c1", "title": "T", "folder": "", "messages": []}}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	store, _ := NewFileStoreWithPath(path)
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded["c1"].Folder != DefaultFolder {
		t.Errorf("Folder = %q, want %q", loaded["c1"].Folder, DefaultFolder)
	}
}

// =============================================================================
// SQLITE STORE TESTS
// =============================================================================

func TestSQLiteStore_SaveAndLoad(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "conversations.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	conv := NewConversation("Screening")
	conv.Append(RoleUser, "Compare the two frontend candidates")
	conv.Append(RoleAssistant, "Candidate A has deeper React experience")

	if err := store.Save(map[string]*Conversation{conv.ID: conv}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := loaded[conv.ID]
	if got == nil {
		t.Fatal("Conversation missing after round trip")
	}
	if got.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", got.Title, DefaultTitle)
	}
	if len(got.Messages) != 2 {
		t.Errorf("Messages count = %d, want 2", len(got.Messages))
	}
}

func TestSQLiteStore_SaveReplacesMapping(t *testing.T) {
	store, err := OpenSQLiteInMemory()
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	a := NewConversation("A")
	b := NewConversation("B")
	if err := store.Save(map[string]*Conversation{a.ID: a, b.ID: b}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Re-save without b; it must be gone afterwards.
	if err := store.Save(map[string]*Conversation{a.ID: a}); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("Loaded %d conversations, want 1", len(loaded))
	}
	if _, ok := loaded[b.ID]; ok {
		t.Error("Deleted conversation resurrected after re-save")
	}
}

// =============================================================================
// CONVERSATION HELPER TESTS
// =============================================================================

func TestNewConversation_Defaults(t *testing.T) {
	conv := NewConversation("")
	if conv.ID == "" {
		t.Error("Expected non-empty ID")
	}
	if conv.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", conv.Title, DefaultTitle)
	}
	if conv.Folder != DefaultFolder {
		t.Errorf("Folder = %q, want %q", conv.Folder, DefaultFolder)
	}
	if conv.Messages == nil || len(conv.Messages) != 0 {
		t.Error("Expected empty non-nil message list")
	}
}

func TestConversation_Preview(t *testing.T) {
	conv := NewConversation("")
	if conv.Preview() != "" {
		t.Error("Preview of empty conversation should be empty")
	}

	conv.Append(RoleAssistant, "unprompted greeting")
	conv.Append(RoleUser, "What roles\nare open?")
	if got := conv.Preview(); got != "What roles are open?" {
		t.Errorf("Preview = %q, want %q", got, "What roles are open?")
	}
}
