// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the conversation and folder operations layer.
//
// The manager owns the in-memory conversation mapping and keeps it
// reconciled with the durable store: every mutating operation re-saves
// the whole store before returning, so the backing file never trails
// the in-memory state. A failed save aborts the operation and leaves
// the previous on-disk state intact.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jeranaias/shortlister/internal/storage"
	"github.com/jeranaias/shortlister/internal/thread"
	"github.com/jeranaias/shortlister/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrFolderNotEmpty rejects deleting a folder that still holds
	// conversations.
	ErrFolderNotEmpty = errors.New("folder still contains conversations")
)

// =============================================================================
// STATE
// =============================================================================

// State is the per-session UI state, owned by the presentation shell
// and passed to the manager by reference. Nothing here is persisted.
type State struct {
	// ActiveID is the currently selected conversation, or empty.
	ActiveID string
}

// =============================================================================
// MANAGER
// =============================================================================

// Responder runs one blocking exchange against the assistant service.
// Satisfied by *assistant.Bridge.
type Responder interface {
	SendAndAwait(ctx context.Context, threadID, userText string) (string, error)
}

// Meta is a conversation summary for list displays.
type Meta struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Folder       string `json:"folder"`
	MessageCount int    `json:"message_count"`
	Preview      string `json:"preview"`
}

// Manager is the operations layer over the conversation store, the
// thread registry, and the assistant bridge.
type Manager struct {
	mu sync.Mutex

	store         storage.Store
	threads       *thread.Registry
	responder     Responder
	conversations map[string]*storage.Conversation
}

// NewManager loads the store and returns a ready manager. A corrupt
// backing file aborts startup here rather than resetting state.
func NewManager(store storage.Store, threads *thread.Registry, responder Responder) (*Manager, error) {
	conversations, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load conversation store: %w", err)
	}

	return &Manager{
		store:         store,
		threads:       threads,
		responder:     responder,
		conversations: conversations,
	}, nil
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// CreateConversation allocates a conversation in the given folder,
// binds a remote thread, persists, and marks it active.
func (m *Manager) CreateConversation(ctx context.Context, state *State, folder string) (*storage.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv := storage.NewConversation(strings.TrimSpace(folder))

	if _, err := m.threads.GetOrCreate(ctx, conv.ID); err != nil {
		return nil, err
	}

	m.conversations[conv.ID] = conv
	if err := m.store.Save(m.conversations); err != nil {
		delete(m.conversations, conv.ID)
		return nil, err
	}

	if state != nil {
		state.ActiveID = conv.ID
	}
	return conv, nil
}

// Select sets the active pointer. No side effects on data.
func (m *Manager) Select(state *State, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[conversationID]; !ok {
		return storage.ErrConversationNotFound
	}
	state.ActiveID = conversationID
	return nil
}

// Get returns the conversation with the given ID.
func (m *Manager) Get(conversationID string) (*storage.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return nil, storage.ErrConversationNotFound
	}
	return conv, nil
}

// Rename overwrites the title. Blank or whitespace-only input is a
// no-op, not an error.
func (m *Manager) Rename(conversationID, newTitle string) error {
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return storage.ErrConversationNotFound
	}

	previous := conv.Title
	conv.Title = newTitle
	if err := m.store.Save(m.conversations); err != nil {
		conv.Title = previous
		return err
	}
	return nil
}

// Move reassigns the conversation to another folder. Blank or
// whitespace-only input is a no-op.
func (m *Manager) Move(conversationID, newFolder string) error {
	newFolder = strings.TrimSpace(newFolder)
	if newFolder == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return storage.ErrConversationNotFound
	}

	previous := conv.Folder
	conv.Folder = newFolder
	if err := m.store.Save(m.conversations); err != nil {
		conv.Folder = previous
		return err
	}
	return nil
}

// Delete removes the conversation and its thread binding. If it was
// the active conversation, the active pointer is cleared.
func (m *Manager) Delete(state *State, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[conversationID]
	if !ok {
		return storage.ErrConversationNotFound
	}

	delete(m.conversations, conversationID)
	if err := m.store.Save(m.conversations); err != nil {
		m.conversations[conversationID] = conv
		return err
	}

	// The remote thread is orphaned on purpose; only the binding goes.
	if err := m.threads.Remove(conversationID); err != nil {
		return err
	}

	if state != nil && state.ActiveID == conversationID {
		state.ActiveID = ""
	}
	return nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// AppendMessage pushes a message onto the transcript and persists.
// The first user message of a conversation whose title is still the
// default becomes the title, truncated to a bounded length. That
// auto-titling fires at most once per conversation.
func (m *Manager) AppendMessage(conversationID, role, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(conversationID, role, text)
}

func (m *Manager) appendLocked(conversationID, role, text string) error {
	conv, ok := m.conversations[conversationID]
	if !ok {
		return storage.ErrConversationNotFound
	}

	conv.Append(role, text)
	if role == storage.RoleUser && conv.Title == storage.DefaultTitle {
		conv.Title = util.TruncateRunes(util.CollapseWhitespace(text), storage.TitleMaxRunes)
	}

	if err := m.store.Save(m.conversations); err != nil {
		conv.Messages = conv.Messages[:len(conv.Messages)-1]
		return err
	}
	return nil
}

// Send runs the full exchange for one user message: append and persist
// the user message, block on the assistant round trip, then append and
// persist the reply.
//
// On a remote failure the already-persisted user message is NOT rolled
// back; the transcript is left in the "message sent, no reply" state
// and the error surfaces to the caller for inline display.
func (m *Manager) Send(ctx context.Context, conversationID, text string) (string, error) {
	if _, err := m.Get(conversationID); err != nil {
		return "", err
	}

	threadID, err := m.threads.GetOrCreate(ctx, conversationID)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	err = m.appendLocked(conversationID, storage.RoleUser, text)
	m.mu.Unlock()
	if err != nil {
		return "", err
	}

	// Blocking network round trip; the manager lock is NOT held here so
	// reads stay possible while the run polls.
	reply, err := m.responder.SendAndAwait(ctx, threadID, text)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	err = m.appendLocked(conversationID, storage.RoleAssistant, reply)
	m.mu.Unlock()
	if err != nil {
		return "", err
	}

	return reply, nil
}

// =============================================================================
// LISTING, FOLDERS, SEARCH
// =============================================================================

// List returns conversation summaries, most recently updated first.
func (m *Manager) List() []Meta {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metasLocked(m.sortedLocked())
}

// InFolder returns the full conversations filed under a folder, in
// stable ID order (the iteration order used by folder export).
func (m *Manager) InFolder(folder string) []*storage.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	var members []*storage.Conversation
	for _, conv := range m.conversations {
		if conv.Folder == folder {
			members = append(members, conv)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].ID < members[j].ID
	})
	return members
}

// ListFolders returns the sorted, de-duplicated projection of the
// folder field across all conversations. Folders are derived, never
// stored: one with zero members does not exist.
func (m *Manager) ListFolders() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[string]bool{}
	for _, conv := range m.conversations {
		seen[conv.Folder] = true
	}

	folders := make([]string, 0, len(seen))
	for folder := range seen {
		folders = append(folders, folder)
	}
	sort.Strings(folders)
	return folders
}

// DeleteFolder is permitted only when no conversation references the
// folder. Since folders are derived there is nothing to remove; an
// empty folder is already gone.
func (m *Manager) DeleteFolder(folder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, conv := range m.conversations {
		if conv.Folder == folder {
			return fmt.Errorf("%w: %s", ErrFolderNotEmpty, folder)
		}
	}
	return nil
}

// Search returns summaries of conversations whose title or message
// content contains the query, case-insensitive. An empty query matches
// everything.
func (m *Manager) Search(query string) []Meta {
	m.mu.Lock()
	defer m.mu.Unlock()

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return m.metasLocked(m.sortedLocked())
	}

	var matched []*storage.Conversation
	for _, conv := range m.sortedLocked() {
		if strings.Contains(strings.ToLower(conv.Title), query) {
			matched = append(matched, conv)
			continue
		}
		for _, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				matched = append(matched, conv)
				break
			}
		}
	}
	return m.metasLocked(matched)
}

// sortedLocked returns conversations most recently updated first.
// Caller must hold mu.
func (m *Manager) sortedLocked() []*storage.Conversation {
	sorted := make([]*storage.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		sorted = append(sorted, conv)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].UpdatedAt.Equal(sorted[j].UpdatedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	return sorted
}

func (m *Manager) metasLocked(conversations []*storage.Conversation) []Meta {
	metas := make([]Meta, 0, len(conversations))
	for _, conv := range conversations {
		metas = append(metas, Meta{
			ID:           conv.ID,
			Title:        conv.Title,
			Folder:       conv.Folder,
			MessageCount: conv.MessageCount(),
			Preview:      conv.Preview(),
		})
	}
	return metas
}
