// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/shortlister/internal/util"
)

// =============================================================================
// CONVERSATION TYPES
// =============================================================================

// Message roles. Messages are immutable once appended and their order
// is chronological insertion order.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Defaults applied to new conversations.
const (
	// DefaultTitle is replaced by a prefix of the first user message.
	DefaultTitle = "New Conversation"

	// DefaultFolder holds conversations that were never filed anywhere.
	DefaultFolder = "Uncategorised"

	// TitleMaxRunes bounds the auto-generated title length.
	TitleMaxRunes = 30
)

// Message is a single user or assistant utterance.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is a titled, foldered, ordered list of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Folder    string    `json:"folder"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []Message `json:"messages"`
}

// NewConversation creates an empty conversation in the given folder.
// A blank folder falls back to DefaultFolder.
func NewConversation(folder string) *Conversation {
	if folder == "" {
		folder = DefaultFolder
	}
	now := time.Now()
	return &Conversation{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Folder:    folder,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []Message{},
	}
}

// Append adds a message to the end of the transcript and bumps UpdatedAt.
func (c *Conversation) Append(role, content string) {
	c.Messages = append(c.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	c.UpdatedAt = time.Now()
}

// Preview returns a truncated first user message for list displays.
// Returns empty string if no user messages exist.
func (c *Conversation) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return util.TruncateRunes(util.CollapseWhitespace(msg.Content), 80)
		}
	}
	return ""
}

// MessageCount returns the number of messages in the conversation.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the durable conversation mapping. Load reads the entire
// mapping; Save replaces it wholesale. Implementations do not provide
// locking against other processes.
type Store interface {
	// Load reads the backing medium if present; returns an empty mapping
	// otherwise. Fails with ErrCorruptStore if the medium exists but does
	// not parse as the expected structure.
	Load() (map[string]*Conversation, error)

	// Save serializes the entire mapping, replacing the previous state.
	Save(conversations map[string]*Conversation) error

	// Close releases any resources held by the backend.
	Close() error
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrCorruptStore is returned when the backing file exists but cannot be
// parsed. Use errors.Is(err, ErrCorruptStore) to check for this error.
var ErrCorruptStore = &StoreError{Message: "conversation store is corrupt"}

// ErrConversationNotFound is returned when a conversation doesn't exist.
var ErrConversationNotFound = &StoreError{Message: "conversation not found"}

// StoreError represents a storage-related error.
// It implements the error interface and can be compared using errors.Is.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
