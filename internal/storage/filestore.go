// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/shortlister/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore persists the conversation mapping in a single JSON file.
// The file is read whole on Load and rewritten whole on every Save.
type FileStore struct {
	// Path is the location of the backing JSON file.
	// Default: ~/.shortlister/conversations.json
	Path string
}

// NewFileStore creates a store backed by the default file location.
func NewFileStore() (*FileStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewFileStoreWithPath(filepath.Join(homeDir, ".shortlister", "conversations.json"))
}

// NewFileStoreWithPath creates a store backed by a custom file path.
func NewFileStoreWithPath(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &FileStore{Path: path}, nil
}

// Load reads the backing file. A missing file yields an empty mapping;
// an unparseable file fails with ErrCorruptStore.
func (s *FileStore) Load() (map[string]*Conversation, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*Conversation{}, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}

	var conversations map[string]*Conversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.Path, err)
	}
	if conversations == nil {
		conversations = map[string]*Conversation{}
	}

	// Folder must never be empty after a load
	for _, conv := range conversations {
		if conv.Folder == "" {
			conv.Folder = DefaultFolder
		}
	}

	return conversations, nil
}

// Save serializes the entire mapping and replaces the backing file.
// RELIABILITY: write-temp-then-rename keeps the previous state intact
// if the process dies mid-write.
func (s *FileStore) Save(conversations map[string]*Conversation) error {
	data, err := json.MarshalIndent(conversations, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	if err := util.AtomicWriteFile(s.Path, data, 0644); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}

	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}

// Verify FileStore implements Store
var _ Store = (*FileStore)(nil)
