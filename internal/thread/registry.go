// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package thread tracks the binding between local conversations and
// remote assistant threads.
package thread

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/jeranaias/shortlister/internal/util"
)

// =============================================================================
// THREAD REGISTRY
// =============================================================================

// Creator creates a remote assistant thread and returns its identifier.
// The assistant bridge satisfies this interface.
type Creator interface {
	CreateThread(ctx context.Context) (string, error)
}

// Registry maps conversation IDs to remote thread IDs. Threads are
// created lazily the first time a conversation contacts the assistant.
// Bindings survive restarts when a snapshot path is configured; the
// remote thread itself is never deleted, so removing a binding orphans
// the remote resource.
type Registry struct {
	mu       sync.Mutex
	bindings map[string]string
	creator  Creator

	// snapshotPath persists bindings across restarts. Empty disables
	// persistence and bindings live for the process only.
	snapshotPath string
}

// NewRegistry creates an in-memory registry.
func NewRegistry(creator Creator) *Registry {
	return &Registry{
		bindings: make(map[string]string),
		creator:  creator,
	}
}

// NewPersistentRegistry creates a registry that snapshots its bindings
// to the given path after every change and reloads them at startup.
// A missing snapshot file starts empty; a corrupt one is an error.
func NewPersistentRegistry(creator Creator, snapshotPath string) (*Registry, error) {
	r := &Registry{
		bindings:     make(map[string]string),
		creator:      creator,
		snapshotPath: snapshotPath,
	}

	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read thread snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &r.bindings); err != nil {
		return nil, fmt.Errorf("parse thread snapshot %s: %w", snapshotPath, err)
	}

	return r, nil
}

// GetOrCreate returns the thread bound to the conversation, creating
// one remotely on first use. Idempotent per conversation: repeated
// calls return the same thread ID once bound.
func (r *Registry) GetOrCreate(ctx context.Context, conversationID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if threadID, ok := r.bindings[conversationID]; ok {
		return threadID, nil
	}

	threadID, err := r.creator.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("create assistant thread: %w", err)
	}

	r.bindings[conversationID] = threadID
	if err := r.snapshotLocked(); err != nil {
		// The remote thread exists either way; losing the snapshot only
		// costs an orphaned thread after restart.
		return threadID, err
	}

	return threadID, nil
}

// Lookup returns the bound thread ID without creating one.
func (r *Registry) Lookup(conversationID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	threadID, ok := r.bindings[conversationID]
	return threadID, ok
}

// Remove drops the binding for a deleted conversation. The remote
// thread is not cleaned up.
func (r *Registry) Remove(conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bindings[conversationID]; !ok {
		return nil
	}
	delete(r.bindings, conversationID)
	return r.snapshotLocked()
}

// Bound returns the conversation IDs that currently hold a binding,
// in sorted order.
func (r *Registry) Bound() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.bindings))
	for id := range r.bindings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// snapshotLocked writes the bindings file. Caller must hold mu.
func (r *Registry) snapshotLocked() error {
	if r.snapshotPath == "" {
		return nil
	}

	data, err := json.MarshalIndent(r.bindings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal thread snapshot: %w", err)
	}
	if err := util.AtomicWriteFile(r.snapshotPath, data, 0644); err != nil {
		return fmt.Errorf("write thread snapshot: %w", err)
	}
	return nil
}
