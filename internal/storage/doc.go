// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for shortlister.
//
// The store is a durable mapping from conversation ID to conversation
// record (title, folder, ordered message list). Two backends implement
// the same Store interface:
//
//   - FileStore: a single JSON file holding the entire mapping, read
//     whole on load and rewritten whole (atomically) on every save.
//   - SQLiteStore: an embedded SQLite database for larger histories.
//
// Both backends implement full re-serialization on Save: the complete
// mapping replaces whatever was stored before. There is no partial or
// incremental write, no cross-process locking, and no schema migration.
// Single-process, single-writer use is the only supported mode.
//
// A backing file that exists but does not parse fails loudly with
// ErrCorruptStore rather than silently resetting state.
package storage
