// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore persists the conversation mapping in an embedded SQLite
// database. Each conversation is stored as one JSON document row, so
// the backend keeps the same whole-mapping Load/Save contract as the
// file store while scaling better for large histories.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates a SQLite-backed store at the given path.
// Parent directories are created if needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

// OpenSQLiteInMemory creates an in-memory store (useful for testing).
func OpenSQLiteInMemory() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory sqlite: %w", err)
	}

	store := &SQLiteStore{db: db, path: ":memory:"}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id  TEXT PRIMARY KEY,
			doc TEXT NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads every conversation row. An unparseable document fails with
// ErrCorruptStore, mirroring the file backend.
func (s *SQLiteStore) Load() (map[string]*Conversation, error) {
	rows, err := s.db.Query(`SELECT id, doc FROM conversations`)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	conversations := map[string]*Conversation{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}

		var conv Conversation
		if err := json.Unmarshal([]byte(doc), &conv); err != nil {
			return nil, fmt.Errorf("%w: row %s: %v", ErrCorruptStore, id, err)
		}
		if conv.Folder == "" {
			conv.Folder = DefaultFolder
		}
		conversations[id] = &conv
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation rows: %w", err)
	}

	return conversations, nil
}

// Save replaces the stored mapping wholesale inside one transaction, so
// a failed save leaves the previous state intact.
func (s *SQLiteStore) Save(conversations map[string]*Conversation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM conversations`); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO conversations (id, doc) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for id, conv := range conversations {
		doc, err := json.Marshal(conv)
		if err != nil {
			return fmt.Errorf("marshal conversation %s: %w", id, err)
		}
		if _, err := stmt.Exec(id, string(doc)); err != nil {
			return fmt.Errorf("insert conversation %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Verify SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
