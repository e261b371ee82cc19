// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helper functions for shortlister.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - SanitizeFilename: Filesystem-safe name derivation
//
// # Usage
//
//	// Write the store file atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0644)
//
//	// Truncate long titles safely for display
//	title := util.TruncateRunes(firstMessage, 30)
package util
