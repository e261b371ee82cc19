// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders conversation transcripts to portable formats.
//
// Supported formats are Markdown and PDF, for single conversations and
// for whole folders. A folder export aggregates every member
// conversation into one document in a stable order.
//
// # Key Types
//
//   - Exporter: format-agnostic export interface
//   - MarkdownExporter: frontmatter + headed transcript sections
//   - PDFExporter: paginated A4 document via go-pdf/fpdf
//   - Options: output directory, metadata and timestamp toggles
//
// Artifacts are named from the sanitized conversation title (or folder
// name) plus an export timestamp, so repeated exports never collide.
package export
