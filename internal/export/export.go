// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/shortlister/internal/storage"
	"github.com/jeranaias/shortlister/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a conversation to the target format and returns the content.
	Export(conv *storage.Conversation) ([]byte, error)

	// ExportFolder converts a set of conversations from one folder into a
	// single aggregated document.
	ExportFolder(folder string, convs []*storage.Conversation) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".pdf").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// IncludeMetadata includes a metadata header (folder, dates, counts).
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a conversation to a file using the specified exporter.
// Returns the output file path or an error. The filename is derived from the
// sanitized conversation title plus a timestamp, so repeated exports never
// collide.
func ExportToFile(conv *storage.Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := artifactName("conversation", conv.Title, exporter.FileExtension())
	return writeArtifact(opts.OutputDir, filename, content)
}

// ExportFolderToFile exports every conversation in a folder into one
// aggregated file. Conversations are rendered in the order given; callers
// pass a stable (ID-sorted) slice so repeated exports are byte-comparable
// apart from timestamps.
func ExportFolderToFile(folder string, convs []*storage.Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.ExportFolder(folder, convs)
	if err != nil {
		return "", fmt.Errorf("export folder failed: %w", err)
	}

	filename := artifactName("folder", folder, exporter.FileExtension())
	return writeArtifact(opts.OutputDir, filename, content)
}

// ForFormat returns the exporter for a format name ("markdown" or "pdf").
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch format {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "pdf":
		return NewPDFExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format: %q", format)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func artifactName(kind, label, ext string) string {
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s%s", kind, util.SanitizeFilename(label), timestamp, ext)
}

func writeArtifact(dir, filename string, content []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(dir, filename)
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
