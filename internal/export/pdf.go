// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/jeranaias/shortlister/internal/storage"
)

// =============================================================================
// PDF EXPORTER
// =============================================================================

// PDFExporter exports conversations to a paginated A4 PDF document.
type PDFExporter struct {
	options *Options
}

// NewPDFExporter creates a new PDF exporter.
func NewPDFExporter(opts *Options) *PDFExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &PDFExporter{options: opts}
}

// Export converts a conversation to PDF format.
func (e *PDFExporter) Export(conv *storage.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is nil")
	}
	if len(conv.Messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}

	doc := e.newDocument()
	e.writeConversation(doc, conv)
	return e.render(doc)
}

// ExportFolder renders every conversation in the folder into one document,
// each starting on its own page.
func (e *PDFExporter) ExportFolder(folder string, convs []*storage.Conversation) ([]byte, error) {
	if len(convs) == 0 {
		return nil, fmt.Errorf("folder %q has no conversations", folder)
	}

	doc := e.newDocument()
	tr := doc.pdf.UnicodeTranslatorFromDescriptor("")

	doc.pdf.SetFont("Helvetica", "B", 18)
	doc.pdf.MultiCell(0, 9, tr(fmt.Sprintf("Folder: %s", folder)), "", "L", false)
	doc.pdf.SetFont("Helvetica", "", 10)
	doc.pdf.SetTextColor(110, 110, 110)
	doc.pdf.MultiCell(0, 5, fmt.Sprintf("%d conversation(s), exported %s",
		len(convs), time.Now().Format("2006-01-02 15:04")), "", "L", false)
	doc.pdf.SetTextColor(0, 0, 0)

	for _, conv := range convs {
		if len(conv.Messages) == 0 {
			continue
		}
		doc.pdf.AddPage()
		e.writeConversation(doc, conv)
	}

	return e.render(doc)
}

// FileExtension returns the file extension for PDF.
func (e *PDFExporter) FileExtension() string {
	return ".pdf"
}

// MimeType returns the MIME type for PDF.
func (e *PDFExporter) MimeType() string {
	return "application/pdf"
}

// =============================================================================
// DOCUMENT ASSEMBLY
// =============================================================================

type pdfDocument struct {
	pdf *fpdf.Fpdf
}

func (e *PDFExporter) newDocument() *pdfDocument {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-14)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(130, 130, 130)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	pdf.AddPage()
	return &pdfDocument{pdf: pdf}
}

func (e *PDFExporter) writeConversation(doc *pdfDocument, conv *storage.Conversation) {
	pdf := doc.pdf
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Header: title plus metadata line.
	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, tr(conv.Title), "", "L", false)

	if e.options.IncludeMetadata {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(110, 110, 110)
		meta := fmt.Sprintf("Folder: %s  |  Created: %s  |  Messages: %d",
			conv.Folder, formatTimestamp(conv.CreatedAt), len(conv.Messages))
		pdf.MultiCell(0, 5, tr(meta), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	for _, msg := range conv.Messages {
		label := formatRoleLabel(msg.Role)
		if e.options.IncludeTimestamps {
			label = fmt.Sprintf("%s  %s", label, formatShortTimestamp(msg.Timestamp))
		}

		pdf.SetFont("Helvetica", "B", 11)
		if msg.Role == storage.RoleUser {
			pdf.SetTextColor(30, 70, 140)
		} else {
			pdf.SetTextColor(30, 110, 60)
		}
		pdf.MultiCell(0, 6, tr(label), "", "L", false)
		pdf.SetTextColor(0, 0, 0)

		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(msg.Content), "", "L", false)
		pdf.Ln(3)
	}
}

func (e *PDFExporter) render(doc *pdfDocument) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
