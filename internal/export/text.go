// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"strings"

	"github.com/jeranaias/localchat/internal/model"
)

// =============================================================================
// PLAIN TEXT EXPORTER
// =============================================================================

// TextExporter renders one "sender: text" line per message. This is the
// same form used for clipboard copy, so an exported file and a pasted chat
// read identically.
type TextExporter struct{}

// NewTextExporter creates a plain text exporter.
func NewTextExporter() *TextExporter {
	return &TextExporter{}
}

func (e *TextExporter) Export(sess *model.ChatSession) ([]byte, error) {
	var b strings.Builder
	for _, m := range sess.Messages {
		b.WriteString(m.TranscriptLine())
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

func (e *TextExporter) FileExtension() string {
	return ".txt"
}
