// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/localchat/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders a session as a Markdown document with a metadata
// header and one section per message.
type MarkdownExporter struct{}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

func (e *MarkdownExporter) Export(sess *model.ChatSession) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", sess.Name)
	if !sess.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "*Created: %s*\n\n", sess.CreatedAt.Format(time.RFC1123))
	}
	fmt.Fprintf(&b, "---\n\n")

	for _, m := range sess.Messages {
		switch m.Sender {
		case model.RoleUser:
			b.WriteString("## You\n\n")
		default:
			b.WriteString("## Assistant\n\n")
		}
		b.WriteString(m.DisplayText())
		b.WriteString("\n\n")
	}

	return []byte(b.String()), nil
}

func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}
