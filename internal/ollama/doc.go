// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for a locally-hosted Ollama
// server: health check, model listing via /api/tags, and streaming text
// generation via /api/generate with newline-delimited JSON responses.
package ollama
