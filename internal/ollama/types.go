// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// GenerateRequest is the request body for the /api/generate endpoint.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// GenerateResponse is a single NDJSON line from /api/generate. A line
// carries exactly one of: a response fragment, an error, or done=true.
type GenerateResponse struct {
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	Response  string    `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
	Done      bool      `json:"done"`
}

// ModelInfo describes an installed model from /api/tags.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// ListModelsResponse is the response from /api/tags.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// Chunk is one unit of streamed output delivered to callbacks. Exactly one
// of Text, Err, or Done is meaningful per chunk.
type Chunk struct {
	Text string
	Err  error
	Done bool
}

// StreamCallback receives chunks in arrival order on the reader goroutine.
type StreamCallback func(Chunk)
