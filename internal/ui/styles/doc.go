// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for the localchat TUI.
// Colors use Lip Gloss AdaptiveColor so they track light and dark
// terminal backgrounds automatically.
package styles
