// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for localchat: crash-safe
// file writing and width-aware string shaping for the TUI.
package util
