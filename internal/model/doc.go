// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the chat data model shared by the TUI, the plain
// REPL, and persistence: sessions, messages, and the streaming mutable-tail
// rules for in-flight assistant messages.
package model
