// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the in-memory collection of chat sessions: ordered
// list, active-session pointer, monotonic id assignment, and write-through
// persistence via a pluggable Port.
package session
