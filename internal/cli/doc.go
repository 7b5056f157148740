// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the plain line-oriented chat mode used when
// stdout is not a terminal or --plain is given. It shares the client,
// session store, and stream runner with the TUI.
package cli
