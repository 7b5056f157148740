// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for localchat.
//
// Precedence, lowest to highest: built-in defaults, the TOML file at
// ~/.local-ai-chat/config.toml (or an explicit --config path), then
// LOCALCHAT_* environment variables.
package config
