// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream owns the lifecycle of an in-flight model response: ordered
// accumulation of fragments, partial snapshots for display, and the commit
// of the final text into the owning session. At most one stream runs per
// session at a time.
package stream
