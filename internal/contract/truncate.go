// Agent Monitor - local-first observability hub for AI coding agents
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agentmonitor

package contract

import (
	json "github.com/goccy/go-json"
)

// priorityKeys are preserved verbatim, in this order, when an oversized
// object-shaped metadata payload is truncated (spec §4.3).
var priorityKeys = []string{
	"command", "file_path", "query", "pattern", "error", "message",
	"tool_name", "path", "type",
}

// truncateMetadata serializes metadata to canonical JSON, measures it in
// UTF-8 bytes against capBytes, and if it exceeds the cap produces the
// appropriate summary shape. Returns the (possibly replaced) metadata value
// and whether truncation occurred.
func truncateMetadata(metadata any, capBytes int) (any, bool) {
	if metadata == nil {
		return nil, false
	}

	canonical, err := json.Marshal(metadata)
	if err != nil {
		return nil, false
	}
	if len(canonical) <= capBytes {
		return metadata, false
	}

	originalBytes := len(canonical)

	switch m := metadata.(type) {
	case map[string]any:
		summary := map[string]any{
			"_truncated":      true,
			"_original_bytes": originalBytes,
		}
		for _, key := range priorityKeys {
			if v, ok := m[key]; ok {
				summary[key] = v
			}
		}
		return summary, true

	case string:
		return map[string]any{
			"_truncated":      true,
			"_original_bytes": originalBytes,
			"_prefix":         utf8SafePrefix(m, capBytes),
		}, true

	default:
		return map[string]any{
			"_truncated":      true,
			"_original_bytes": originalBytes,
		}, true
	}
}

// utf8SafePrefix returns the longest prefix of s whose encoded length is at
// most maxBytes, never splitting a multi-byte rune.
func utf8SafePrefix(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	end := maxBytes
	for end > 0 && isUTF8Continuation(s[end]) {
		end--
	}
	return s[:end]
}

// isUTF8Continuation reports whether b is a UTF-8 continuation byte
// (10xxxxxx), meaning a rune boundary does not start here.
func isUTF8Continuation(b byte) bool {
	return b&0xC0 == 0x80
}
