/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package report

import (
	"fmt"
	"strings"
	"time"
)

// FormatSize renders a byte count in human readable form.
func FormatSize(sizeBytes int64) string {
	switch {
	case sizeBytes < 1024:
		return fmt.Sprintf("%dB", sizeBytes)
	case sizeBytes < 1024*1024:
		return fmt.Sprintf("%dKB", sizeBytes/1024)
	case sizeBytes < 1024*1024*1024:
		return fmt.Sprintf("%dMB", sizeBytes/(1024*1024))
	default:
		return fmt.Sprintf("%dGB", sizeBytes/(1024*1024*1024))
	}
}

// FormatDate renders a timestamp for display.
func FormatDate(t time.Time, short bool) string {
	if short {
		return t.Format("2006-01-02 15:04")
	}
	return t.Format("2006-01-02 15:04:05")
}

// ActivityIndicator renders how recently an entry was modified.
func ActivityIndicator(modified *time.Time, now time.Time) string {
	if modified == nil {
		return "- UNK"
	}

	daysOld := int(now.Sub(*modified).Hours() / 24)
	switch {
	case daysOld == 0:
		return "* TODAY"
	case daysOld == 1:
		return "* YEST"
	case daysOld <= 7:
		return fmt.Sprintf("+ %dd", daysOld)
	case daysOld <= 30:
		return fmt.Sprintf("- %dd", daysOld)
	default:
		return fmt.Sprintf("o %dd", daysOld)
	}
}

// Truncate shortens text to maxLength, appending an ellipsis when cut.
func Truncate(text string, maxLength int) string {
	const suffix = "..."
	if len(text) <= maxLength {
		return text
	}
	return text[:maxLength-len(suffix)] + suffix
}

// RelativePath renders fullPath relative to basePath when possible.
func RelativePath(fullPath, basePath string) string {
	if strings.HasPrefix(fullPath, basePath) {
		rel := strings.TrimLeft(fullPath[len(basePath):], "/")
		if rel == "" {
			return "."
		}
		return rel
	}
	return fullPath
}

// topLevelName extracts the display name for a scanned directory path:
// the last path segment, or "(root)" for bare roots.
func topLevelName(path string) string {
	parts := make([]string, 0, 8)
	for _, p := range strings.Split(strings.TrimRight(path, "/"), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "(root)"
	}
	return parts[len(parts)-1]
}
