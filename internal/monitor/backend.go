/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package monitor

import (
	"context"
	"time"

	"github.com/friendsincode/muninn/internal/models"
	"github.com/friendsincode/muninn/internal/scanner"
)

// Backend gives the monitor access to a location's filesystem by kind.
// Only the local backend exists today; remote backends plug in here
// without touching the traversal code.
type Backend interface {
	// Scan performs the full bounded walk of the location root.
	Scan(ctx context.Context, root string, excludePatterns []string, cfg scanner.Config) []models.DirectoryStats

	// ProbeActivity is the shallow top-level recency check.
	ProbeActivity(path string) (time.Time, bool)

	// IsAccessibleDir reports whether path exists and is a directory.
	IsAccessibleDir(path string) bool
}

// localBackend accesses the local filesystem through the scanner.
type localBackend struct {
	scanner *scanner.Scanner
}

func (b *localBackend) Scan(ctx context.Context, root string, excludePatterns []string, cfg scanner.Config) []models.DirectoryStats {
	return b.scanner.Scan(ctx, root, excludePatterns, cfg)
}

func (b *localBackend) ProbeActivity(path string) (time.Time, bool) {
	return b.scanner.ProbeActivity(path)
}

func (b *localBackend) IsAccessibleDir(path string) bool {
	return b.scanner.IsAccessibleDir(path)
}
