/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scanner walks backup directory trees and collects per-directory
// statistics. Traversal is bounded by depth and directory count, and a
// configured timeout cancels a scan midway, returning whatever was
// collected so far.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/models"
)

// Config bounds a single scan. It is an immutable value passed into each
// Scan call; concurrent scans with different settings never interfere.
type Config struct {
	// MaxDepth is the maximum directory depth below the root, measured as
	// the number of path separators between root and candidate. Directories
	// at depth >= MaxDepth are pruned together with their subtrees.
	MaxDepth int

	// MaxDirs caps how many directories one scan collects. Once reached,
	// traversal stops and later directories are never visited.
	MaxDirs int

	// FileSizeLimitMB is reserved for detailed content analysis; the scan
	// itself never reads file contents.
	FileSizeLimitMB int

	// Timeout bounds the wall-clock duration of the scan. Zero disables
	// the deadline.
	Timeout time.Duration
}

// errDirLimit stops traversal once MaxDirs directories were collected.
var errDirLimit = errors.New("directory limit reached")

// Scanner scans directories and collects file statistics.
type Scanner struct {
	logger zerolog.Logger
}

// New creates a directory scanner.
func New(logger zerolog.Logger) *Scanner {
	return &Scanner{
		logger: logger.With().Str("component", "scanner").Logger(),
	}
}

// Scan walks root and returns one DirectoryStats per qualifying directory,
// in traversal order. The root itself is never included. An inaccessible
// root yields a single error-tagged entry; errors inside the tree are
// contained to the affected directory.
func (s *Scanner) Scan(ctx context.Context, root string, excludePatterns []string, cfg Config) []models.DirectoryStats {
	s.logger.Info().Str("path", root).Msg("starting scan")

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.DirectoryStats{models.ErrorStats(root, fmt.Sprintf("path does not exist: %s", root))}
		}
		return []models.DirectoryStats{models.ErrorStats(root, err.Error())}
	}
	if !info.IsDir() {
		return []models.DirectoryStats{models.ErrorStats(root, fmt.Sprintf("path is not a directory: %s", root))}
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	directories, walkErr := s.collectDirectories(ctx, root, excludePatterns, cfg)

	results := make([]models.DirectoryStats, 0, len(directories))
	if walkErr == nil || errors.Is(walkErr, errDirLimit) {
		for _, dir := range directories {
			if err := ctx.Err(); err != nil {
				walkErr = err
				break
			}
			results = append(results, s.analyzeDirectory(dir, excludePatterns))
			if len(results)%50 == 0 {
				s.logger.Info().Int("processed", len(results)).Msg("scan progress")
			}
		}
	}

	if walkErr != nil && !errors.Is(walkErr, errDirLimit) {
		// Deadline or cancellation: keep the partial results and record the
		// interruption as one error entry for the root.
		msg := "scan cancelled"
		if errors.Is(walkErr, context.DeadlineExceeded) {
			msg = fmt.Sprintf("scan timed out after %s", cfg.Timeout)
		}
		s.logger.Warn().Str("path", root).Str("reason", msg).Int("partial", len(results)).Msg("scan interrupted")
		results = append(results, models.ErrorStats(root, msg))
		return results
	}

	s.logger.Info().Str("path", root).Int("directories", len(results)).Msg("scan complete")
	return results
}

// collectDirectories gathers qualifying directories below root in
// depth-first preorder. Unreadable directories are still collected (their
// listing error surfaces during analysis); their subtrees are skipped.
func (s *Scanner) collectDirectories(ctx context.Context, root string, excludePatterns []string, cfg Config) ([]string, error) {
	if isExcluded(root, excludePatterns) {
		s.logger.Debug().Str("path", root).Msg("root matches exclusion pattern")
		return nil, nil
	}

	var directories []string

	var walk func(dir string) error
	walk = func(dir string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			s.logger.Debug().Err(err).Str("path", dir).Msg("cannot list directory during traversal")
			return nil
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			child := filepath.Join(dir, entry.Name())
			if depthBelow(root, child) >= cfg.MaxDepth {
				continue
			}
			if isExcluded(child, excludePatterns) {
				continue
			}
			if len(directories) >= cfg.MaxDirs {
				return errDirLimit
			}
			directories = append(directories, child)
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}

	err := walk(root)
	if errors.Is(err, errDirLimit) {
		s.logger.Warn().Int("max_dirs", cfg.MaxDirs).Str("path", root).Msg("reached maximum directory limit, truncating scan")
	}
	return directories, err
}

// analyzeDirectory reads the immediate children of dir. The most recent
// entry spans both files and subdirectories; a subdirectory's own mtime is
// recency evidence just like a file's. Ties keep the first entry seen.
func (s *Scanner) analyzeDirectory(dir string, excludePatterns []string) models.DirectoryStats {
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Error().Err(err).Str("path", dir).Msg("error analyzing directory")
		return models.ErrorStats(dir, err.Error())
	}

	var (
		fileCount      int
		subdirCount    int
		totalSize      int64
		mostRecent     *models.FileEntry
		mostRecentTime time.Time
	)

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			s.logger.Debug().Err(err).Str("path", filepath.Join(dir, entry.Name())).Msg("skipping unreadable entry")
			continue
		}

		path := filepath.Join(dir, entry.Name())

		switch {
		case entry.IsDir():
			subdirCount++
			if mostRecent == nil || info.ModTime().After(mostRecentTime) {
				mostRecentTime = info.ModTime()
				mostRecent = &models.FileEntry{
					Path:         path,
					Name:         entry.Name(),
					Size:         0,
					ModifiedTime: info.ModTime(),
					IsDirectory:  true,
				}
			}

		case info.Mode().IsRegular():
			if isExcluded(path, excludePatterns) {
				continue
			}
			fileCount++
			totalSize += info.Size()
			if mostRecent == nil || info.ModTime().After(mostRecentTime) {
				mostRecentTime = info.ModTime()
				mostRecent = &models.FileEntry{
					Path:         path,
					Name:         entry.Name(),
					Size:         info.Size(),
					ModifiedTime: info.ModTime(),
					IsDirectory:  false,
				}
			}
		}
	}

	return models.DirectoryStats{
		Path:              dir,
		FileCount:         fileCount,
		SubdirectoryCount: subdirCount,
		TotalSize:         totalSize,
		MostRecent:        mostRecent,
		IsEmpty:           fileCount == 0,
	}
}

// ProbeActivity is the shallow activity check used during failover
// candidate evaluation: the maximum modification time across the immediate
// children of path. An unreadable path falls back to its own mtime; a
// missing path has no activity.
func (s *Scanner) ProbeActivity(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		// Cannot list the directory itself, use its own mtime.
		return info.ModTime(), true
	}

	var mostRecent time.Time
	var found bool
	for _, entry := range entries {
		entryInfo, err := entry.Info()
		if err != nil {
			continue
		}
		if !found || entryInfo.ModTime().After(mostRecent) {
			mostRecent = entryInfo.ModTime()
			found = true
		}
	}
	return mostRecent, found
}

// IsAccessibleDir reports whether path exists and is a directory.
func (s *Scanner) IsAccessibleDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// isExcluded matches path against patterns by raw string prefix. This is
// deliberately loose: "/backup/tmp" excludes both "/backup/tmp" and
// "/backup/tmpfile2". Downstream consumers depend on this behavior.
func isExcluded(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if strings.HasPrefix(path, pattern) {
			return true
		}
	}
	return false
}

// depthBelow counts the path separators between root and path.
func depthBelow(root, path string) int {
	return strings.Count(path[len(root):], string(os.PathSeparator))
}
