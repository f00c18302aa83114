/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/config"
)

// Saver writes rendered reports to the local report directory and
// prunes reports older than the retention window.
type Saver struct {
	cfg    config.ReportsConfig
	logger zerolog.Logger
	now    func() time.Time
}

func NewSaver(cfg config.ReportsConfig, logger zerolog.Logger) *Saver {
	return &Saver{
		cfg:    cfg,
		logger: logger.With().Str("component", "report_saver").Logger(),
		now:    time.Now,
	}
}

// Save writes the rendered reports to timestamped files. Formats maps
// file extension ("txt", "html") to rendered content. Returns the
// written paths.
func (s *Saver) Save(formats map[string]string) ([]string, error) {
	if !s.cfg.SaveLocalReports() {
		return nil, nil
	}

	dir := s.cfg.LocalDirectory
	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory %s: %w", dir, err)
	}

	stamp := s.now().Format("20060102_150405")
	var written []string
	for ext, content := range formats {
		path := filepath.Join(dir, fmt.Sprintf("backup_report_%s.%s", stamp, ext))
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return written, fmt.Errorf("writing report %s: %w", path, err)
		}
		s.logger.Info().Str("path", path).Msg("report saved")
		written = append(written, path)
	}

	if err := s.prune(dir); err != nil {
		s.logger.Warn().Err(err).Msg("report cleanup failed")
	}
	return written, nil
}

// prune removes saved reports older than the retention window.
func (s *Saver) prune(dir string) error {
	if s.cfg.RetentionDays <= 0 {
		return nil
	}
	cutoff := s.now().AddDate(0, 0, -s.cfg.RetentionDays)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "backup_report_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn().Err(err).Str("path", path).Msg("could not remove old report")
				continue
			}
			s.logger.Debug().Str("path", path).Msg("old report removed")
		}
	}
	return nil
}
