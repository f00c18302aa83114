/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package history persists completed monitoring runs so trends can be
// compared across invocations.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn/internal/models"
)

// Store records and queries monitoring runs.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStore creates a history store.
func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Migrate creates or updates the history tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&models.ScanRun{},
		&models.LocationRunResult{},
		&models.IssueRecord{},
	)
}

// RecordRun persists one completed run with its per-location summaries and
// detected issues. Returns the new run ID.
func (s *Store) RecordRun(ctx context.Context, startedAt time.Time, summary models.AnalysisSummary,
	locationSummaries map[string]models.LocationSummary, issues []models.Issue) (string, error) {

	run := &models.ScanRun{
		ID:                 uuid.NewString(),
		StartedAt:          startedAt,
		FinishedAt:         summary.AnalyzedAt,
		TotalLocations:     summary.TotalLocations,
		TotalDirectories:   summary.TotalDirectories,
		TotalFiles:         summary.TotalFiles,
		TotalSize:          summary.TotalSize,
		EmptyDirectories:   summary.EmptyDirectories,
		ErrorDirectories:   summary.ErrorDirectories,
		HealthyDirectories: summary.HealthyDirectories,
		HealthPercentage:   summary.HealthPercentage,
		RecentFiles:        summary.RecentFiles,
		DaysBack:           summary.DaysBack,
		IssueCount:         len(issues),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("create run: %w", err)
		}

		for location, ls := range locationSummaries {
			record := &models.LocationRunResult{
				RunID:            run.ID,
				Location:         location,
				Directories:      ls.Directories,
				Files:            ls.Files,
				TotalSize:        ls.TotalSize,
				EmptyDirectories: ls.EmptyDirectories,
				ErrorDirectories: ls.ErrorDirectories,
				RecentFiles:      ls.RecentFiles,
			}
			if ls.MostRecent != nil {
				record.MostRecentName = ls.MostRecent.Name
				record.MostRecentPath = ls.MostRecent.Directory
				at := ls.MostRecent.ModifiedTime
				record.MostRecentAt = &at
			}
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("create location result: %w", err)
			}
		}

		for _, issue := range issues {
			record := &models.IssueRecord{
				RunID:    run.ID,
				Kind:     string(issue.Kind),
				Severity: string(issue.Severity),
				Location: issue.Location,
				Message:  issue.Message,
			}
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("create issue record: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("run_id", run.ID).Int("issues", len(issues)).Msg("run recorded")
	return run.ID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.ScanRun, error) {
	var runs []models.ScanRun
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// RunIssues returns the issues recorded for one run.
func (s *Store) RunIssues(ctx context.Context, runID string) ([]models.IssueRecord, error) {
	var issues []models.IssueRecord
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id").
		Find(&issues).Error
	return issues, err
}

// LocationResults returns the per-location summaries recorded for one run.
func (s *Store) LocationResults(ctx context.Context, runID string) ([]models.LocationRunResult, error) {
	var results []models.LocationRunResult
	err := s.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("location").
		Find(&results).Error
	return results, err
}

// Prune deletes runs older than retentionDays, with their location results
// and issues.
func (s *Store) Prune(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stale []models.ScanRun
		if err := tx.Select("id").Where("started_at < ?", cutoff).Find(&stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}

		ids := make([]string, 0, len(stale))
		for _, run := range stale {
			ids = append(ids, run.ID)
		}

		if err := tx.Where("run_id IN ?", ids).Delete(&models.LocationRunResult{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id IN ?", ids).Delete(&models.IssueRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", ids).Delete(&models.ScanRun{}).Error; err != nil {
			return err
		}

		s.logger.Info().Int("pruned", len(ids)).Msg("pruned old runs")
		return nil
	})
}
