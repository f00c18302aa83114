/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/muninn/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "history.db")
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store := NewStore(gdb, zerolog.Nop())
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func sampleSummary(at time.Time) models.AnalysisSummary {
	return models.AnalysisSummary{
		TotalLocations:     2,
		TotalDirectories:   10,
		TotalFiles:         42,
		TotalSize:          1 << 20,
		EmptyDirectories:   1,
		ErrorDirectories:   1,
		HealthyDirectories: 8,
		HealthPercentage:   80.0,
		RecentFiles:        5,
		DaysBack:           7,
		AnalyzedAt:         at,
	}
}

func TestRecordAndListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	mostRecent := now.Add(-time.Hour)
	locationSummaries := map[string]models.LocationSummary{
		"primary": {
			Directories: 6, Files: 30, TotalSize: 1 << 19, RecentFiles: 4,
			MostRecent: &models.ActivityRecord{
				Directory: "/backup/daily", Name: "dump.sql", ModifiedTime: mostRecent,
			},
		},
		"secondary": {Directories: 4, Files: 12, TotalSize: 1 << 19, EmptyDirectories: 1, ErrorDirectories: 1},
	}
	issues := []models.Issue{
		{Kind: models.IssueAccessErrors, Severity: models.SeverityMedium, Location: "secondary", Count: 1, Message: "1 directories could not be accessed"},
	}

	runID, err := store.RecordRun(ctx, now.Add(-time.Minute), sampleSummary(now), locationSummaries, issues)
	if err != nil {
		t.Fatalf("record run: %v", err)
	}
	if runID == "" {
		t.Fatal("empty run ID")
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != runID || run.TotalFiles != 42 || run.HealthPercentage != 80.0 || run.IssueCount != 1 {
		t.Fatalf("unexpected run record: %+v", run)
	}

	results, err := store.LocationResults(ctx, runID)
	if err != nil {
		t.Fatalf("location results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 location results, got %d", len(results))
	}
	// Ordered by location name.
	if results[0].Location != "primary" || results[1].Location != "secondary" {
		t.Fatalf("unexpected order: %+v", results)
	}
	if results[0].MostRecentName != "dump.sql" || results[0].MostRecentAt == nil {
		t.Fatalf("most recent activity not persisted: %+v", results[0])
	}

	recorded, err := store.RunIssues(ctx, runID)
	if err != nil {
		t.Fatalf("run issues: %v", err)
	}
	if len(recorded) != 1 || recorded[0].Kind != "access_errors" || recorded[0].Severity != "medium" {
		t.Fatalf("unexpected issues: %+v", recorded)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, age := range []time.Duration{48 * time.Hour, 24 * time.Hour, time.Hour} {
		if _, err := store.RecordRun(ctx, now.Add(-age), sampleSummary(now.Add(-age)), nil, nil); err != nil {
			t.Fatalf("record run: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("limit not honored, got %d runs", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Fatalf("runs not newest first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
}

func TestPruneRemovesOldRunsWithChildren(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	oldID, err := store.RecordRun(ctx, now.AddDate(0, 0, -120), sampleSummary(now),
		map[string]models.LocationSummary{"primary": {Directories: 1}},
		[]models.Issue{{Kind: models.IssueNoData, Severity: models.SeverityHigh, Location: "primary", Message: "x"}})
	if err != nil {
		t.Fatalf("record old run: %v", err)
	}
	freshID, err := store.RecordRun(ctx, now.Add(-time.Hour), sampleSummary(now), nil, nil)
	if err != nil {
		t.Fatalf("record fresh run: %v", err)
	}

	if err := store.Prune(ctx, 90); err != nil {
		t.Fatalf("prune: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != freshID {
		t.Fatalf("expected only the fresh run, got %+v", runs)
	}

	orphanedIssues, err := store.RunIssues(ctx, oldID)
	if err != nil {
		t.Fatalf("run issues: %v", err)
	}
	if len(orphanedIssues) != 0 {
		t.Fatalf("pruned run left issues behind: %+v", orphanedIssues)
	}
	orphanedResults, err := store.LocationResults(ctx, oldID)
	if err != nil {
		t.Fatalf("location results: %v", err)
	}
	if len(orphanedResults) != 0 {
		t.Fatalf("pruned run left location results behind: %+v", orphanedResults)
	}
}
