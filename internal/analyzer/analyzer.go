/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package analyzer turns raw scan results into aggregate statistics,
// recent-activity lists, and detected issues.
package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/models"
)

// Analyzer computes summaries and issues from scan results.
type Analyzer struct {
	daysBack int
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates an analyzer. daysBack is the recent-activity window in days.
func New(daysBack int, logger zerolog.Logger) *Analyzer {
	return &Analyzer{
		daysBack: daysBack,
		logger:   logger.With().Str("component", "analyzer").Logger(),
		now:      time.Now,
	}
}

// Analyze computes the aggregate summary across all locations. Error-tagged
// directories count toward ErrorDirectories but contribute nothing to file
// and size totals.
func (a *Analyzer) Analyze(results models.ScanResults) models.AnalysisSummary {
	a.logger.Info().Int("locations", len(results)).Msg("analyzing scan results")

	cutoff := a.now().AddDate(0, 0, -a.daysBack)

	summary := models.AnalysisSummary{
		TotalLocations: len(results),
		AnalyzedAt:     a.now(),
		DaysBack:       a.daysBack,
	}

	for locationName, stats := range results {
		for _, st := range stats {
			summary.TotalDirectories++

			if st.HasError() {
				summary.ErrorDirectories++
				continue
			}

			summary.TotalFiles += st.FileCount
			summary.TotalSize += st.TotalSize

			if st.IsEmpty {
				summary.EmptyDirectories++
			}

			if st.MostRecent != nil && !st.MostRecent.ModifiedTime.Before(cutoff) {
				summary.RecentFiles++
				summary.RecentActivity = append(summary.RecentActivity, models.ActivityRecord{
					Location:     locationName,
					Directory:    st.Path,
					Name:         st.MostRecent.Name,
					Size:         st.MostRecent.Size,
					ModifiedTime: st.MostRecent.ModifiedTime,
					IsDirectory:  st.MostRecent.IsDirectory,
				})
			}
		}
	}

	// Newest first. Presentation layers may truncate; the analysis does not.
	sort.SliceStable(summary.RecentActivity, func(i, j int) bool {
		return summary.RecentActivity[i].ModifiedTime.After(summary.RecentActivity[j].ModifiedTime)
	})

	summary.HealthyDirectories = summary.TotalDirectories - summary.EmptyDirectories - summary.ErrorDirectories
	if summary.TotalDirectories > 0 {
		summary.HealthPercentage = float64(summary.HealthyDirectories) / float64(summary.TotalDirectories) * 100
	}

	a.logger.Info().
		Int("directories", summary.TotalDirectories).
		Int("files", summary.TotalFiles).
		Int("recent", summary.RecentFiles).
		Msg("analysis complete")

	return summary
}

// SummarizeLocation computes the summary for a single location's results.
func (a *Analyzer) SummarizeLocation(stats []models.DirectoryStats) models.LocationSummary {
	summary := models.LocationSummary{
		Directories: len(stats),
	}

	cutoff := a.now().AddDate(0, 0, -a.daysBack)
	var mostRecentTime time.Time

	for _, st := range stats {
		if st.HasError() {
			summary.ErrorDirectories++
			continue
		}

		summary.Files += st.FileCount
		summary.TotalSize += st.TotalSize
		if st.IsEmpty {
			summary.EmptyDirectories++
		}

		if st.MostRecent == nil {
			continue
		}
		if !st.MostRecent.ModifiedTime.Before(cutoff) {
			summary.RecentFiles++
		}
		if summary.MostRecent == nil || st.MostRecent.ModifiedTime.After(mostRecentTime) {
			mostRecentTime = st.MostRecent.ModifiedTime
			summary.MostRecent = &models.ActivityRecord{
				Directory:    st.Path,
				Name:         st.MostRecent.Name,
				Size:         st.MostRecent.Size,
				ModifiedTime: st.MostRecent.ModifiedTime,
				IsDirectory:  st.MostRecent.IsDirectory,
			}
		}
	}

	return summary
}

// FindIssues flags problem conditions per location. The staleness window is
// twice the recent-activity window. Checks are independent; one location
// can raise several issues, except that a location with no data at all
// raises only no_data.
func (a *Analyzer) FindIssues(results models.ScanResults) []models.Issue {
	var issues []models.Issue

	cutoff := a.now().AddDate(0, 0, -a.daysBack*2)

	// Deterministic order for reports and tests.
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, locationName := range names {
		stats := results[locationName]

		if len(stats) == 0 {
			issues = append(issues, models.Issue{
				Kind:     models.IssueNoData,
				Severity: models.SeverityHigh,
				Location: locationName,
				Message:  "No directories found or scan failed",
			})
			continue
		}

		errorCount := 0
		for _, st := range stats {
			if st.HasError() {
				errorCount++
			}
		}
		if errorCount > 0 {
			issues = append(issues, models.Issue{
				Kind:     models.IssueAccessErrors,
				Severity: models.SeverityMedium,
				Location: locationName,
				Count:    errorCount,
				Message:  fmt.Sprintf("%d directories could not be accessed", errorCount),
			})
		}

		hasRecentActivity := false
		for _, st := range stats {
			if !st.HasError() && st.MostRecent != nil && !st.MostRecent.ModifiedTime.Before(cutoff) {
				hasRecentActivity = true
				break
			}
		}
		if !hasRecentActivity {
			issues = append(issues, models.Issue{
				Kind:     models.IssueStaleBackup,
				Severity: models.SeverityMedium,
				Location: locationName,
				Message:  fmt.Sprintf("No activity in the last %d days", a.daysBack*2),
			})
		}

		nonErrorDirs := 0
		emptyDirs := 0
		for _, st := range stats {
			if st.HasError() {
				continue
			}
			nonErrorDirs++
			if st.IsEmpty {
				emptyDirs++
			}
		}
		if nonErrorDirs > 0 {
			emptyFraction := float64(emptyDirs) / float64(nonErrorDirs)
			if emptyFraction > 0.5 {
				issues = append(issues, models.Issue{
					Kind:       models.IssueManyEmptyDirs,
					Severity:   models.SeverityLow,
					Location:   locationName,
					Percentage: emptyFraction * 100,
					Message:    fmt.Sprintf("%.1f%% of directories are empty", emptyFraction*100),
				})
			}
		}
	}

	return issues
}
