/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// LocationKind selects the access backend for a backup location.
// Only local filesystem locations exist today; the kind is kept as a
// tagged value so remote backends can be added without touching the
// traversal code.
type LocationKind string

const (
	LocationLocal LocationKind = "local"
)

// Location is one configured backup target.
type Location struct {
	Name            string       `yaml:"name" json:"name"`
	Path            string       `yaml:"path" json:"path"`
	Kind            LocationKind `yaml:"type" json:"type"`
	ExcludePatterns []string     `yaml:"exclude_patterns" json:"exclude_patterns,omitempty"`
	MaxDepth        int          `yaml:"max_depth" json:"max_depth,omitempty"` // 0 = use global default
	FailoverGroup   string       `yaml:"failover_group" json:"failover_group,omitempty"`
}

// FileEntry is one file or subdirectory observed at the scanned level.
type FileEntry struct {
	Path         string    `json:"path"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"` // 0 for directories
	ModifiedTime time.Time `json:"modified_time"`
	IsDirectory  bool      `json:"is_directory"`
}

// DirectoryStats holds the statistics collected for one scanned directory.
// When ErrorMessage is set the counts are zero and MostRecent is nil.
type DirectoryStats struct {
	Path              string     `json:"path"`
	FileCount         int        `json:"file_count"`
	SubdirectoryCount int        `json:"subdirectory_count"`
	TotalSize         int64      `json:"total_size"`
	MostRecent        *FileEntry `json:"most_recent_file,omitempty"`
	IsEmpty           bool       `json:"is_empty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
}

// HasError reports whether this entry records a failure instead of content.
func (d DirectoryStats) HasError() bool {
	return d.ErrorMessage != ""
}

// ErrorStats builds an error-tagged entry for path.
func ErrorStats(path, message string) DirectoryStats {
	return DirectoryStats{
		Path:         path,
		IsEmpty:      true,
		ErrorMessage: message,
	}
}

// ScanResults maps location name to the ordered directory statistics
// produced by scanning that location.
type ScanResults map[string][]DirectoryStats

// ActivityRecord is one entry of the recent-activity list.
type ActivityRecord struct {
	Location     string    `json:"location"`
	Directory    string    `json:"directory"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modified_time"`
	IsDirectory  bool      `json:"is_directory"`
}

// AnalysisSummary aggregates counters across all scanned locations.
type AnalysisSummary struct {
	TotalLocations     int              `json:"total_locations"`
	TotalDirectories   int              `json:"total_directories"`
	TotalFiles         int              `json:"total_files"`
	TotalSize          int64            `json:"total_size"`
	EmptyDirectories   int              `json:"empty_directories"`
	ErrorDirectories   int              `json:"error_directories"`
	HealthyDirectories int              `json:"healthy_directories"`
	HealthPercentage   float64          `json:"health_percentage"`
	RecentFiles        int              `json:"recent_files"`
	RecentActivity     []ActivityRecord `json:"recent_activity"`
	AnalyzedAt         time.Time        `json:"analyzed_at"`
	DaysBack           int              `json:"days_analyzed"`
}

// LocationSummary aggregates counters for a single location.
type LocationSummary struct {
	Directories      int             `json:"directories"`
	Files            int             `json:"files"`
	TotalSize        int64           `json:"total_size"`
	EmptyDirectories int             `json:"empty_directories"`
	ErrorDirectories int             `json:"error_directories"`
	RecentFiles      int             `json:"recent_files"`
	MostRecent       *ActivityRecord `json:"most_recent_activity,omitempty"`
}

// IssueKind enumerates detected backup problems.
type IssueKind string

const (
	IssueNoData        IssueKind = "no_data"
	IssueAccessErrors  IssueKind = "access_errors"
	IssueStaleBackup   IssueKind = "stale_backup"
	IssueManyEmptyDirs IssueKind = "many_empty_dirs"
)

// Severity ranks how urgent an issue is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Issue is a flagged condition for one location.
type Issue struct {
	Kind       IssueKind `json:"type"`
	Severity   Severity  `json:"severity"`
	Location   string    `json:"location"`
	Count      int       `json:"count,omitempty"`
	Percentage float64   `json:"percentage,omitempty"`
	Message    string    `json:"message"`
}
