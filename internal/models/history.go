/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// ScanRun records one completed monitoring run.
type ScanRun struct {
	ID                 string `gorm:"type:uuid;primaryKey"`
	StartedAt          time.Time
	FinishedAt         time.Time
	TotalLocations     int
	TotalDirectories   int
	TotalFiles         int
	TotalSize          int64
	EmptyDirectories   int
	ErrorDirectories   int
	HealthyDirectories int
	HealthPercentage   float64
	RecentFiles        int
	DaysBack           int
	IssueCount         int
	CreatedAt          time.Time
}

// LocationRunResult records the per-location summary of a run.
type LocationRunResult struct {
	ID               uint   `gorm:"primaryKey"`
	RunID            string `gorm:"type:uuid;index"`
	Location         string `gorm:"index"`
	Directories      int
	Files            int
	TotalSize        int64
	EmptyDirectories int
	ErrorDirectories int
	RecentFiles      int
	MostRecentName   string
	MostRecentPath   string
	MostRecentAt     *time.Time
	CreatedAt        time.Time
}

// IssueRecord persists a detected issue for a run.
type IssueRecord struct {
	ID        uint   `gorm:"primaryKey"`
	RunID     string `gorm:"type:uuid;index"`
	Kind      string `gorm:"type:varchar(32)"`
	Severity  string `gorm:"type:varchar(16)"`
	Location  string `gorm:"index"`
	Message   string `gorm:"type:text"`
	CreatedAt time.Time
}
