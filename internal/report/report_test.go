/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/config"
	"github.com/friendsincode/muninn/internal/models"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestGenerator() *Generator {
	g := NewGenerator()
	g.now = func() time.Time { return testNow }
	return g
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{1024, "1KB"},
		{1536, "1KB"},
		{5 * 1024 * 1024, "5MB"},
		{3 * 1024 * 1024 * 1024, "3GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.size); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestActivityIndicator(t *testing.T) {
	at := func(age time.Duration) *time.Time {
		v := testNow.Add(-age)
		return &v
	}

	tests := []struct {
		name     string
		modified *time.Time
		want     string
	}{
		{"nil", nil, "- UNK"},
		{"today", at(2 * time.Hour), "* TODAY"},
		{"yesterday", at(30 * time.Hour), "* YEST"},
		{"this week", at(4 * 24 * time.Hour), "+ 4d"},
		{"this month", at(20 * 24 * time.Hour), "- 20d"},
		{"ancient", at(90 * 24 * time.Hour), "o 90d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ActivityIndicator(tt.modified, testNow); got != tt.want {
				t.Fatalf("ActivityIndicator = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 32); got != "short" {
		t.Fatalf("Truncate(short) = %q", got)
	}
	got := Truncate("a-very-long-directory-name-that-keeps-going", 20)
	if len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("Truncate long = %q (len %d)", got, len(got))
	}
}

func TestRelativePath(t *testing.T) {
	tests := []struct {
		full, base, want string
	}{
		{"/backup/daily/db", "/backup", "daily/db"},
		{"/backup", "/backup", "."},
		{"/elsewhere/x", "/backup", "/elsewhere/x"},
	}
	for _, tt := range tests {
		if got := RelativePath(tt.full, tt.base); got != tt.want {
			t.Errorf("RelativePath(%q, %q) = %q, want %q", tt.full, tt.base, got, tt.want)
		}
	}
}

func sampleResults() (models.ScanResults, models.AnalysisSummary, []models.Issue) {
	recent := testNow.Add(-2 * time.Hour)
	results := models.ScanResults{
		"primary": {
			{
				Path:      "/backup/daily",
				FileCount: 3,
				TotalSize: 3 * 1024 * 1024,
				MostRecent: &models.FileEntry{
					Path: "/backup/daily/dump.sql", Name: "dump.sql",
					Size: 1024 * 1024, ModifiedTime: recent,
				},
			},
			{Path: "/backup/empty", IsEmpty: true},
			models.ErrorStats("/backup/locked", "permission denied"),
		},
	}
	summary := models.AnalysisSummary{
		TotalLocations:   1,
		TotalDirectories: 3,
		TotalFiles:       3,
		TotalSize:        3 * 1024 * 1024,
		EmptyDirectories: 1,
		ErrorDirectories: 1,
		HealthPercentage: 33.3,
		RecentFiles:      1,
		RecentActivity: []models.ActivityRecord{
			{Location: "primary", Directory: "/backup/daily", Name: "dump.sql", Size: 1024 * 1024, ModifiedTime: recent},
		},
	}
	issues := []models.Issue{
		{Kind: models.IssueAccessErrors, Severity: models.SeverityMedium, Location: "primary", Count: 1, Message: "1 directories could not be accessed"},
	}
	return results, summary, issues
}

func TestTextReportSections(t *testing.T) {
	results, summary, issues := sampleResults()
	text := newTestGenerator().Text(results, summary, issues)

	for _, want := range []string{
		"BACKUP MONITORING REPORT",
		"EXECUTIVE SUMMARY",
		"LOCATION: primary",
		"ISSUES",
		"[MEDIUM] 1 directories could not be accessed",
		"RECENT ACTIVITY",
		"dump.sql",
		"daily",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("text report missing %q:\n%s", want, text)
		}
	}

	if !strings.Contains(text, "ERROR: permission denied") {
		t.Fatalf("error directory not rendered:\n%s", text)
	}
}

func TestHTMLReport(t *testing.T) {
	results, summary, issues := sampleResults()
	html, err := newTestGenerator().HTML(results, summary, issues)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"<title>Backup Monitoring Report</title>",
		"primary",
		"dump.sql",
		"issue-medium",
		"permission denied",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("html report missing %q", want)
		}
	}
}

func TestHTMLReportEscapesContent(t *testing.T) {
	results := models.ScanResults{
		"<script>alert(1)</script>": {
			{Path: "/backup/a", FileCount: 1},
		},
	}
	html, err := newTestGenerator().HTML(results, models.AnalysisSummary{TotalLocations: 1}, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Fatal("location name was not escaped")
	}
}

func TestGroupTopLevelMergesNestedEntries(t *testing.T) {
	newer := testNow.Add(-time.Hour)
	older := testNow.Add(-48 * time.Hour)
	stats := []models.DirectoryStats{
		{Path: "/backup/db", FileCount: 2, TotalSize: 100, MostRecent: &models.FileEntry{Name: "old", ModifiedTime: older}},
		{Path: "/backup/db/hourly", FileCount: 4, TotalSize: 300, MostRecent: &models.FileEntry{Name: "new", ModifiedTime: newer}},
		{Path: "/backup/media", FileCount: 1, TotalSize: 50, MostRecent: &models.FileEntry{Name: "pic", ModifiedTime: older}},
	}

	groups := groupTopLevel("/backup", stats)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %+v", len(groups), groups)
	}
	// Most recently active group sorts first.
	db := groups[0]
	if db.Name != "db" {
		t.Fatalf("expected db group first, got %q", db.Name)
	}
	if db.FileCount != 6 || db.TotalSize != 400 {
		t.Fatalf("nested entries not merged: %+v", db)
	}
	if db.MostRecent == nil || db.MostRecent.Name != "new" {
		t.Fatalf("recency not merged: %+v", db.MostRecent)
	}
}

func TestSaverWritesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	enabled := true
	saver := NewSaver(config.ReportsConfig{
		SaveLocal:      &enabled,
		LocalDirectory: dir,
		RetentionDays:  7,
	}, zerolog.Nop())

	stale := filepath.Join(dir, "backup_report_old.txt")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale report: %v", err)
	}
	oldTime := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(stale, oldTime, oldTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	written, err := saver.Save(map[string]string{"txt": "text body", "html": "<html></html>"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected 2 files written, got %v", written)
	}
	for _, path := range written {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("written report missing: %v", err)
		}
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("report older than retention must be pruned")
	}
}

func TestSaverDisabled(t *testing.T) {
	disabled := false
	saver := NewSaver(config.ReportsConfig{SaveLocal: &disabled, LocalDirectory: t.TempDir()}, zerolog.Nop())

	written, err := saver.Save(map[string]string{"txt": "body"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if written != nil {
		t.Fatalf("disabled saver must write nothing, got %v", written)
	}
}
