/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package report renders scan results and analysis summaries into
// text and HTML reports, and manages locally saved report files.
package report

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/friendsincode/muninn/internal/models"
)

const maxRecentActivity = 20

// Generator renders reports from scan results and their analysis.
type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// dirGroup is one top-level directory of a location with all deeper
// entries merged into it.
type dirGroup struct {
	Name       string
	FileCount  int
	TotalSize  int64
	MostRecent *models.FileEntry
	ErrorCount int
	Errors     []string
}

// groupTopLevel merges scan entries into one row per top-level
// directory under root. Nested entries fold into their top-level
// ancestor; the root's own files fold into "(root)".
func groupTopLevel(root string, stats []models.DirectoryStats) []dirGroup {
	groups := make(map[string]*dirGroup)
	for _, st := range stats {
		rel := RelativePath(st.Path, root)
		name := "(root)"
		if rel != "." {
			name = strings.SplitN(rel, "/", 2)[0]
		}
		g, ok := groups[name]
		if !ok {
			g = &dirGroup{Name: name}
			groups[name] = g
		}
		g.FileCount += st.FileCount
		g.TotalSize += st.TotalSize
		if st.MostRecent != nil {
			if g.MostRecent == nil || st.MostRecent.ModifiedTime.After(g.MostRecent.ModifiedTime) {
				g.MostRecent = st.MostRecent
			}
		}
		if st.HasError() {
			g.ErrorCount++
			g.Errors = append(g.Errors, st.ErrorMessage)
		}
	}

	out := make([]dirGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := groupSortTime(out[i]), groupSortTime(out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func groupSortTime(g dirGroup) time.Time {
	if g.MostRecent == nil {
		return time.Time{}
	}
	return g.MostRecent.ModifiedTime
}

// rootPath derives the location root from the scanned paths. Scans
// list only subdirectories of the root, so the root is the parent of
// the shallowest entry. An error entry for an unscannable location
// carries the root path itself; its parent still groups it correctly.
func rootPath(stats []models.DirectoryStats) string {
	shortest := ""
	for _, st := range stats {
		if shortest == "" || len(st.Path) < len(shortest) {
			shortest = st.Path
		}
	}
	if shortest == "" {
		return ""
	}
	return filepath.Dir(shortest)
}

// Text renders a plain text report.
func (g *Generator) Text(results models.ScanResults, summary models.AnalysisSummary, issues []models.Issue) string {
	now := g.now()
	var b strings.Builder

	b.WriteString(strings.Repeat("=", 70) + "\n")
	b.WriteString("BACKUP MONITORING REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n", FormatDate(now, false))
	b.WriteString(strings.Repeat("=", 70) + "\n\n")

	b.WriteString("EXECUTIVE SUMMARY\n")
	b.WriteString(strings.Repeat("-", 70) + "\n")
	fmt.Fprintf(&b, "Locations monitored:   %d\n", summary.TotalLocations)
	fmt.Fprintf(&b, "Directories scanned:   %d\n", summary.TotalDirectories)
	fmt.Fprintf(&b, "Files found:           %d\n", summary.TotalFiles)
	fmt.Fprintf(&b, "Total size:            %s\n", FormatSize(summary.TotalSize))
	fmt.Fprintf(&b, "Empty directories:     %d\n", summary.EmptyDirectories)
	fmt.Fprintf(&b, "Scan errors:           %d\n", summary.ErrorDirectories)
	fmt.Fprintf(&b, "Health:                %.1f%%\n", summary.HealthPercentage)
	b.WriteString("\n")

	if len(issues) > 0 {
		b.WriteString("ISSUES\n")
		b.WriteString(strings.Repeat("-", 70) + "\n")
		for _, issue := range issues {
			fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(issue.Severity)), issue.Message)
		}
		b.WriteString("\n")
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		stats := results[name]
		b.WriteString(strings.Repeat("=", 70) + "\n")
		fmt.Fprintf(&b, "LOCATION: %s\n", name)
		b.WriteString(strings.Repeat("=", 70) + "\n")

		groups := groupTopLevel(rootPath(stats), stats)
		if len(groups) == 0 {
			b.WriteString("No directories scanned.\n\n")
			continue
		}

		fmt.Fprintf(&b, "%-32s %8s %10s %-10s %s\n", "Directory", "Files", "Size", "Activity", "Last Modified")
		b.WriteString(strings.Repeat("-", 70) + "\n")
		for _, grp := range groups {
			if grp.ErrorCount > 0 && grp.FileCount == 0 && grp.MostRecent == nil {
				fmt.Fprintf(&b, "%-32s ERROR: %s\n", Truncate(grp.Name, 32), Truncate(strings.Join(grp.Errors, "; "), 60))
				continue
			}
			var modPtr *time.Time
			modified := "unknown"
			if grp.MostRecent != nil {
				modPtr = &grp.MostRecent.ModifiedTime
				modified = FormatDate(grp.MostRecent.ModifiedTime, true)
			}
			fmt.Fprintf(&b, "%-32s %8d %10s %-10s %s\n",
				Truncate(grp.Name, 32), grp.FileCount, FormatSize(grp.TotalSize),
				ActivityIndicator(modPtr, now), modified)
		}
		b.WriteString("\n")
	}

	if len(summary.RecentActivity) > 0 {
		b.WriteString("RECENT ACTIVITY\n")
		b.WriteString(strings.Repeat("-", 70) + "\n")
		recent := summary.RecentActivity
		if len(recent) > maxRecentActivity {
			recent = recent[:maxRecentActivity]
		}
		for _, rec := range recent {
			fmt.Fprintf(&b, "%s  %-12s %s\n", FormatDate(rec.ModifiedTime, true), Truncate(rec.Location, 12), Truncate(rec.Name, 40))
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("=", 70) + "\n")
	b.WriteString("End of report\n")
	return b.String()
}
