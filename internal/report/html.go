/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package report

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/friendsincode/muninn/internal/models"
)

const maxHTMLRows = 15

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Backup Monitoring Report</title>
<style>
body { font-family: 'Segoe UI', Arial, sans-serif; margin: 0; background: #f4f6f8; color: #2c3e50; }
.container { max-width: 960px; margin: 0 auto; padding: 24px; }
.header { background: #2c3e50; color: #fff; padding: 24px; border-radius: 6px 6px 0 0; }
.header h1 { margin: 0 0 4px 0; font-size: 22px; }
.header p { margin: 0; opacity: 0.8; font-size: 13px; }
.summary { display: flex; flex-wrap: wrap; gap: 12px; padding: 20px; background: #fff; }
.stat { flex: 1 1 120px; text-align: center; padding: 12px; background: #ecf0f1; border-radius: 4px; }
.stat .value { font-size: 20px; font-weight: bold; }
.stat .label { font-size: 11px; text-transform: uppercase; color: #7f8c8d; }
.section { background: #fff; padding: 20px; margin-top: 2px; }
.section h2 { font-size: 16px; border-bottom: 2px solid #3498db; padding-bottom: 6px; }
table { width: 100%; border-collapse: collapse; font-size: 13px; }
th { text-align: left; background: #34495e; color: #fff; padding: 6px 8px; }
td { padding: 6px 8px; border-bottom: 1px solid #ecf0f1; }
.status-today { color: #27ae60; font-weight: bold; }
.status-recent { color: #2980b9; }
.status-week { color: #f39c12; }
.status-stale { color: #e74c3c; }
.status-unknown { color: #95a5a6; }
.issue { padding: 8px 12px; margin: 6px 0; border-radius: 4px; font-size: 13px; }
.issue-high { background: #fdecea; border-left: 4px solid #e74c3c; }
.issue-medium { background: #fef5e7; border-left: 4px solid #f39c12; }
.issue-low { background: #eaf2f8; border-left: 4px solid #3498db; }
.error-row { color: #e74c3c; }
.footer { padding: 16px 20px; font-size: 11px; color: #7f8c8d; text-align: center; }
</style>
</head>
<body>
<div class="container">
<div class="header">
<h1>Backup Monitoring Report</h1>
<p>Generated {{.GeneratedAt}}</p>
</div>
<div class="summary">
<div class="stat"><div class="value">{{.Summary.TotalLocations}}</div><div class="label">Locations</div></div>
<div class="stat"><div class="value">{{.Summary.TotalDirectories}}</div><div class="label">Directories</div></div>
<div class="stat"><div class="value">{{.Summary.TotalFiles}}</div><div class="label">Files</div></div>
<div class="stat"><div class="value">{{.TotalSize}}</div><div class="label">Total Size</div></div>
<div class="stat"><div class="value">{{.Health}}</div><div class="label">Health</div></div>
</div>
{{if .Issues}}
<div class="section">
<h2>Issues</h2>
{{range .Issues}}<div class="issue issue-{{.Severity}}">{{.Message}}</div>
{{end}}</div>
{{end}}
{{range .Locations}}
<div class="section">
<h2>{{.Name}}</h2>
{{if .Rows}}
<table>
<tr><th>Directory</th><th>Files</th><th>Size</th><th>Status</th><th>Last Modified</th></tr>
{{range .Rows}}{{if .Error}}<tr class="error-row"><td>{{.Directory}}</td><td colspan="4">{{.Error}}</td></tr>
{{else}}<tr><td>{{.Directory}}</td><td>{{.Files}}</td><td>{{.Size}}</td><td class="{{.StatusClass}}">{{.Status}}</td><td>{{.Modified}}</td></tr>
{{end}}{{end}}</table>
{{if .Truncated}}<p>Showing {{len .Rows}} most recently active directories.</p>{{end}}
{{else}}
<p>No directories scanned.</p>
{{end}}
</div>
{{end}}
{{if .Recent}}
<div class="section">
<h2>Recent Activity</h2>
<table>
<tr><th>Modified</th><th>Location</th><th>File</th><th>Size</th></tr>
{{range .Recent}}<tr><td>{{.Modified}}</td><td>{{.Location}}</td><td>{{.Name}}</td><td>{{.Size}}</td></tr>
{{end}}</table>
</div>
{{end}}
<div class="footer">muninn backup monitor</div>
</div>
</body>
</html>
`))

type htmlRow struct {
	Directory   string
	Files       int
	Size        string
	Status      string
	StatusClass string
	Modified    string
	Error       string
}

type htmlLocation struct {
	Name      string
	Rows      []htmlRow
	Truncated bool
}

type htmlRecent struct {
	Modified string
	Location string
	Name     string
	Size     string
}

type htmlData struct {
	GeneratedAt string
	Summary     models.AnalysisSummary
	TotalSize   string
	Health      string
	Issues      []models.Issue
	Locations   []htmlLocation
	Recent      []htmlRecent
}

// statusClass maps an activity age to a style class.
func statusClass(modified *time.Time, now time.Time) string {
	if modified == nil {
		return "status-unknown"
	}
	daysOld := int(now.Sub(*modified).Hours() / 24)
	switch {
	case daysOld <= 1:
		return "status-today"
	case daysOld <= 7:
		return "status-recent"
	case daysOld <= 30:
		return "status-week"
	default:
		return "status-stale"
	}
}

// HTML renders the report as a standalone HTML document.
func (g *Generator) HTML(results models.ScanResults, summary models.AnalysisSummary, issues []models.Issue) (string, error) {
	now := g.now()

	data := htmlData{
		GeneratedAt: FormatDate(now, false),
		Summary:     summary,
		TotalSize:   FormatSize(summary.TotalSize),
		Health:      fmt.Sprintf("%.1f%%", summary.HealthPercentage),
		Issues:      issues,
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		stats := results[name]
		loc := htmlLocation{Name: name}
		groups := groupTopLevel(rootPath(stats), stats)
		if len(groups) > maxHTMLRows {
			groups = groups[:maxHTMLRows]
			loc.Truncated = true
		}
		for _, grp := range groups {
			if grp.ErrorCount > 0 && grp.FileCount == 0 && grp.MostRecent == nil {
				loc.Rows = append(loc.Rows, htmlRow{
					Directory: grp.Name,
					Error:     strings.Join(grp.Errors, "; "),
				})
				continue
			}
			var modPtr *time.Time
			modified := "unknown"
			if grp.MostRecent != nil {
				modPtr = &grp.MostRecent.ModifiedTime
				modified = FormatDate(grp.MostRecent.ModifiedTime, true)
			}
			loc.Rows = append(loc.Rows, htmlRow{
				Directory:   grp.Name,
				Files:       grp.FileCount,
				Size:        FormatSize(grp.TotalSize),
				Status:      ActivityIndicator(modPtr, now),
				StatusClass: statusClass(modPtr, now),
				Modified:    modified,
			})
		}
		data.Locations = append(data.Locations, loc)
	}

	recent := summary.RecentActivity
	if len(recent) > maxRecentActivity {
		recent = recent[:maxRecentActivity]
	}
	for _, rec := range recent {
		data.Recent = append(data.Recent, htmlRecent{
			Modified: FormatDate(rec.ModifiedTime, true),
			Location: rec.Location,
			Name:     rec.Name,
			Size:     FormatSize(rec.Size),
		})
	}

	var b strings.Builder
	if err := htmlTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering html report: %w", err)
	}
	return b.String(), nil
}
