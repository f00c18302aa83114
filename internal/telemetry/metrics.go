/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ScanDuration tracks how long a single location scan takes.
	ScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "muninn",
		Name:      "scan_duration_seconds",
		Help:      "Duration of a single location scan",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"location"})

	// DirectoriesScanned counts directories collected per location.
	DirectoriesScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muninn",
		Name:      "directories_scanned_total",
		Help:      "Directories collected during scans",
	}, []string{"location"})

	// ScanErrors counts error-tagged directory entries.
	ScanErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muninn",
		Name:      "scan_errors_total",
		Help:      "Error-tagged directory entries produced during scans",
	}, []string{"location"})

	// IssuesDetected counts issues by severity.
	IssuesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "muninn",
		Name:      "issues_detected_total",
		Help:      "Issues flagged by the analyzer",
	}, []string{"severity"})

	// HealthPercentage reports the health of the most recent run.
	HealthPercentage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "muninn",
		Name:      "health_percentage",
		Help:      "Fraction of healthy directories in the last run, 0-100",
	})

	// RunsTotal counts completed monitoring runs.
	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "muninn",
		Name:      "runs_total",
		Help:      "Completed monitoring runs",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
