/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package monitor coordinates a monitoring run: it partitions configured
// locations into standalone targets and failover groups, scans them
// through a bounded worker pool, and hands the merged results to the
// analyzer.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/friendsincode/muninn/internal/analyzer"
	"github.com/friendsincode/muninn/internal/config"
	"github.com/friendsincode/muninn/internal/events"
	"github.com/friendsincode/muninn/internal/failover"
	"github.com/friendsincode/muninn/internal/models"
	"github.com/friendsincode/muninn/internal/scanner"
	"github.com/friendsincode/muninn/internal/telemetry"
)

const tracerName = "muninn/monitor"

// RunResult bundles everything one monitoring run produced.
type RunResult struct {
	StartedAt         time.Time
	FinishedAt        time.Time
	Results           models.ScanResults
	Summary           models.AnalysisSummary
	LocationSummaries map[string]models.LocationSummary
	Issues            []models.Issue
}

// Monitor is the top level coordinator.
type Monitor struct {
	cfg      *config.Config
	backends map[models.LocationKind]Backend
	selector *failover.Selector
	analyzer *analyzer.Analyzer
	bus      *events.Bus
	logger   zerolog.Logger
}

// New wires the monitor with its scanner, selector, and analyzer.
func New(cfg *config.Config, bus *events.Bus, logger zerolog.Logger) *Monitor {
	local := &localBackend{scanner: scanner.New(logger)}
	return &Monitor{
		cfg: cfg,
		backends: map[models.LocationKind]Backend{
			models.LocationLocal: local,
		},
		selector: failover.NewSelector(local, logger),
		analyzer: analyzer.New(cfg.Monitoring.DaysBack, logger),
		bus:      bus,
		logger:   logger.With().Str("component", "monitor").Logger(),
	}
}

// Run scans all locations and analyzes the merged results.
func (m *Monitor) Run(ctx context.Context) RunResult {
	startedAt := time.Now()

	results := m.ScanAll(ctx)
	summary := m.analyzer.Analyze(results)
	issues := m.analyzer.FindIssues(results)

	locationSummaries := make(map[string]models.LocationSummary, len(results))
	for name, stats := range results {
		locationSummaries[name] = m.analyzer.SummarizeLocation(stats)
	}

	telemetry.RunsTotal.Inc()
	telemetry.HealthPercentage.Set(summary.HealthPercentage)
	for _, issue := range issues {
		telemetry.IssuesDetected.WithLabelValues(string(issue.Severity)).Inc()
		m.bus.Publish(events.EventIssueDetected, events.Payload{
			"kind":     string(issue.Kind),
			"severity": string(issue.Severity),
			"location": issue.Location,
			"message":  issue.Message,
		})
	}

	m.bus.Publish(events.EventScanCompleted, events.Payload{
		"locations":   summary.TotalLocations,
		"directories": summary.TotalDirectories,
		"issues":      len(issues),
		"health":      summary.HealthPercentage,
	})

	return RunResult{
		StartedAt:         startedAt,
		FinishedAt:        time.Now(),
		Results:           results,
		Summary:           summary,
		LocationSummaries: locationSummaries,
		Issues:            issues,
	}
}

// scanUnit is one independent piece of work for the pool: either a
// standalone location or a whole failover group.
type scanUnit struct {
	name string
	run  func(ctx context.Context) (string, []models.DirectoryStats)
}

// ScanAll scans every configured location and returns the merged mapping
// of location name to directory statistics. Locations are independent and
// read-only, so they run concurrently up to the configured limit; results
// merge behind a single mutex.
func (m *Monitor) ScanAll(ctx context.Context) models.ScanResults {
	groups, standalone := failover.GroupLocations(m.cfg.Locations)

	m.logger.Info().
		Int("locations", len(m.cfg.Locations)).
		Int("standalone", len(standalone)).
		Int("failover_groups", len(groups)).
		Msg("starting scan of all backup locations")

	m.bus.Publish(events.EventScanStarted, events.Payload{
		"locations": len(m.cfg.Locations),
	})

	var units []scanUnit
	for _, loc := range standalone {
		loc := loc
		units = append(units, scanUnit{
			name: loc.Name,
			run: func(ctx context.Context) (string, []models.DirectoryStats) {
				return loc.Name, m.scanLocation(ctx, loc)
			},
		})
	}

	groupNames := make([]string, 0, len(groups))
	for name := range groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)
	for _, groupName := range groupNames {
		groupName := groupName
		members := groups[groupName]
		units = append(units, scanUnit{
			name: "failover:" + groupName,
			run: func(ctx context.Context) (string, []models.DirectoryStats) {
				return m.scanFailoverGroup(ctx, groupName, members)
			},
		})
	}

	workers := m.cfg.Monitoring.Concurrency
	if workers > len(units) {
		workers = len(units)
	}
	if workers < 1 {
		workers = 1
	}

	results := make(models.ScanResults, len(units))
	var mu sync.Mutex
	jobs := make(chan scanUnit)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for unit := range jobs {
				spanCtx, span := telemetry.Tracer(tracerName).Start(ctx, "scan_unit",
					trace.WithAttributes(attribute.String("unit", unit.name)))

				started := time.Now()
				name, stats := unit.run(spanCtx)
				telemetry.ScanDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())

				errorCount := 0
				for _, st := range stats {
					if st.HasError() {
						errorCount++
					}
				}
				telemetry.DirectoriesScanned.WithLabelValues(name).Add(float64(len(stats)))
				telemetry.ScanErrors.WithLabelValues(name).Add(float64(errorCount))
				span.End()

				mu.Lock()
				results[name] = stats
				mu.Unlock()

				m.bus.Publish(events.EventLocationScanned, events.Payload{
					"location":    name,
					"directories": len(stats),
					"errors":      errorCount,
				})
			}
		}()
	}

	for _, unit := range units {
		jobs <- unit
	}
	close(jobs)
	wg.Wait()

	return results
}

// scanLocation scans one location with an immutable per-call configuration;
// a per-location depth override never leaks into other scans.
func (m *Monitor) scanLocation(ctx context.Context, loc models.Location) []models.DirectoryStats {
	backend, ok := m.backends[loc.Kind]
	if !ok {
		m.logger.Error().Str("location", loc.Name).Str("type", string(loc.Kind)).Msg("unknown location type")
		return []models.DirectoryStats{
			models.ErrorStats(loc.Path, fmt.Sprintf("unknown location type: %s", loc.Kind)),
		}
	}

	cfg := scanner.Config{
		MaxDepth:        m.cfg.Monitoring.MaxDepth,
		MaxDirs:         m.cfg.Monitoring.MaxDirs,
		FileSizeLimitMB: m.cfg.Monitoring.FileSizeLimitMB,
		Timeout:         m.cfg.Monitoring.Timeout(),
	}
	if loc.MaxDepth > 0 {
		cfg.MaxDepth = loc.MaxDepth
	}

	m.logger.Info().Str("location", loc.Name).Str("path", loc.Path).Msg("scanning location")
	return backend.Scan(ctx, loc.Path, loc.ExcludePatterns, cfg)
}

// scanFailoverGroup picks the live member of a group and scans it. When no
// member is accessible the group is represented by a single placeholder
// error entry under a synthetic name.
func (m *Monitor) scanFailoverGroup(ctx context.Context, group string, members []models.Location) (string, []models.DirectoryStats) {
	m.logger.Info().Str("group", group).Int("members", len(members)).Msg("processing failover group")

	active := m.selector.SelectActive(members)
	if active == nil {
		m.logger.Warn().Str("group", group).Msg("no active location found in failover group")
		return failover.PlaceholderName(group), failover.PlaceholderResult(group)
	}

	m.logger.Info().Str("group", group).Str("location", active.Name).Msg("active location selected")
	return active.Name, m.scanLocation(ctx, *active)
}
