/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package monitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/config"
	"github.com/friendsincode/muninn/internal/events"
	"github.com/friendsincode/muninn/internal/models"
)

func testMonitorConfig(locations ...models.Location) *config.Config {
	return &config.Config{
		Locations: locations,
		Monitoring: config.MonitoringConfig{
			MaxDepth:    3,
			DaysBack:    7,
			MaxDirs:     200,
			Concurrency: 2,
		},
	}
}

func seedBackupDir(t *testing.T, age time.Duration) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "nightly")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := filepath.Join(dir, "dump.tar")
	if err := os.WriteFile(file, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	at := time.Now().Add(-age)
	for _, p := range []string{file, dir} {
		if err := os.Chtimes(p, at, at); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	return root
}

func TestRunScansStandaloneLocations(t *testing.T) {
	rootA := seedBackupDir(t, time.Hour)
	rootB := seedBackupDir(t, 2*time.Hour)

	cfg := testMonitorConfig(
		models.Location{Name: "alpha", Path: rootA, Kind: models.LocationLocal},
		models.Location{Name: "beta", Path: rootB, Kind: models.LocationLocal},
	)

	m := New(cfg, events.NewBus(), zerolog.Nop())
	run := m.Run(context.Background())

	if len(run.Results) != 2 {
		t.Fatalf("expected results for 2 locations, got %d", len(run.Results))
	}
	for _, name := range []string{"alpha", "beta"} {
		stats, ok := run.Results[name]
		if !ok || len(stats) == 0 {
			t.Fatalf("missing results for %s", name)
		}
	}
	if run.Summary.TotalLocations != 2 {
		t.Fatalf("summary locations = %d, want 2", run.Summary.TotalLocations)
	}
	if run.Summary.TotalFiles != 2 {
		t.Fatalf("summary files = %d, want 2", run.Summary.TotalFiles)
	}
	if len(run.LocationSummaries) != 2 {
		t.Fatalf("expected 2 location summaries, got %d", len(run.LocationSummaries))
	}
	if run.FinishedAt.Before(run.StartedAt) {
		t.Fatal("finished before started")
	}
}

func TestRunFailoverGroupKeyedByActiveMember(t *testing.T) {
	fresh := seedBackupDir(t, time.Hour)
	stale := seedBackupDir(t, 60*24*time.Hour)

	cfg := testMonitorConfig(
		models.Location{Name: "primary", Path: stale, Kind: models.LocationLocal, FailoverGroup: "main"},
		models.Location{Name: "secondary", Path: fresh, Kind: models.LocationLocal, FailoverGroup: "main"},
	)

	m := New(cfg, events.NewBus(), zerolog.Nop())
	run := m.Run(context.Background())

	if len(run.Results) != 1 {
		t.Fatalf("a failover group yields one result entry, got %d", len(run.Results))
	}
	if _, ok := run.Results["secondary"]; !ok {
		t.Fatalf("expected results keyed under the fresh member, got keys %v", keys(run.Results))
	}
}

func TestRunFailoverGroupAllMissing(t *testing.T) {
	base := t.TempDir()
	cfg := testMonitorConfig(
		models.Location{Name: "primary", Path: filepath.Join(base, "gone1"), Kind: models.LocationLocal, FailoverGroup: "main"},
		models.Location{Name: "secondary", Path: filepath.Join(base, "gone2"), Kind: models.LocationLocal, FailoverGroup: "main"},
	)

	m := New(cfg, events.NewBus(), zerolog.Nop())
	run := m.Run(context.Background())

	stats, ok := run.Results["No Active Location (main)"]
	if !ok {
		t.Fatalf("expected placeholder entry, got keys %v", keys(run.Results))
	}
	if len(stats) != 1 || !stats[0].HasError() {
		t.Fatalf("expected one error entry, got %+v", stats)
	}
}

func TestRunLoneTaggedLocationIsStandalone(t *testing.T) {
	root := seedBackupDir(t, time.Hour)
	cfg := testMonitorConfig(
		models.Location{Name: "solo", Path: root, Kind: models.LocationLocal, FailoverGroup: "orphan"},
	)

	m := New(cfg, events.NewBus(), zerolog.Nop())
	run := m.Run(context.Background())

	if _, ok := run.Results["solo"]; !ok {
		t.Fatalf("lone tagged location must scan under its own name, got keys %v", keys(run.Results))
	}
}

func TestScanLocationUnknownKind(t *testing.T) {
	cfg := testMonitorConfig()
	m := New(cfg, events.NewBus(), zerolog.Nop())

	stats := m.scanLocation(context.Background(), models.Location{
		Name: "remote", Path: "/remote", Kind: "sftp",
	})

	if len(stats) != 1 || !strings.Contains(stats[0].ErrorMessage, "unknown location type: sftp") {
		t.Fatalf("expected unknown-type error entry, got %+v", stats)
	}
}

func TestScanLocationDepthOverride(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "l1", "l2", "l3")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg := testMonitorConfig()
	m := New(cfg, events.NewBus(), zerolog.Nop())

	shallow := m.scanLocation(context.Background(), models.Location{
		Name: "loc", Path: root, Kind: models.LocationLocal, MaxDepth: 2,
	})
	if len(shallow) != 1 {
		t.Fatalf("depth override 2 should only see the top level, got %d entries", len(shallow))
	}

	deepScan := m.scanLocation(context.Background(), models.Location{
		Name: "loc", Path: root, Kind: models.LocationLocal,
	})
	if len(deepScan) != 2 {
		t.Fatalf("global depth 3 should see two levels below the root, got %d entries", len(deepScan))
	}
}

func TestRunPublishesEvents(t *testing.T) {
	root := seedBackupDir(t, time.Hour)
	cfg := testMonitorConfig(
		models.Location{Name: "alpha", Path: root, Kind: models.LocationLocal},
	)

	bus := events.NewBus()
	completed := bus.Subscribe(events.EventScanCompleted)

	m := New(cfg, bus, zerolog.Nop())

	done := make(chan events.Payload, 1)
	go func() {
		done <- <-completed
	}()

	m.Run(context.Background())

	select {
	case payload := <-done:
		if payload["locations"] == nil {
			t.Fatalf("completion payload missing locations: %+v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no scan.completed event published")
	}
}

func keys(results models.ScanResults) []string {
	out := make([]string, 0, len(results))
	for k := range results {
		out = append(out, k)
	}
	return out
}
