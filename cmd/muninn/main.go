/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/muninn/internal/config"
	"github.com/friendsincode/muninn/internal/db"
	"github.com/friendsincode/muninn/internal/events"
	"github.com/friendsincode/muninn/internal/history"
	"github.com/friendsincode/muninn/internal/logging"
	"github.com/friendsincode/muninn/internal/monitor"
	"github.com/friendsincode/muninn/internal/notifications"
	"github.com/friendsincode/muninn/internal/report"
	"github.com/friendsincode/muninn/internal/server"
	"github.com/friendsincode/muninn/internal/telemetry"
	"github.com/friendsincode/muninn/internal/version"
)

var (
	logger  zerolog.Logger
	cfg     *config.Config
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "muninn",
	Short: "Muninn - Backup directory monitoring",
	Long:  "Muninn watches backup locations, analyzes recent activity, and reports on backup health.",
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan all configured backup locations",
	Long:  "Scan configured backup locations, analyze the results, and print a report",
	RunE:  runScan,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate and deliver backup reports",
	Long:  "Run a scan, render text and HTML reports, save them locally, and optionally email them",
	RunE:  runReport,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Muninn status server",
	Long:  "Start the HTTP status server with the latest report, JSON summaries, and Prometheus metrics",
	RunE:  runServe,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scan runs",
	RunE:  runHistory,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the muninn version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("muninn %s\n", version.Version)
	},
}

var (
	scanOutput   string
	reportEmail  bool
	historyLimit int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "text", "output format: text or json")
	reportCmd.Flags().BoolVar(&reportEmail, "email", false, "email the report to the configured recipients")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	mon := monitor.New(cfg, events.NewBus(), logger)
	run := mon.Run(ctx)

	switch scanOutput {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}
	case "text":
		gen := report.NewGenerator()
		fmt.Print(gen.Text(run.Results, run.Summary, run.Issues))
	default:
		return fmt.Errorf("unknown output format: %s", scanOutput)
	}

	return recordRun(ctx, run)
}

func runReport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	mon := monitor.New(cfg, events.NewBus(), logger)
	run := mon.Run(ctx)

	gen := report.NewGenerator()
	text := gen.Text(run.Results, run.Summary, run.Issues)
	html, err := gen.HTML(run.Results, run.Summary, run.Issues)
	if err != nil {
		return fmt.Errorf("render html report: %w", err)
	}

	formats := map[string]string{}
	switch cfg.Reports.Format {
	case "text":
		formats["txt"] = text
	case "html":
		formats["html"] = html
	default:
		formats["txt"] = text
		formats["html"] = html
	}

	saver := report.NewSaver(cfg.Reports, logger)
	written, err := saver.Save(formats)
	if err != nil {
		return fmt.Errorf("save reports: %w", err)
	}
	for _, path := range written {
		fmt.Printf("report written: %s\n", path)
	}

	if reportEmail {
		svc := notifications.NewService(cfg.Email, logger)
		subject := svc.Subject(run.Summary, len(run.Issues))
		if err := svc.SendReport(ctx, subject, text, html); err != nil {
			return fmt.Errorf("email report: %w", err)
		}
		fmt.Printf("report emailed to %d recipient(s)\n", len(cfg.Email.ToAddresses))
	}

	return recordRun(ctx, run)
}

// recordRun persists a finished run when history is enabled.
func recordRun(ctx context.Context, run monitor.RunResult) error {
	if !cfg.History.Enabled {
		return nil
	}

	gormDB, err := db.Connect(cfg.History)
	if err != nil {
		return fmt.Errorf("connect history store: %w", err)
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			logger.Error().Err(err).Msg("closing history store failed")
		}
	}()

	store := history.NewStore(gormDB, logger)
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate history store: %w", err)
	}
	if _, err := store.RecordRun(ctx, run.StartedAt, run.Summary, run.LocationSummaries, run.Issues); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if cfg.History.RetentionDays > 0 {
		if err := store.Prune(ctx, cfg.History.RetentionDays); err != nil {
			logger.Warn().Err(err).Msg("history pruning failed")
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Msg("muninn starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "muninn",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		Enabled:        cfg.Tracing.Enabled,
		SampleRate:     cfg.Tracing.SampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}
	srv.Start()

	scanCtx, stopScans := context.WithCancel(context.Background())
	defer stopScans()

	// Run an initial scan so the status endpoints have data, then
	// rescan on the configured cadence.
	go func() {
		if _, err := srv.RunScan(scanCtx); err != nil {
			logger.Error().Err(err).Msg("initial scan failed")
		}

		interval := cfg.Server.ScanInterval()
		if interval <= 0 {
			logger.Info().Msg("periodic scans disabled")
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-scanCtx.Done():
				return
			case <-ticker.C:
				if _, err := srv.RunScan(scanCtx); err != nil {
					logger.Error().Err(err).Msg("scheduled scan failed")
				}
			}
		}
	}()

	httpServer := srv.HTTPServer()

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr()).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")
	stopScans()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if err := srv.Close(); err != nil {
		logger.Error().Err(err).Msg("shutdown cleanup failed")
	}

	logger.Info().Msg("muninn stopped")
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history is not enabled in the configuration")
	}

	ctx, cancel := signalContext()
	defer cancel()

	gormDB, err := db.Connect(cfg.History)
	if err != nil {
		return fmt.Errorf("connect history store: %w", err)
	}
	defer func() {
		if err := db.Close(gormDB); err != nil {
			logger.Error().Err(err).Msg("closing history store failed")
		}
	}()

	store := history.NewStore(gormDB, logger)
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate history store: %w", err)
	}

	runs, err := store.ListRuns(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	fmt.Printf("%-36s %-20s %10s %10s %8s %7s\n", "Run ID", "Started", "Dirs", "Files", "Health", "Issues")
	for _, r := range runs {
		fmt.Printf("%-36s %-20s %10d %10d %7.1f%% %7d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"),
			r.TotalDirectories, r.TotalFiles, r.HealthPercentage, r.IssueCount)
	}
	return nil
}
