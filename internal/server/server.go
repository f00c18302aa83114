/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server exposes the status HTTP surface: latest report, JSON
// summaries, scan trigger, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/config"
	"github.com/friendsincode/muninn/internal/db"
	"github.com/friendsincode/muninn/internal/events"
	"github.com/friendsincode/muninn/internal/history"
	"github.com/friendsincode/muninn/internal/models"
	"github.com/friendsincode/muninn/internal/monitor"
	"github.com/friendsincode/muninn/internal/notifications"
	"github.com/friendsincode/muninn/internal/report"
	"github.com/friendsincode/muninn/internal/telemetry"
)

// snapshot holds the outcome of the most recent run.
type snapshot struct {
	Run  monitor.RunResult
	Text string
	HTML string
}

// Server bundles the HTTP surface and the monitoring services behind it.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server

	bus      *events.Bus
	monitor  *monitor.Monitor
	reports  *report.Generator
	saver    *report.Saver
	notifier *notifications.Service
	store    *history.Store
	closers  []func() error

	mu     sync.RWMutex
	latest *snapshot

	scanMu sync.Mutex

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New wires the monitor, report pipeline, and optional history store
// behind a chi router.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	bus := events.NewBus()

	s := &Server{
		cfg:      cfg,
		logger:   logger.With().Str("component", "server").Logger(),
		router:   router,
		bus:      bus,
		monitor:  monitor.New(cfg, bus, logger),
		reports:  report.NewGenerator(),
		saver:    report.NewSaver(cfg.Reports, logger),
		notifier: notifications.NewService(cfg.Email, logger),
	}

	if cfg.History.Enabled {
		gormDB, err := db.Connect(cfg.History)
		if err != nil {
			return nil, err
		}
		s.store = history.NewStore(gormDB, logger)
		if err := s.store.Migrate(); err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { return db.Close(gormDB) })
	}

	s.routes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	}
	return s, nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Start launches background workers: the email subscriber that sends a
// report after each completed run.
func (s *Server) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.cfg.Email.Enabled {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.emailLoop(ctx)
		}()
	}
}

// emailLoop emails the rendered report after every completed run.
func (s *Server) emailLoop(ctx context.Context) {
	completed := s.bus.Subscribe(events.EventScanCompleted)
	defer s.bus.Unsubscribe(events.EventScanCompleted, completed)

	for {
		select {
		case <-ctx.Done():
			return
		case <-completed:
			snap := s.snapshot()
			if snap == nil {
				continue
			}
			subject := s.notifier.Subject(snap.Run.Summary, len(snap.Run.Issues))
			if err := s.notifier.SendReport(ctx, subject, snap.Text, snap.HTML); err != nil {
				s.logger.Error().Err(err).Msg("report email failed")
				continue
			}
			s.bus.Publish(events.EventReportSent, events.Payload{
				"subject": subject,
				"issues":  len(snap.Run.Issues),
			})
		}
	}
}

// RunScan executes one monitoring run, renders and saves reports, and
// records the run in history. Concurrent triggers are serialized.
func (s *Server) RunScan(ctx context.Context) (monitor.RunResult, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	run := s.monitor.Run(ctx)

	text := s.reports.Text(run.Results, run.Summary, run.Issues)
	html, err := s.reports.HTML(run.Results, run.Summary, run.Issues)
	if err != nil {
		s.logger.Error().Err(err).Msg("html report rendering failed")
		html = ""
	}

	s.mu.Lock()
	s.latest = &snapshot{Run: run, Text: text, HTML: html}
	s.mu.Unlock()

	formats := map[string]string{"txt": text}
	if html != "" {
		formats["html"] = html
	}
	if _, err := s.saver.Save(formats); err != nil {
		s.logger.Error().Err(err).Msg("saving reports failed")
	}

	if s.store != nil {
		if _, err := s.store.RecordRun(ctx, run.StartedAt, run.Summary, run.LocationSummaries, run.Issues); err != nil {
			s.logger.Error().Err(err).Msg("recording run failed")
		} else if s.cfg.History.RetentionDays > 0 {
			if err := s.store.Prune(ctx, s.cfg.History.RetentionDays); err != nil {
				s.logger.Warn().Err(err).Msg("history pruning failed")
			}
		}
	}

	return run, nil
}

func (s *Server) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) routes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.router.Get("/", s.handleLatestReport)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Get("/issues", s.handleIssues)
		r.Get("/locations", s.handleLocations)
		r.Post("/scan", s.handleScan)
		r.Get("/runs", s.handleRuns)
	})
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil || snap.HTML == "" {
		http.Error(w, "no scan has completed yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(snap.HTML))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		writeError(w, http.StatusNotFound, "no_runs")
		return
	}
	writeJSON(w, http.StatusOK, snap.Run.Summary)
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		writeError(w, http.StatusNotFound, "no_runs")
		return
	}
	issues := snap.Run.Issues
	if issues == nil {
		issues = []models.Issue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		writeError(w, http.StatusNotFound, "no_runs")
		return
	}
	writeJSON(w, http.StatusOK, snap.Run.LocationSummaries)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	run, err := s.RunScan(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("scan trigger failed")
		writeError(w, http.StatusInternalServerError, "scan_failed")
		return
	}
	writeJSON(w, http.StatusOK, run.Summary)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history_disabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("listing runs failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// Close stops background workers and releases owned resources in
// reverse order.
func (s *Server) Close() error {
	if s.bgCancel != nil {
		s.bgCancel()
		s.bgWG.Wait()
	}
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
