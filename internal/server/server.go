// Package server exposes the reporter over HTTP and drives the daily
// schedule.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/standup"
)

// Server runs the HTTP trigger endpoints and the cron schedule.
type Server struct {
	app        *standup.Application
	logger     *slog.Logger
	cron       *cron.Cron
	httpServer *http.Server
}

func New(app *standup.Application, addr, cronSpec string) (*Server, error) {
	s := &Server{
		app:    app,
		logger: app.Logger,
		cron:   cron.New(cron.WithLocation(app.Location())),
	}

	if cronSpec != "" {
		if _, err := s.cron.AddFunc(cronSpec, s.scheduledRun); err != nil {
			return nil, err
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/manual-trigger", s.handleManualTrigger)
	mux.HandleFunc("/check-working-day", s.handleCheckWorkingDay)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Start runs the schedule and blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.cron.Start()
	s.logger.Info("server listening", "addr", s.httpServer.Addr)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	<-s.cron.Stop().Done()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) scheduledRun() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	s.logger.Info("scheduled standup run triggered")
	if err := s.app.RunScheduled(ctx); err != nil {
		s.logger.Error("scheduled standup run failed", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// handleManualTrigger runs the full pipeline for today, bypassing the
// working-day gate: whoever pushes the button wants a report.
func (s *Server) handleManualTrigger(w http.ResponseWriter, r *http.Request) {
	text, err := s.app.RunReport(r.Context(), s.app.Today())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "standup report generated and delivered",
		"report":  text,
	})
}

func (s *Server) handleCheckWorkingDay(w http.ResponseWriter, r *http.Request) {
	working, err := s.app.CheckWorkingDay(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	message := "today is a working day"
	if !working {
		message = "today is a non-working day"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"is_working_day": working,
		"message":        message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
