// Package api serves stored runs over HTTP. Every endpoint is a read-only GET.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/talgya/epicity/internal/engine"
	"github.com/talgya/epicity/internal/persistence"
	"github.com/talgya/epicity/internal/report"
)

// Server serves run results from the database.
type Server struct {
	DB   *persistence.DB
	Port int

	// CurveLimit bounds PNG renders per client per hour; 0 uses the default.
	CurveLimit int
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	limit := s.CurveLimit
	if limit <= 0 {
		limit = 120
	}
	curveLimiter := NewRateLimiter(limit, time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/runs/{run}/cities", s.handleCities)
	mux.HandleFunc("GET /api/v1/runs/{run}/cities/{city}/states", s.handleStates)
	mux.HandleFunc("GET /api/v1/runs/{run}/cities/{city}/curve.png", RateLimitMiddleware(curveLimiter, s.handleCurve))
	return corsMiddleware(mux)
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("HTTP API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// CORS_ORIGINS holds a comma-separated allow list; localhost dev servers are
// always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.DB.Runs()
	if err != nil {
		serverError(w, "list runs", err)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	recs, err := s.DB.Cities(r.PathValue("run"))
	if err != nil {
		serverError(w, "list cities", err)
		return
	}
	if len(recs) == 0 {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, recs)
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.loadStates(w, r)
	if !ok {
		return
	}
	writeJSON(w, rows)
}

func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.loadStates(w, r)
	if !ok {
		return
	}

	series := &engine.Series{Name: r.PathValue("city"), N: rows[0].Total}
	for _, row := range rows {
		series.Record(row.Tick, row.States, row.Beta)
	}

	var buf bytes.Buffer
	if err := report.RenderCurves(&buf, series); err != nil {
		if errors.Is(err, report.ErrTooShort) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		serverError(w, "render curve", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("curve write failed", "error", err)
	}
}

func (s *Server) loadStates(w http.ResponseWriter, r *http.Request) ([]persistence.StateRow, bool) {
	rows, err := s.DB.States(r.PathValue("run"), r.PathValue("city"))
	if err != nil {
		serverError(w, "load states", err)
		return nil, false
	}
	if len(rows) == 0 {
		http.Error(w, "city not found", http.StatusNotFound)
		return nil, false
	}
	return rows, true
}

func serverError(w http.ResponseWriter, op string, err error) {
	slog.Error("api request failed", "op", op, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("response write failed", "error", err)
	}
}
