// Package admin exposes the operational HTTP surface: a health check and an
// API-key-guarded endpoint that forces a boundary sweep, for deployments
// that drive the midnight check from an external cron.
package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cdr.dev/slog/v3"
	"github.com/coder/quartz"

	"github.com/fardannozami/ghostwatch/internal/domain"
)

// Sweeper is the part of the scheduler the admin server needs.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Reporter resolves the streak report for one tracked pair.
type Reporter interface {
	Execute(ctx context.Context, chatID, userID int64) (*domain.Report, error)
}

type Server struct {
	addr     string
	apiKey   string
	sweeper  Sweeper
	reporter Reporter
	clock    quartz.Clock
	logger   slog.Logger
	srv      *http.Server
}

func NewServer(addr, apiKey string, sweeper Sweeper, reporter Reporter, clock quartz.Clock, logger slog.Logger) *Server {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Server{addr: addr, apiKey: apiKey, sweeper: sweeper, reporter: reporter, clock: clock, logger: logger}
}

// ListenAndServe blocks until the server stops. Shutdown stops it cleanly.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /sweep", s.handleSweep)
	mux.HandleFunc("GET /report", s.handleReport)

	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeUnauthorized(w)
		return
	}

	if err := s.sweeper.Sweep(r.Context()); err != nil {
		s.logger.Error(r.Context(), "manual sweep failed", slog.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.clock.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeUnauthorized(w)
		return
	}

	chatID, err1 := strconv.ParseInt(r.URL.Query().Get("chat_id"), 10, 64)
	userID, err2 := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error",
			"error":  "chat_id and user_id must be integers",
		})
		return
	}

	report, err := s.reporter.Execute(r.Context(), chatID, userID)
	if errors.Is(err, domain.ErrNotTracked) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"status": "error",
			"error":  "pair is not tracked",
		})
		return
	}
	if err != nil {
		s.logger.Error(r.Context(), "report lookup failed", slog.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// authorized checks the api_key query parameter. An unset key disables the
// guarded endpoints rather than opening them.
func (s *Server) authorized(r *http.Request) bool {
	key := r.URL.Query().Get("api_key")
	return s.apiKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) == 1
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"status": "error",
		"error":  "unauthorized access - invalid or missing API key",
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
