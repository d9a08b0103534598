package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"shelf/internal/api"
	"shelf/internal/config"
	"shelf/internal/httpcache"
	"shelf/internal/journal"
	"shelf/internal/logging"
)

type apiServer struct {
	bind      string
	logger    *slog.Logger
	daemon    *Daemon
	responder *httpcache.Responder

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:      bind,
		logger:    logging.NewComponentLogger(logger, "api-server"),
		daemon:    d,
		responder: httpcache.NewResponder(logger),
	}

	mux := http.NewServeMux()
	token := cfg.Paths.APIToken
	handle := func(pattern string, handler http.HandlerFunc) {
		mux.HandleFunc(pattern, requestIDMiddleware(authMiddleware(token, handler)))
	}
	handle("/api/status", srv.handleStatus)
	handle("/api/journal", srv.handleJournal)
	handle("/api/resources/", srv.handleResources)
	handle("/api/events", func(w http.ResponseWriter, r *http.Request) {
		websocket.Handler(d.hub.serveEvents).ServeHTTP(w, r)
	})

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	checks := make([]api.CheckStatus, len(status.Checks))
	for i, check := range status.Checks {
		checks[i] = api.CheckStatus{Name: check.Name, Passed: check.Passed, Detail: check.Detail}
	}
	deps := make([]api.DependencyStatus, len(status.Dependencies))
	for i, dep := range status.Dependencies {
		deps[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		CacheRoot:    status.CacheRoot,
		LockFilePath: status.LockFilePath,
		JournalPath:  status.JournalPath,
		ActiveKeys:   status.ActiveKeys,
		Checks:       checks,
		Dependencies: deps,
		Invocations:  status.Invocations,
	})
}

func (s *apiServer) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	store := s.daemon.Journal()
	if store == nil {
		s.writeJSON(w, http.StatusOK, api.JournalResponse{Entries: []api.JournalEntry{}})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := store.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.JournalResponse{Entries: convertJournalEntries(entries)})
}

func convertJournalEntries(entries []journal.Entry) []api.JournalEntry {
	out := make([]api.JournalEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, api.JournalEntry{
			ID:         entry.ID,
			Class:      entry.Class,
			Binary:     entry.Binary,
			Args:       entry.Args,
			CacheKey:   entry.CacheKey,
			State:      entry.State,
			ExitCode:   entry.ExitCode,
			DurationMS: entry.Duration.Milliseconds(),
			StartedAt:  entry.StartedAt,
		})
	}
	return out
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
