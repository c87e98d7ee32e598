package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/vestforge/escrow-migrator/internal/config"
	"github.com/vestforge/escrow-migrator/internal/connection"
	"github.com/vestforge/escrow-migrator/internal/journal"
	"github.com/vestforge/escrow-migrator/pkg/utils"
)

// StatusServer exposes run history, health, and prometheus metrics while a
// migration is in flight
type StatusServer struct {
	config     *config.ServerConfig
	server     *http.Server
	router     *mux.Router
	journal    journal.Journal
	connection connection.Manager
	logger     *logrus.Logger
	startTime  time.Time
}

// NewStatusServer creates a new status server
func NewStatusServer(cfg *config.ServerConfig, j journal.Journal, conn connection.Manager) *StatusServer {
	s := &StatusServer{
		config:     cfg,
		journal:    j,
		connection: conn,
		logger:     utils.GetLogger(),
		startTime:  time.Now(),
	}

	s.setupRouter()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupRouter sets up the HTTP routes
func (s *StatusServer) setupRouter() {
	s.router = mux.NewRouter()
	s.router.Use(s.loggingMiddleware)

	s.router.Handle("/metrics", promhttp.Handler())

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", s.healthHandler).Methods("GET")
	api.HandleFunc("/runs", s.listRunsHandler).Methods("GET")
	api.HandleFunc("/runs/{id}/pages", s.listPagesHandler).Methods("GET")
	api.HandleFunc("/runs/{id}/issues", s.listIssuesHandler).Methods("GET")
}

// Start starts the HTTP server in the background
func (s *StatusServer) Start() error {
	s.logger.WithField("address", s.server.Addr).Info("Starting status server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("Status server failed")
		}
	}()

	return nil
}

// Stop stops the HTTP server gracefully
func (s *StatusServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("Stopping status server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports connection and journal health
func (s *StatusServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(s.startTime).String(),
	}

	components := make(map[string]bool)
	if s.connection != nil {
		components["connection"] = s.connection.IsConnected()
	}
	if s.journal != nil {
		components["journal"] = s.journal.Ping() == nil
	}
	health["components"] = components

	for _, healthy := range components {
		if !healthy {
			health["status"] = "unhealthy"
			break
		}
	}

	s.writeJSON(w, http.StatusOK, health)
}

// listRunsHandler returns recent runs from the journal
func (s *StatusServer) listRunsHandler(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := s.journal.GetRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// listPagesHandler returns the committed pages of one run
func (s *StatusServer) listPagesHandler(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}

	runID := mux.Vars(r)["id"]
	pages, err := s.journal.GetPages(r.Context(), runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"run_id": runID, "pages": pages})
}

// listIssuesHandler returns the verification issues of one run
func (s *StatusServer) listIssuesHandler(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.writeError(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}

	runID := mux.Vars(r)["id"]
	issues, err := s.journal.GetIssues(r.Context(), runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"run_id": runID, "issues": issues})
}

// loggingMiddleware logs each request
func (s *StatusServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("HTTP request")
	})
}

// writeJSON writes a JSON response
func (s *StatusServer) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError writes a JSON error response
func (s *StatusServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
