// Package server exposes the vitality engine over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lazypower/vitality/internal/engine"
)

// Server is the vitality HTTP API server.
type Server struct {
	engine  *engine.Engine
	log     *zap.Logger
	router  chi.Router
	version string
	started time.Time
}

// New creates a Server over eng.
func New(eng *engine.Engine, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  eng,
		log:     logger,
		version: version,
		started: eng.Clock.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(s.requestLog)

	if s.engine.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.engine.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/sessions", s.handleRecordSessions)
		r.Get("/agents", s.handleListAgents)

		r.Route("/agents/{agentID}", func(r chi.Router) {
			r.Get("/state", s.handleState)
			r.Get("/context", s.handleContext)
			r.Get("/status", s.handleStatus)
			r.Get("/history", s.handleHistory)
			r.Get("/can-modify", s.handleCanModify)
			r.Get("/capabilities", s.handleCapabilities)

			r.Post("/turns", s.handleTurn)
			r.Post("/modifications", s.handleModify)
			r.Post("/goals", s.handleAddGoal)

			r.Delete("/cache", s.handleInvalidate)
		})
	})

	s.router = r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"version":   s.version,
		"uptime":    s.engine.Clock.Since(s.started).Seconds(),
		"state_dir": s.engine.Files.Dir,
		"history":   false,
	}
	if db := s.engine.History; db != nil {
		body["history"] = db.Ping() == nil
		body["db_path"] = db.Path
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
