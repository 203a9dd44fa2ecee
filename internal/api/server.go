package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/classifier"
	"github.com/MikeSquared-Agency/parley/internal/session"
)

// Sessions is the live-session surface the API drives.
type Sessions interface {
	Start(ctx context.Context, opts session.StartOptions) (*session.Session, error)
	Get(id string) (*session.Session, error)
	Ingest(id, text string, at time.Time) error
	Stop(id string) (session.Summary, error)
	Cancel(id string) error
	List() []string
}

// Classifier scores ad-hoc text for the classify endpoint.
type Classifier interface {
	Scores(text string, scenario catalog.Scenario, sensitivity float64) []classifier.Score
	Classify(text string, scenario catalog.Scenario, sensitivity float64, at time.Time) *classifier.DetectedPattern
	Scenarios() catalog.Matrices
}

// SettingsStore persists user preferences.
type SettingsStore interface {
	GetSettings(ctx context.Context) (session.Settings, error)
	SaveSettings(ctx context.Context, st session.Settings) error
}

// Bus reports the message bus connection state.
type Bus interface {
	Connected() bool
}

// Pinger checks a backing database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators behind the routes. Settings, Bus and DB may be
// nil.
type Deps struct {
	Sessions   Sessions
	Classifier Classifier
	Settings   SettingsStore
	Bus        Bus
	DB         Pinger
}

type Server struct {
	router *chi.Mux
	port   int
	http   *http.Server
	deps   Deps
}

func NewServer(port int, apiToken string, deps Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		deps:   deps,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/parley/status", s.status)
	router.Get("/api/v1/tactics", s.listTactics)
	router.Get("/api/v1/scenarios", s.listScenarios)
	router.Post("/api/v1/classify", s.classify)

	router.Route("/api/v1/sessions", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/", s.startSession)
		r.Get("/", s.listSessions)
		r.Get("/{id}", s.getSession)
		r.Post("/{id}/chunks", s.ingestChunk)
		r.Post("/{id}/stop", s.stopSession)
		r.Delete("/{id}", s.cancelSession)
	})

	if deps.Settings != nil {
		router.Route("/api/v1/settings", func(r chi.Router) {
			r.Use(BearerAuthMiddleware(apiToken))
			r.Get("/", s.getSettings)
			r.Put("/", s.saveSettings)
		})
	}

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	active := 0
	if s.deps.Sessions != nil {
		active = len(s.deps.Sessions.List())
	}

	status := "ready"
	nats := "disabled"
	if s.deps.Bus != nil {
		nats = "connected"
		if !s.deps.Bus.Connected() {
			nats = "disconnected"
			status = "degraded"
		}
	}
	database := "disabled"
	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		database = "ok"
		if err := s.deps.DB.Ping(ctx); err != nil {
			slog.Warn("database ping failed", "error", err)
			database = "unavailable"
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agent":           "parley",
		"status":          status,
		"active_sessions": active,
		"nats":            nats,
		"database":        database,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
