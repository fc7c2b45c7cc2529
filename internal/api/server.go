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

	"github.com/MikeSquared-Agency/ghostrev/internal/processor"
	"github.com/MikeSquared-Agency/ghostrev/internal/push"
)

type Server struct {
	router *chi.Mux
	port   int
	proc   *processor.Processor
	hub    *push.Hub
	http   *http.Server
}

// NewServer builds the router. hub may be nil, in which case the push
// endpoint is not mounted.
func NewServer(port int, apiToken string, proc *processor.Processor, hub *push.Hub) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		proc:   proc,
		hub:    hub,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/ghostrev/status", s.status)

	router.Route("/api/v1/pages", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/", s.openPage)
		r.Get("/{pageID}", s.pageStatus)
		r.Delete("/{pageID}", s.closePage)
		r.Post("/{pageID}/events", s.pageEvent)
	})
	router.Route("/api/v1/sessions", func(r chi.Router) {
		// Browsers cannot set headers on a websocket handshake.
		if hub != nil {
			r.Get("/{sessionID}/push", s.sessionPush)
		}
		r.Group(func(r chi.Router) {
			r.Use(BearerAuthMiddleware(apiToken))
			r.Get("/{sessionID}", s.sessionRecord)
			r.Delete("/{sessionID}", s.endSession)
		})
	})

	return s
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

// BearerAuthMiddleware rejects requests without the configured token. An
// empty token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	stats := s.proc.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":    "ghostrev",
		"status":   "active",
		"pages":    stats.Pages,
		"sessions": stats.Sessions,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
