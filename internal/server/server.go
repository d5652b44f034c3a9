// Package server provides the HTTP and websocket surface of the relay.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/chatrelay/chatrelay/internal/auth"
	"github.com/chatrelay/chatrelay/internal/chat"
	"github.com/chatrelay/chatrelay/internal/config"
	"github.com/chatrelay/chatrelay/internal/event"
	"github.com/chatrelay/chatrelay/internal/logging"
	"github.com/chatrelay/chatrelay/internal/store"
)

// Server is the HTTP server. It owns the router, the admission limiter and
// the event bus; stores and services are injected.
type Server struct {
	cfg     *config.Config
	router  *chi.Mux
	httpSrv *http.Server

	store   *store.Store
	auth    *auth.Service
	chat    *chat.Service // nil when no completion backend is configured
	limiter *chat.ConnLimiter
	bus     *event.Bus
	log     zerolog.Logger
}

// New creates a Server. A nil chatSvc puts the server in degraded mode:
// streaming connections are refused and completions answer 503, while the
// record and account endpoints keep working.
func New(cfg *config.Config, st *store.Store, authSvc *auth.Service, chatSvc *chat.Service) *Server {
	s := &Server{
		cfg:     cfg,
		router:  chi.NewRouter(),
		store:   st,
		auth:    authSvc,
		chat:    chatSvc,
		limiter: chat.NewConnLimiter(cfg.MaxConnections),
		bus:     event.NewBus(),
		log:     logging.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:        s.cfg.Addr(),
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// No write timeout: SSE and websocket connections are long-lived.
	}

	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.bus.Close()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Bus returns the server's event bus.
func (s *Server) Bus() *event.Bus {
	return s.bus
}
