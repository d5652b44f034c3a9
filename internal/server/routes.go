package server

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// Rate limits, per client IP. Token issuance is the hot path for UI clients;
// guest creation is deliberately tight because each call mints a user row.
const (
	tokenRateLimit = 30
	guestRateLimit = 5
	usersRateLimit = 20
	chatRateLimit  = 30
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/", s.root)
	r.Get("/health", s.health)

	// Streaming surfaces
	r.Get("/ws", s.streamSocket)
	r.Get("/event", s.events)

	// Token issuance
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(tokenRateLimit, time.Minute))
		r.Post("/token", s.issueToken)
	})
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(guestRateLimit, time.Minute))
		r.Post("/auth/guest", s.guestSession)
	})

	// User accounts
	r.Route("/users", func(r chi.Router) {
		r.Use(httprate.LimitByIP(usersRateLimit, time.Minute))
		r.Post("/", s.createUser)
		r.Get("/", s.listUsers)
		r.Get("/{userID}", s.getUser)

		r.With(s.requireAuth).Post("/{userID}/conversations", s.createConversation)
	})

	// Conversation records and non-streaming completion
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/conversations", s.listConversations)
		r.Get("/conversations/{conversationID}/messages", s.listConversationMessages)

		r.With(httprate.LimitByIP(chatRateLimit, time.Minute)).
			Post("/chat/completions", s.chatCompletion)
	})
}
