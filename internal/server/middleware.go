package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/chatrelay/chatrelay/pkg/types"
)

type contextKey string

const contextKeyUser contextKey = "user"

// requireAuth authenticates the Authorization bearer token and injects the
// resolved user into the request context. Every failure answers 401 without
// distinguishing the cause.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthenticated, "Not authenticated")
			return
		}

		user, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthenticated, "Could not validate credentials")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the authenticated user from the request context. It is
// only valid behind requireAuth.
func currentUser(ctx context.Context) *types.User {
	user, _ := ctx.Value(contextKeyUser).(*types.User)
	return user
}
