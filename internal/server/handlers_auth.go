package server

import (
	"net/http"

	"github.com/chatrelay/chatrelay/internal/auth"
	"github.com/chatrelay/chatrelay/pkg/types"
)

// issueToken handles POST /token. It accepts the password grant as a form
// body (username, password) and answers with a bearer token.
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid form body")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "username and password are required")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil || !auth.VerifyPassword(user.PasswordHash, password) {
		// Unknown user and wrong password answer identically.
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthenticated, "Incorrect username or password")
		return
	}

	token, err := s.auth.IssueToken(user.Username)
	if err != nil {
		s.log.Error().Err(err).Msg("issue token failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not issue token")
		return
	}

	writeJSON(w, http.StatusOK, types.Token{AccessToken: token, TokenType: "bearer"})
}

// guestSession handles POST /auth/guest: a throwaway account plus token in
// one call, for clients that want to try the relay without registering.
func (s *Server) guestSession(w http.ResponseWriter, r *http.Request) {
	user, token, err := s.auth.CreateGuest(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("create guest failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not create guest session")
		return
	}

	writeJSON(w, http.StatusOK, types.GuestSession{
		Token:  types.Token{AccessToken: token, TokenType: "bearer"},
		UserID: user.ID,
	})
}
