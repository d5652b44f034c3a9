package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chatrelay/chatrelay/internal/auth"
	"github.com/chatrelay/chatrelay/internal/store"
	"github.com/chatrelay/chatrelay/pkg/types"
)

// CreateUserRequest represents the request body for registering a user.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// createUser handles POST /users
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "username and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.Error().Err(err).Msg("hash password failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not create user")
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Username, hash)
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Username already registered")
			return
		}
		s.log.Error().Err(err).Msg("create user failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not create user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// listUsers handles GET /users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	offset, limit := pagination(r)

	users, err := s.store.ListUsers(r.Context(), offset, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("list users failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not list users")
		return
	}
	if users == nil {
		users = []*types.User{}
	}

	writeJSON(w, http.StatusOK, users)
}

// getUser handles GET /users/{userID}
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid user id")
		return
	}

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// pagination reads skip/limit query parameters with sane bounds.
func pagination(r *http.Request) (offset, limit int) {
	offset = 0
	limit = 100

	if v := r.URL.Query().Get("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	return offset, limit
}
