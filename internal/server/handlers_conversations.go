package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chatrelay/chatrelay/internal/chat"
	"github.com/chatrelay/chatrelay/internal/event"
	"github.com/chatrelay/chatrelay/internal/store"
	"github.com/chatrelay/chatrelay/pkg/types"
)

// CreateConversationRequest represents the request body for creating a
// conversation.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// createConversation handles POST /users/{userID}/conversations
func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid user id")
		return
	}
	if id != user.ID {
		writeError(w, http.StatusForbidden, ErrCodePermissionDenied, "Cannot create conversations for another user")
		return
	}

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	title := chat.ConversationTitle(req.Title)

	conv, err := s.store.CreateConversation(r.Context(), user.ID, title)
	if err != nil {
		s.log.Error().Err(err).Msg("create conversation failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not create conversation")
		return
	}

	s.bus.Publish(event.Event{
		Type: event.ConversationCreated,
		Data: event.ConversationCreatedData{Conversation: conv},
	})

	writeJSON(w, http.StatusOK, conv)
}

// listConversations handles GET /conversations — the caller's own only.
func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	offset, limit := pagination(r)

	convs, err := s.store.ListConversations(r.Context(), user.ID, offset, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("list conversations failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not list conversations")
		return
	}
	if convs == nil {
		convs = []*types.Conversation{}
	}

	writeJSON(w, http.StatusOK, convs)
}

// listConversationMessages handles GET /conversations/{conversationID}/messages.
// A conversation owned by someone else is indistinguishable from a missing
// one.
func (s *Server) listConversationMessages(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid conversation id")
		return
	}

	if _, err := s.store.GetConversation(r.Context(), id, user.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Conversation not found")
			return
		}
		s.log.Error().Err(err).Msg("get conversation failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not load conversation")
		return
	}

	offset, limit := pagination(r)
	msgs, err := s.store.ListMessages(r.Context(), id, offset, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("list messages failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not list messages")
		return
	}
	if msgs == nil {
		msgs = []*types.Message{}
	}

	writeJSON(w, http.StatusOK, msgs)
}
