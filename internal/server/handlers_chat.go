package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chatrelay/chatrelay/internal/chat"
	"github.com/chatrelay/chatrelay/internal/event"
	"github.com/chatrelay/chatrelay/internal/store"
	"github.com/chatrelay/chatrelay/pkg/types"
)

// chatCompletion handles POST /chat/completions: the streaming pipeline run
// to exhaustion, reply returned whole. Same resolution, validation and
// persistence rules as the websocket path.
func (s *Server) chatCompletion(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Chat service is unavailable")
		return
	}

	user := currentUser(r.Context())

	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	message, err := chat.ValidateMessage(req.Message)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	ctx := r.Context()

	conv, err := chat.ResolveConversation(ctx, s.store, s.bus, user.ID, req.ConversationID, message)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Conversation not found")
			return
		}
		s.log.Error().Err(err).Msg("resolve conversation failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not resolve conversation")
		return
	}

	userMsg, err := s.store.AppendMessage(ctx, conv.ID, types.RoleUser, message)
	if err != nil {
		s.log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("persist user turn failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not persist message")
		return
	}
	s.bus.Publish(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Message: userMsg}})

	history, err := chat.LoadHistory(ctx, s.store, conv.ID, s.cfg.HistoryWindow)
	if err != nil {
		s.log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("load history failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not load history")
		return
	}

	reply, err := s.chat.GenerateReply(ctx, history)
	if err != nil {
		s.log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("completion failed")
		writeError(w, http.StatusBadGateway, ErrCodeProviderError, "Failed to generate response")
		return
	}

	assistantMsg, err := s.store.AppendMessage(ctx, conv.ID, types.RoleAssistant, reply)
	if err != nil {
		s.log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("persist assistant turn failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "Could not persist reply")
		return
	}
	s.bus.Publish(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Message: assistantMsg}})

	writeJSON(w, http.StatusOK, types.ChatResponse{ConversationID: conv.ID, Reply: reply})
}
