package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chatrelay/chatrelay/internal/event"
	"github.com/chatrelay/chatrelay/internal/provider"
	"github.com/chatrelay/chatrelay/internal/store"
	"github.com/chatrelay/chatrelay/pkg/types"
)

// Conn is the subset of a websocket connection the session loop uses.
// *websocket.Conn satisfies it; tests substitute a fake.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
}

// Session runs one authenticated streaming connection. Requests are handled
// strictly sequentially: the loop does not read the next inbound message
// until the prior exchange has reached its terminal event and persistence
// has completed. That sequencing is what makes conversation resolution
// atomic per request without extra locking.
type Session struct {
	User          *types.User
	Conn          Conn
	Store         *store.Store
	Service       *Service
	Bus           *event.Bus
	HistoryWindow int
	Log           zerolog.Logger
}

// Run processes inbound requests until the connection closes or ctx is
// cancelled. The caller owns the admission slot and the connection; Run
// never closes either.
func (s *Session) Run(ctx context.Context) {
	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			s.Log.Debug().Err(err).Msg("websocket read ended")
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		s.handleRequest(ctx, raw)
	}
}

// handleRequest runs one full exchange: validate, resolve, persist the user
// turn, stream, then persist the assistant turn.
func (s *Session) handleRequest(ctx context.Context, raw []byte) {
	var req types.StreamRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		// No request identification yet, so no requestId.
		s.send(types.StreamEvent{Type: types.EventError, Detail: "Invalid payload"})
		return
	}
	if strings.TrimSpace(req.RequestID) == "" {
		s.send(types.StreamEvent{Type: types.EventError, Detail: "request_id is required"})
		return
	}

	message, err := ValidateMessage(req.Message)
	if err != nil {
		s.send(types.StreamEvent{Type: types.EventError, RequestID: req.RequestID, Detail: err.Error()})
		return
	}

	conv, err := ResolveConversation(ctx, s.Store, s.Bus, s.User.ID, req.ConversationID, message)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.send(types.StreamEvent{Type: types.EventError, RequestID: req.RequestID, Detail: "Conversation not found"})
			return
		}
		s.Log.Error().Err(err).Msg("resolve conversation failed")
		s.send(types.StreamEvent{Type: types.EventError, RequestID: req.RequestID, Detail: "Internal server error"})
		return
	}

	userMsg, err := s.Store.AppendMessage(ctx, conv.ID, types.RoleUser, message)
	if err != nil {
		s.Log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("persist user turn failed")
		s.send(types.StreamEvent{Type: types.EventError, RequestID: req.RequestID, Detail: "Internal server error"})
		return
	}
	s.publish(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Message: userMsg}})

	history, err := LoadHistory(ctx, s.Store, conv.ID, s.HistoryWindow)
	if err != nil {
		s.Log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("load history failed")
		s.send(types.StreamEvent{Type: types.EventError, RequestID: req.RequestID, Detail: "Internal server error"})
		return
	}

	stream, err := s.Service.StreamReply(ctx, history)
	if err != nil {
		s.Log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("start completion failed")
		s.publish(event.Event{Type: event.StreamFailed, Data: s.streamData(req.RequestID, conv.ID)})
		s.send(types.StreamEvent{Type: types.EventError, RequestID: req.RequestID, Detail: "Failed to generate response"})
		return
	}

	s.publish(event.Event{Type: event.StreamStarted, Data: s.streamData(req.RequestID, conv.ID)})
	s.runStream(ctx, req.RequestID, conv, stream)
}

// runStream forwards accumulator events to the client and persists the
// assistant turn. The terminal complete event is withheld until persistence
// succeeds so the client never sees complete for a turn that was lost; a
// persistence failure turns it into the exchange's single terminal error
// event instead.
func (s *Session) runStream(ctx context.Context, requestID string, conv *types.Conversation, stream provider.Stream) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, result := Accumulate(streamCtx, requestID, conv.ID, stream)

	var pendingComplete *types.StreamEvent
	for e := range events {
		if e.Type == types.EventComplete {
			pending := e
			pendingComplete = &pending
			continue
		}
		if err := s.Conn.WriteJSON(e); err != nil {
			// Consumer went away; stop the producer and drain.
			s.Log.Debug().Err(err).Msg("websocket write failed mid-stream")
			cancel()
			for range events {
			}
			break
		}
	}

	res := <-result
	if res.Err != nil {
		s.Log.Warn().Err(res.Err).Int64("conversation_id", conv.ID).Str("request_id", requestID).
			Msg("stream did not complete")
		s.publish(event.Event{Type: event.StreamFailed, Data: s.streamData(requestID, conv.ID)})
		return
	}

	assistantMsg, err := s.Store.AppendMessage(ctx, conv.ID, types.RoleAssistant, res.Reply)
	if err != nil {
		s.Log.Error().Err(err).Int64("conversation_id", conv.ID).Msg("persist assistant turn failed")
		s.publish(event.Event{Type: event.StreamFailed, Data: s.streamData(requestID, conv.ID)})
		s.send(types.StreamEvent{Type: types.EventError, RequestID: requestID, Detail: "Internal server error"})
		return
	}
	s.publish(event.Event{Type: event.MessageCreated, Data: event.MessageCreatedData{Message: assistantMsg}})

	if pendingComplete != nil {
		s.send(*pendingComplete)
	}
	s.publish(event.Event{Type: event.StreamCompleted, Data: s.streamData(requestID, conv.ID)})
}

func (s *Session) send(e types.StreamEvent) {
	if err := s.Conn.WriteJSON(e); err != nil {
		s.Log.Debug().Err(err).Msg("websocket write failed")
	}
}

func (s *Session) publish(e event.Event) {
	if s.Bus != nil {
		s.Bus.Publish(e)
	}
}

func (s *Session) streamData(requestID string, conversationID int64) event.StreamData {
	return event.StreamData{RequestID: requestID, ConversationID: conversationID, UserID: s.User.ID}
}
