package chat

import (
	"context"
	"strings"

	"github.com/chatrelay/chatrelay/internal/event"
	"github.com/chatrelay/chatrelay/internal/store"
	"github.com/chatrelay/chatrelay/pkg/types"
)

const (
	// titlePrefixLength bounds the auto-generated conversation title.
	titlePrefixLength = 60
	// DefaultTitle is used when the triggering message is empty after
	// trimming.
	DefaultTitle = "Conversation"
)

// ResolveConversation returns the conversation addressed by conversationID,
// scoped to its owner, or creates a new one when the id is omitted. An id
// that is absent or owned by another user yields store.ErrNotFound; the two
// cases are indistinguishable to the caller.
func ResolveConversation(ctx context.Context, st *store.Store, bus *event.Bus, userID int64, conversationID *int64, message string) (*types.Conversation, error) {
	if conversationID != nil {
		return st.GetConversation(ctx, *conversationID, userID)
	}

	conv, err := st.CreateConversation(ctx, userID, ConversationTitle(message))
	if err != nil {
		return nil, err
	}
	if bus != nil {
		bus.Publish(event.Event{
			Type: event.ConversationCreated,
			Data: event.ConversationCreatedData{Conversation: conv},
		})
	}
	return conv, nil
}

// ConversationTitle derives a title from the first message: its trimmed
// prefix, or DefaultTitle when nothing remains after trimming.
func ConversationTitle(message string) string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return DefaultTitle
	}
	runes := []rune(trimmed)
	if len(runes) > titlePrefixLength {
		return string(runes[:titlePrefixLength])
	}
	return trimmed
}

// LoadHistory returns the most recent limit turns of a conversation in
// chronological order. The store fetches newest-first with a LIMIT and the
// window is reversed here.
func LoadHistory(ctx context.Context, st *store.Store, conversationID int64, limit int) ([]types.Turn, error) {
	msgs, err := st.ListRecentMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}

	turns := make([]types.Turn, len(msgs))
	for i, m := range msgs {
		turns[len(msgs)-1-i] = m.Turn()
	}
	return turns, nil
}
