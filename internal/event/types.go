package event

import "github.com/chatrelay/chatrelay/pkg/types"

// Type identifies an event kind.
type Type string

const (
	ConversationCreated Type = "conversation.created"
	MessageCreated      Type = "message.created"
	StreamStarted       Type = "stream.started"
	StreamCompleted     Type = "stream.completed"
	StreamFailed        Type = "stream.failed"
)

// Event is one published event.
type Event struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// ConversationCreatedData accompanies ConversationCreated.
type ConversationCreatedData struct {
	Conversation *types.Conversation `json:"conversation"`
}

// MessageCreatedData accompanies MessageCreated.
type MessageCreatedData struct {
	Message *types.Message `json:"message"`
}

// StreamData accompanies the stream lifecycle events.
type StreamData struct {
	RequestID      string `json:"requestId"`
	ConversationID int64  `json:"conversationId"`
	UserID         int64  `json:"userId"`
}
