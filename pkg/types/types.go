// Package types defines the core data model and wire types for chatrelay.
package types

import "time"

// Roles for conversation turns.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User is a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Conversation is a sequence of turns owned by a single user.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is one persisted turn of a conversation. Messages are immutable
// once created and ordered by their insertion ID.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversationId"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Turn is one role-tagged element of a prompt window.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn converts a persisted message to a prompt turn.
func (m *Message) Turn() Turn {
	return Turn{Role: m.Role, Content: m.Content}
}
