package types

// Stream event types sent to websocket clients.
const (
	EventChunk    = "chunk"
	EventComplete = "complete"
	EventError    = "error"
)

// StreamRequest is one inbound websocket exchange request.
type StreamRequest struct {
	RequestID      string `json:"request_id"`
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversation_id"`
}

// StreamEvent is one outbound websocket message. Chunk events carry the
// cumulative reply text so far, so each event is self-sufficient: a client
// that missed earlier chunks can still render from the latest one.
type StreamEvent struct {
	Type           string `json:"type"`
	RequestID      string `json:"requestId,omitempty"`
	ConversationID int64  `json:"conversationId,omitempty"`
	Content        string `json:"content,omitempty"`
	Detail         string `json:"detail,omitempty"`
}

// Token is an issued access token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// GuestSession is the response to a guest sign-in.
type GuestSession struct {
	Token
	UserID int64 `json:"user_id"`
}

// ChatRequest is the non-streaming completion request body.
type ChatRequest struct {
	ConversationID *int64 `json:"conversation_id"`
	Message        string `json:"message"`
}

// ChatResponse is the non-streaming completion response body.
type ChatResponse struct {
	ConversationID int64  `json:"conversation_id"`
	Reply          string `json:"reply"`
}

// Health statuses.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthError    = "error"
)

// HealthComponent is one component's health check result.
type HealthComponent struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
}

// HealthStatus is the aggregate health report.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks []HealthComponent `json:"checks"`
}
