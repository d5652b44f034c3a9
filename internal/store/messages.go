package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chatrelay/chatrelay/pkg/types"
)

// AppendMessage inserts one turn at the end of a conversation.
func (s *Store) AppendMessage(ctx context.Context, conversationID int64, role, content string) (*types.Message, error) {
	now := nowUTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages(conversation_id, role, content, created_at) VALUES(?, ?, ?, ?)`,
		conversationID, role, content, now)
	if err != nil {
		return nil, fmt.Errorf("store: append message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: append message: %w", err)
	}

	return &types.Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}, nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, conversationID int64, offset, limit int) ([]*types.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY id LIMIT ? OFFSET ?`,
		conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ListRecentMessages returns up to limit of the newest messages, newest
// first. Callers wanting chronological order reverse the slice; this avoids
// scanning long conversations from the start.
func (s *Store) ListRecentMessages(ctx context.Context, conversationID int64, limit int) ([]*types.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY id DESC LIMIT ?`,
		conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list recent messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*types.Message, error) {
	msgs := []*types.Message{}
	for rows.Next() {
		var m types.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}
