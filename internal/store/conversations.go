package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chatrelay/chatrelay/pkg/types"
)

// CreateConversation inserts a conversation owned by userID.
func (s *Store) CreateConversation(ctx context.Context, userID int64, title string) (*types.Conversation, error) {
	now := nowUTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations(user_id, title, created_at) VALUES(?, ?, ?)`,
		userID, title, now)
	if err != nil {
		return nil, fmt.Errorf("store: create conversation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: create conversation: %w", err)
	}

	return &types.Conversation{ID: id, UserID: userID, Title: title, CreatedAt: now}, nil
}

// GetConversation fetches a conversation scoped to its owner. A conversation
// that exists but belongs to another user is reported as ErrNotFound.
func (s *Store) GetConversation(ctx context.Context, id, userID int64) (*types.Conversation, error) {
	var c types.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at FROM conversations WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get conversation: %w", err)
	}
	return &c, nil
}

// ListConversations returns userID's conversations ordered by id.
func (s *Store) ListConversations(ctx context.Context, userID int64, offset, limit int) ([]*types.Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at FROM conversations
		 WHERE user_id = ? ORDER BY id LIMIT ? OFFSET ?`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list conversations: %w", err)
	}
	defer rows.Close()

	convs := []*types.Conversation{}
	for rows.Next() {
		var c types.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: list conversations: %w", err)
		}
		convs = append(convs, &c)
	}
	return convs, rows.Err()
}
