package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iamwavecut/ngguard/internal/db"
)

func (c *sqliteClient) GetLastMessage(ctx context.Context, userID, groupID int64) (*db.LastMessage, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var nanos int64
	query := `SELECT last_message_time FROM user_messages WHERE user_id = ? AND group_id = ?`
	if err := c.db.GetContext(ctx, &nanos, query, userID, groupID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last message %d/%d: %w", userID, groupID, err)
	}
	return &db.LastMessage{
		UserID:          userID,
		GroupID:         groupID,
		LastMessageTime: fromNanos(nanos),
	}, nil
}

func (c *sqliteClient) SetLastMessage(ctx context.Context, userID, groupID int64, at time.Time) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO user_messages (user_id, group_id, last_message_time)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, group_id) DO UPDATE SET
		last_message_time = excluded.last_message_time
	`
	if _, err := c.db.ExecContext(ctx, query, userID, groupID, toNanos(at)); err != nil {
		return fmt.Errorf("failed to set last message %d/%d: %w", userID, groupID, err)
	}
	return nil
}
