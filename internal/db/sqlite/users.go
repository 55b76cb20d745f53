package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/iamwavecut/ngguard/internal/db"
)

type userRow struct {
	UserID    int64  `db:"user_id"`
	Username  string `db:"username"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	LastSeen  int64  `db:"last_seen"`
}

func (c *sqliteClient) UpsertUser(ctx context.Context, profile *db.UserProfile) error {
	if profile == nil {
		return fmt.Errorf("nil user profile")
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO users (user_id, username, first_name, last_name, last_seen)
		VALUES (:user_id, :username, :first_name, :last_name, :last_seen)
		ON CONFLICT(user_id) DO UPDATE SET
		username=excluded.username,
		first_name=excluded.first_name,
		last_name=excluded.last_name,
		last_seen=excluded.last_seen
	`
	row := userRow{
		UserID:    profile.UserID,
		Username:  profile.Username,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		LastSeen:  toNanos(profile.LastSeen),
	}
	if _, err := c.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", profile.UserID, err)
	}
	return nil
}

// GetUserByUsername matches case-insensitively and accepts a leading "@".
func (c *sqliteClient) GetUserByUsername(ctx context.Context, username string) (*db.UserProfile, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, nil
	}
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var row userRow
	query := `
		SELECT user_id, username, first_name, last_name, last_seen FROM users
		WHERE username = ? COLLATE NOCASE
		ORDER BY last_seen DESC LIMIT 1
	`
	if err := c.db.GetContext(ctx, &row, query, username); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}
	return &db.UserProfile{
		UserID:    row.UserID,
		Username:  row.Username,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		LastSeen:  fromNanos(row.LastSeen),
	}, nil
}
