package sqlite

import (
	"context"
	"fmt"

	"github.com/iamwavecut/ngguard/internal/db"
)

func (c *sqliteClient) GetGroupSettings(ctx context.Context, groupID int64) (*db.GroupSettings, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	res := &db.GroupSettings{}
	query := `
		SELECT group_id, group_name, require_subscription, target_channels, slow_mode_delay
		FROM groups WHERE group_id = ?
	`
	if err := c.db.GetContext(ctx, res, query, groupID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group settings %d: %w", groupID, err)
	}
	return res, nil
}

func (c *sqliteClient) SetGroupSettings(ctx context.Context, settings *db.GroupSettings) error {
	if settings == nil {
		return fmt.Errorf("nil group settings")
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO groups (group_id, group_name, require_subscription, target_channels, slow_mode_delay)
		VALUES (:group_id, :group_name, :require_subscription, :target_channels, :slow_mode_delay)
		ON CONFLICT(group_id) DO UPDATE SET
		group_name=excluded.group_name,
		require_subscription=excluded.require_subscription,
		target_channels=excluded.target_channels,
		slow_mode_delay=excluded.slow_mode_delay
	`
	if _, err := c.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("failed to set group settings %d: %w", settings.GroupID, err)
	}
	return nil
}
