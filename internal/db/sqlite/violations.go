package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iamwavecut/ngguard/internal/db"
)

type violationRow struct {
	UserID            int64  `db:"user_id"`
	GroupID           int64  `db:"group_id"`
	Username          string `db:"username"`
	FirstName         string `db:"first_name"`
	Banned            bool   `db:"banned"`
	ViolationsCount   int    `db:"violations_count"`
	LastViolationTime int64  `db:"last_violation_time"`
}

func (r violationRow) record() *db.ViolationRecord {
	return &db.ViolationRecord{
		UserID:            r.UserID,
		GroupID:           r.GroupID,
		Username:          r.Username,
		FirstName:         r.FirstName,
		Banned:            r.Banned,
		ViolationsCount:   r.ViolationsCount,
		LastViolationTime: fromNanos(r.LastViolationTime),
	}
}

const violationColumns = `user_id, group_id, username, first_name, banned, violations_count, last_violation_time`

func (c *sqliteClient) GetViolation(ctx context.Context, userID, groupID int64) (*db.ViolationRecord, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var row violationRow
	query := `SELECT ` + violationColumns + ` FROM user_violations WHERE user_id = ? AND group_id = ?`
	if err := c.db.GetContext(ctx, &row, query, userID, groupID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get violation %d/%d: %w", userID, groupID, err)
	}
	return row.record(), nil
}

// IncrementViolation adds one violation in a single statement and returns the resulting record.
func (c *sqliteClient) IncrementViolation(ctx context.Context, userID, groupID int64, username, firstName string, at time.Time) (*db.ViolationRecord, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO user_violations (user_id, group_id, username, first_name, banned, violations_count, last_violation_time)
		VALUES (?, ?, ?, ?, 0, 1, ?)
		ON CONFLICT(user_id, group_id) DO UPDATE SET
		violations_count = violations_count + 1,
		last_violation_time = excluded.last_violation_time,
		username = excluded.username,
		first_name = excluded.first_name
		RETURNING ` + violationColumns

	var row violationRow
	if err := c.db.GetContext(ctx, &row, query, userID, groupID, username, firstName, toNanos(at)); err != nil {
		return nil, fmt.Errorf("failed to increment violation %d/%d: %w", userID, groupID, err)
	}
	return row.record(), nil
}

// BanUser sets the banned flag, creating an empty record if needed.
func (c *sqliteClient) BanUser(ctx context.Context, userID, groupID int64, username, firstName string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO user_violations (user_id, group_id, username, first_name, banned, violations_count, last_violation_time)
		VALUES (?, ?, ?, ?, 1, 0, 0)
		ON CONFLICT(user_id, group_id) DO UPDATE SET banned = 1
	`
	if _, err := c.db.ExecContext(ctx, query, userID, groupID, username, firstName); err != nil {
		return fmt.Errorf("failed to ban %d/%d: %w", userID, groupID, err)
	}
	return nil
}

func (c *sqliteClient) UnbanUser(ctx context.Context, userID, groupID int64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx,
		`UPDATE user_violations SET banned = 0 WHERE user_id = ? AND group_id = ?`, userID, groupID)
	if err != nil {
		return false, fmt.Errorf("failed to unban %d/%d: %w", userID, groupID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ResetViolations drops the record entirely, which also lifts a ban.
func (c *sqliteClient) ResetViolations(ctx context.Context, userID, groupID int64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx,
		`DELETE FROM user_violations WHERE user_id = ? AND group_id = ?`, userID, groupID)
	if err != nil {
		return false, fmt.Errorf("failed to reset violations %d/%d: %w", userID, groupID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
