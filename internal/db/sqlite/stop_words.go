package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/iamwavecut/ngguard/internal/db"
)

func scopeArgs(word db.StopWord) (bool, int64) {
	if word.Scope == db.ScopeGlobal {
		return true, 0
	}
	return false, word.GroupID
}

// AddStopWord stores the lower-cased word and reports whether it was new.
func (c *sqliteClient) AddStopWord(ctx context.Context, word db.StopWord) (bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(word.Word))
	if normalized == "" {
		return false, fmt.Errorf("empty stop word")
	}
	isGlobal, groupID := scopeArgs(word)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO stop_words (word, is_global, group_id) VALUES (?, ?, ?)`,
		normalized, isGlobal, groupID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add %s stop word: %w", word.Scope, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *sqliteClient) RemoveStopWord(ctx context.Context, word db.StopWord) (bool, error) {
	isGlobal, groupID := scopeArgs(word)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx,
		`DELETE FROM stop_words WHERE word = ? AND is_global = ? AND group_id = ?`,
		strings.ToLower(strings.TrimSpace(word.Word)), isGlobal, groupID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove %s stop word: %w", word.Scope, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *sqliteClient) ListStopWords(ctx context.Context, groupID int64) ([]string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var words []string
	query := `
		SELECT DISTINCT word FROM stop_words
		WHERE is_global = 1 OR (is_global = 0 AND group_id = ?)
		ORDER BY word
	`
	if err := c.db.SelectContext(ctx, &words, query, groupID); err != nil {
		return nil, fmt.Errorf("failed to list stop words for %d: %w", groupID, err)
	}
	return words, nil
}

func (c *sqliteClient) ListGlobalStopWords(ctx context.Context) ([]string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var words []string
	if err := c.db.SelectContext(ctx, &words, `SELECT word FROM stop_words WHERE is_global = 1 ORDER BY word`); err != nil {
		return nil, fmt.Errorf("failed to list global stop words: %w", err)
	}
	return words, nil
}

func (c *sqliteClient) ListGroupStopWords(ctx context.Context, groupID int64) ([]string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var words []string
	query := `SELECT word FROM stop_words WHERE is_global = 0 AND group_id = ? ORDER BY word`
	if err := c.db.SelectContext(ctx, &words, query, groupID); err != nil {
		return nil, fmt.Errorf("failed to list group stop words for %d: %w", groupID, err)
	}
	return words, nil
}
