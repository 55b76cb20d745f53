package moderation

import (
	"context"
	"time"

	"github.com/iamwavecut/ngguard/internal/db"
)

// RateResult is Allowed, or Blocked with Remaining whole seconds of the window.
type RateResult struct {
	Allowed   bool
	Remaining time.Duration
}

// RemainingSeconds is never rounded up; a message 14.2s into a 15s window reports 0.
func (r RateResult) RemainingSeconds() int64 {
	return int64(r.Remaining / time.Second)
}

type RateLimiter struct {
	store db.MessageStore
}

func NewRateLimiter(store db.MessageStore) *RateLimiter {
	return &RateLimiter{store: store}
}

// Check reads the last allowed message of the user in the group. It does not record anything:
// the timestamp is written by the pipeline only once the message is allowed.
func (r *RateLimiter) Check(ctx context.Context, userID, groupID int64, now time.Time, delay time.Duration) (RateResult, error) {
	last, err := r.store.GetLastMessage(ctx, userID, groupID)
	if err != nil {
		return RateResult{}, err
	}
	if last == nil {
		return RateResult{Allowed: true}, nil
	}
	return evaluateRate(last.LastMessageTime, now, delay), nil
}

func evaluateRate(last, now time.Time, delay time.Duration) RateResult {
	if last.IsZero() || delay <= 0 {
		return RateResult{Allowed: true}
	}
	elapsed := now.Sub(last)
	if elapsed >= delay {
		return RateResult{Allowed: true}
	}
	remaining := (delay - elapsed).Truncate(time.Second)
	return RateResult{Allowed: false, Remaining: remaining}
}
