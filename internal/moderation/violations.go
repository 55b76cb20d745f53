package moderation

import (
	"context"
	"time"

	"github.com/iamwavecut/ngguard/internal/db"
)

type ViolationTracker struct {
	store db.ViolationStore
}

func NewViolationTracker(store db.ViolationStore) *ViolationTracker {
	return &ViolationTracker{store: store}
}

// Record adds one violation and returns the record as it is after the increment.
func (t *ViolationTracker) Record(ctx context.Context, sender Sender, groupID int64, at time.Time) (*db.ViolationRecord, error) {
	return t.store.IncrementViolation(ctx, sender.ID, groupID, sender.Username, sender.FirstName, at)
}

func (t *ViolationTracker) Get(ctx context.Context, userID, groupID int64) (*db.ViolationRecord, error) {
	return t.store.GetViolation(ctx, userID, groupID)
}
