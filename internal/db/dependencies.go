package db

import (
	"context"
	"time"
)

type (
	GroupStore interface {
		// GetGroupSettings returns nil, nil for an unknown group.
		GetGroupSettings(ctx context.Context, groupID int64) (*GroupSettings, error)
		SetGroupSettings(ctx context.Context, settings *GroupSettings) error
	}

	StopWordStore interface {
		AddStopWord(ctx context.Context, word StopWord) (bool, error)
		RemoveStopWord(ctx context.Context, word StopWord) (bool, error)
		// ListStopWords returns the union of global words and the words of groupID.
		ListStopWords(ctx context.Context, groupID int64) ([]string, error)
		ListGlobalStopWords(ctx context.Context) ([]string, error)
		ListGroupStopWords(ctx context.Context, groupID int64) ([]string, error)
	}

	ViolationStore interface {
		// GetViolation returns nil, nil when the user has no record in the group.
		GetViolation(ctx context.Context, userID, groupID int64) (*ViolationRecord, error)
		IncrementViolation(ctx context.Context, userID, groupID int64, username, firstName string, at time.Time) (*ViolationRecord, error)
		BanUser(ctx context.Context, userID, groupID int64, username, firstName string) error
		UnbanUser(ctx context.Context, userID, groupID int64) (bool, error)
		ResetViolations(ctx context.Context, userID, groupID int64) (bool, error)
	}

	MessageStore interface {
		GetLastMessage(ctx context.Context, userID, groupID int64) (*LastMessage, error)
		SetLastMessage(ctx context.Context, userID, groupID int64, at time.Time) error
	}

	UserStore interface {
		UpsertUser(ctx context.Context, profile *UserProfile) error
		GetUserByUsername(ctx context.Context, username string) (*UserProfile, error)
	}

	Client interface {
		GroupStore
		StopWordStore
		ViolationStore
		MessageStore
		UserStore
		Close() error
	}
)
