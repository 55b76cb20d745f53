// Package cachestore caches string values under a (name, key) pair with a fixed TTL.
//
// The moderation core keeps the per-group stop-word lists here so that a message does not
// cost a database round trip; admin commands purge the affected entries.
package cachestore

import (
	"context"
)

type CacheStore interface {
	Get(ctx context.Context, name, key string) (string, bool, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
	PurgeAll(ctx context.Context, name string) error
}
