package moderation

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngguard/internal/cachestore"
	"github.com/iamwavecut/ngguard/internal/db"
)

const stopWordsCacheName = "stop_words"

// StopWordFilter matches text against the global and group stop words.
// Lists are read through the cache; admin changes must call Invalidate.
type StopWordFilter struct {
	store db.StopWordStore
	cache cachestore.CacheStore
}

func NewStopWordFilter(store db.StopWordStore, cache cachestore.CacheStore) *StopWordFilter {
	return &StopWordFilter{store: store, cache: cache}
}

func (f *StopWordFilter) getLogEntry() *log.Entry {
	return log.WithField("object", "StopWordFilter")
}

// Matches is a case-insensitive substring test, so "spam" also matches "spammer".
func (f *StopWordFilter) Matches(ctx context.Context, text string, groupID int64) (bool, error) {
	if text == "" {
		return false, nil
	}
	words, err := f.words(ctx, groupID)
	if err != nil {
		return false, err
	}
	return containsAny(strings.ToLower(text), words), nil
}

func containsAny(lowered string, words []string) bool {
	for _, word := range words {
		if word == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

func (f *StopWordFilter) words(ctx context.Context, groupID int64) ([]string, error) {
	entry := f.getLogEntry().WithField("group_id", groupID)
	key := strconv.FormatInt(groupID, 10)

	if f.cache != nil {
		raw, ok, err := f.cache.Get(ctx, stopWordsCacheName, key)
		if err != nil {
			entry.WithField("error", err.Error()).Warn("stop words cache get failed")
		} else if ok {
			var words []string
			if err := json.Unmarshal([]byte(raw), &words); err == nil {
				return words, nil
			}
			entry.Warn("stop words cache holds garbage, reloading")
		}
	}

	words, err := f.store.ListStopWords(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		if raw, err := json.Marshal(words); err == nil {
			if err := f.cache.Set(ctx, stopWordsCacheName, key, string(raw)); err != nil {
				entry.WithField("error", err.Error()).Warn("stop words cache set failed")
			}
		}
	}
	return words, nil
}

// Invalidate drops the cached list of one group.
func (f *StopWordFilter) Invalidate(ctx context.Context, groupID int64) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Purge(ctx, stopWordsCacheName, strconv.FormatInt(groupID, 10)); err != nil {
		f.getLogEntry().WithField("error", err.Error()).Warn("stop words cache purge failed")
	}
}

// InvalidateAll is needed after a global word changes, since every group list embeds it.
func (f *StopWordFilter) InvalidateAll(ctx context.Context) {
	if f.cache == nil {
		return
	}
	if err := f.cache.PurgeAll(ctx, stopWordsCacheName); err != nil {
		f.getLogEntry().WithField("error", err.Error()).Warn("stop words cache purge failed")
	}
}
