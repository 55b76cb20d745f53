package moderation

import (
	"sync"
)

type lockKey struct {
	userID  int64
	groupID int64
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex serializes work per (user, group) and forgets idle keys.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[lockKey]*keyedEntry
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[lockKey]*keyedEntry)}
}

func (k *keyedMutex) Lock(userID, groupID int64) func() {
	key := lockKey{userID: userID, groupID: groupID}

	k.mu.Lock()
	entry, ok := k.entries[key]
	if !ok {
		entry = &keyedEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
