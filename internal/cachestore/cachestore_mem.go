package cachestore

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type MemCacheStore struct {
	Data *expirable.LRU[string, string]
}

var _ CacheStore = MemCacheStore{}

func NewMemCacheStore(capacity int, ttl time.Duration) MemCacheStore {
	return MemCacheStore{
		Data: expirable.NewLRU[string, string](capacity, nil, ttl),
	}
}

func memCacheKey(name, key string) string {
	return name + "/" + key
}

func (s MemCacheStore) Get(_ context.Context, name, key string) (string, bool, error) {
	v, ok := s.Data.Get(memCacheKey(name, key))
	return v, ok, nil
}

func (s MemCacheStore) Set(_ context.Context, name, key string, val string) error {
	s.Data.Add(memCacheKey(name, key), val)
	return nil
}

func (s MemCacheStore) Purge(_ context.Context, name, key string) error {
	s.Data.Remove(memCacheKey(name, key))
	return nil
}

func (s MemCacheStore) PurgeAll(_ context.Context, name string) error {
	prefix := name + "/"
	for _, k := range s.Data.Keys() {
		if strings.HasPrefix(k, prefix) {
			s.Data.Remove(k)
		}
	}
	return nil
}
