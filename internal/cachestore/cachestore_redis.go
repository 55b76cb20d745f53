package cachestore

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

type RedisCacheStore struct {
	Data   *cache.Cache
	Client *redis.Client
	TTL    time.Duration
}

var _ CacheStore = (*RedisCacheStore)(nil)

func NewRedisCacheStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisCacheStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return newRedisCacheStore(ctx, redis.NewClient(opt), ttl)
}

func newRedisCacheStore(ctx context.Context, rdb *redis.Client, ttl time.Duration) (*RedisCacheStore, error) {
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	// local tier stays short so that purges from another replica become visible quickly
	localTTL := ttl
	if localTTL > 5*time.Second {
		localTTL = 5 * time.Second
	}
	data := cache.New(&cache.Options{
		Redis:      rdb,
		LocalCache: cache.NewTinyLFU(10_000, localTTL),
	})
	return &RedisCacheStore{
		Data:   data,
		Client: rdb,
		TTL:    ttl,
	}, nil
}

func redisCacheKey(name, key string) string {
	return "ngguard/cache/" + name + "/" + key
}

func (s *RedisCacheStore) Get(ctx context.Context, name, key string) (string, bool, error) {
	var val string
	err := s.Data.Get(ctx, redisCacheKey(name, key), &val)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisCacheStore) Set(ctx context.Context, name, key string, val string) error {
	return s.Data.Set(&cache.Item{
		Ctx:   ctx,
		Key:   redisCacheKey(name, key),
		Value: val,
		TTL:   s.TTL,
	})
}

func (s *RedisCacheStore) Purge(ctx context.Context, name, key string) error {
	err := s.Data.Delete(ctx, redisCacheKey(name, key))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}

func (s *RedisCacheStore) PurgeAll(ctx context.Context, name string) error {
	iter := s.Client.Scan(ctx, 0, redisCacheKey(name, "*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := s.Data.Delete(ctx, iter.Val()); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			return err
		}
	}
	return iter.Err()
}

func (s *RedisCacheStore) Close() error {
	return s.Client.Close()
}
