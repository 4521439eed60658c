// Package cache keeps rendered leaderboards in Redis between point awards.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"foodshare/pkg/models"
)

const defaultPrefix = "foodshare:leaderboard"

type LeaderboardCache struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewLeaderboardCache(rdb redis.UniversalClient, prefix string, ttl time.Duration) *LeaderboardCache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &LeaderboardCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Connect dials addr and pings it once.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (c *LeaderboardCache) key(k string) string {
	return c.prefix + ":" + k
}

// index is the set of every key written since the last invalidation.
func (c *LeaderboardCache) index() string {
	return c.prefix + ":keys"
}

func (c *LeaderboardCache) generation() string {
	return c.prefix + ":gen"
}

func (c *LeaderboardCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.generation()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *LeaderboardCache) Get(ctx context.Context, key string) ([]models.LeaderboardEntry, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, key string, entries []models.LeaderboardEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, c.key(key), raw, c.ttl)
		p.SAdd(ctx, c.index(), c.key(key))
		p.Expire(ctx, c.index(), c.ttl)
		return nil
	})
	return err
}

// Invalidate bumps the generation first so in-flight readers write their
// results under a key nobody reads, then drops what is already cached.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, c.generation()).Err(); err != nil {
		return err
	}
	keys, err := c.rdb.SMembers(ctx, c.index()).Result()
	if err != nil {
		return err
	}
	keys = append(keys, c.index())
	return c.rdb.Del(ctx, keys...).Err()
}
