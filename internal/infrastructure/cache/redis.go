// Package cache implements the Redis seen-link layer consulted before
// Postgres during dedup.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"BlogHarvester/internal/ports"
)

const (
	seenSetKey = "blogharvester:seen_links"
	pingWait   = 5 * time.Second
)

// RedisLinkCache keeps seen links in a Redis set. A cache miss is
// always safe; the store remains the source of truth.
type RedisLinkCache struct {
	client *redis.Client
}

var _ ports.LinkCache = (*RedisLinkCache)(nil)

// NewRedisLinkCache parses the URL and verifies connectivity.
func NewRedisLinkCache(url string) (*RedisLinkCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingWait)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisLinkCache{client: client}, nil
}

// Seen reports which of the links are already in the set.
func (c *RedisLinkCache) Seen(ctx context.Context, links []string) (map[string]bool, error) {
	if len(links) == 0 {
		return map[string]bool{}, nil
	}
	members := make([]interface{}, len(links))
	for i, link := range links {
		members[i] = link
	}
	found, err := c.client.SMIsMember(ctx, seenSetKey, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("smismember: %w", err)
	}

	seen := make(map[string]bool, len(links))
	for i, link := range links {
		if i < len(found) && found[i] {
			seen[link] = true
		}
	}
	return seen, nil
}

// MarkSeen adds links to the set after they are persisted.
func (c *RedisLinkCache) MarkSeen(ctx context.Context, links []string) error {
	if len(links) == 0 {
		return nil
	}
	members := make([]interface{}, len(links))
	for i, link := range links {
		members[i] = link
	}
	if err := c.client.SAdd(ctx, seenSetKey, members...).Err(); err != nil {
		return fmt.Errorf("sadd: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisLinkCache) Close() error {
	return c.client.Close()
}
