// Package directory caches daily login lookups in Redis with a cache-aside
// strategy so repeated presence refreshes do not hammer the directory
// database.
package directory

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cached wraps a Fetcher with a Redis cache. Cache failures fall through to
// the inner fetcher; the cache can only make lookups cheaper, never break
// them.
type Cached struct {
	inner  Fetcher
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCached builds a cache-aside wrapper around inner. A zero ttl defaults
// to one minute.
func NewCached(inner Fetcher, client *redis.Client, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cached{
		inner:  inner,
		client: client,
		prefix: "winchat:directory:",
		ttl:    ttl,
	}
}

// ActiveUsers serves the lookup from Redis when possible, otherwise asks
// the inner fetcher and stores the result.
func (c *Cached) ActiveUsers(ctx context.Context, since time.Time) ([]User, error) {
	key := c.prefix + since.UTC().Format("2006-01-02T15:04:05")

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var users []User
		if err := json.Unmarshal(data, &users); err == nil {
			return users, nil
		}
		log.Printf("directory cache: discarding unreadable entry %s", key)
	} else if err != redis.Nil {
		log.Printf("directory cache get: %v", err)
	}

	users, err := c.inner.ActiveUsers(ctx, since)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(users); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.Printf("directory cache set: %v", err)
		}
	}
	return users, nil
}
