package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache wraps Redis caching for ledger query results. Concurrent identical
// queries collapse into one backend read through singleflight.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCache instantiates the cache helper. A nil client disables caching but
// keeps the singleflight dedupe.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Key composes the cache key for one ledger query.
func Key(companyID, accountID int64, from, to time.Time) string {
	return fmt.Sprintf("ledger:%d:%d:%s:%s", companyID, accountID, from.Format("2006-01-02"), to.Format("2006-01-02"))
}

// Fetch loads a cached ledger or populates it using the loader.
func (c *Cache) Fetch(ctx context.Context, key string, loader func(context.Context) (AccountLedger, error)) (AccountLedger, error) {
	if loader == nil {
		return AccountLedger{}, errors.New("ledger cache: loader required")
	}
	if c == nil {
		return loader(ctx)
	}
	resultCh := c.group.DoChan(key, func() (any, error) {
		if c.client != nil {
			raw, err := c.client.Get(ctx, key).Bytes()
			if err == nil {
				var cached AccountLedger
				if err := json.Unmarshal(raw, &cached); err == nil {
					return cached, nil
				}
			} else if !errors.Is(err, redis.Nil) {
				return AccountLedger{}, err
			}
		}
		fresh, err := loader(ctx)
		if err != nil {
			return AccountLedger{}, err
		}
		if c.client != nil {
			if raw, err := json.Marshal(fresh); err == nil {
				_ = c.client.Set(ctx, key, raw, c.ttl).Err()
			}
		}
		return fresh, nil
	})
	select {
	case <-ctx.Done():
		return AccountLedger{}, ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			return AccountLedger{}, res.Err
		}
		return res.Val.(AccountLedger), nil
	}
}

// Invalidate drops cached ledgers for a company after new postings.
func (c *Cache) Invalidate(ctx context.Context, companyID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	pattern := fmt.Sprintf("ledger:%d:*", companyID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
