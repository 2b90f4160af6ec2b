package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/royalty/internal/catalog"
)

const defaultKeyPrefix = "royalty:bk"

// Cached fronts a Store with a Redis map from (kind, tenant, business key) to
// entity id. Import resolves the same business keys over and over (every
// Release row looks up its Track, every Campaign row its children), and the
// id lookup is the cheap half of that.
//
// Cached entries are hints only: every hit is loaded from the backing store and
// checked against the requested key, so a stale entry costs one extra read and
// never returns the wrong entity. Redis failures are logged and the backing
// store is used directly.
type Cached struct {
	Store
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

// NewCached wraps s. A zero ttl disables expiry.
func NewCached(s Store, rdb redis.Cmdable, ttl time.Duration) *Cached {
	return &Cached{Store: s, rdb: rdb, ttl: ttl, prefix: defaultKeyPrefix}
}

func (c *Cached) cacheKey(k catalog.Kind, tenant, key string) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.prefix, k, tenant, key)
}

func (c *Cached) FindOne(ctx context.Context, k catalog.Kind, tenant, key string) (catalog.Entity, error) {
	if key == "" {
		return c.Store.FindOne(ctx, k, tenant, key)
	}
	ck := c.cacheKey(k, tenant, key)

	id, err := c.rdb.Get(ctx, ck).Result()
	switch {
	case err == nil:
		e, findErr := c.Store.FindByID(ctx, k, id)
		if findErr == nil && e.TenantID() == tenant && e.BusinessKey() == key {
			return e, nil
		}
		if findErr != nil && !errors.Is(findErr, ErrNotFound) {
			return nil, findErr
		}
		c.rdb.Del(ctx, ck)
	case !errors.Is(err, redis.Nil):
		slog.Warn("key cache read failed", "kind", k, "error", err)
	}

	e, err := c.Store.FindOne(ctx, k, tenant, key)
	if err != nil {
		return nil, err
	}
	c.remember(ctx, e)
	return e, nil
}

func (c *Cached) Save(ctx context.Context, e catalog.Entity) error {
	if err := c.Store.Save(ctx, e); err != nil {
		return err
	}
	c.remember(ctx, e)
	return nil
}

func (c *Cached) remember(ctx context.Context, e catalog.Entity) {
	if e.BusinessKey() == "" {
		return
	}
	ck := c.cacheKey(e.Kind(), e.TenantID(), e.BusinessKey())
	if err := c.rdb.Set(ctx, ck, e.EntityID(), c.ttl).Err(); err != nil {
		slog.Warn("key cache write failed", "kind", e.Kind(), "error", err)
	}
}
