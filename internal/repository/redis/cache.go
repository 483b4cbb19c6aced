package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

var errCacheType = errors.New("cached value has unexpected type")

// Cache is a JSON read-through cache. Concurrent misses on the same key are
// collapsed into a single loader call.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	return c.rdb.Del(ctx, keys...).Err()
}

func decode[T any](s string, err error) (T, bool, error) {
	var out T

	if errors.Is(err, redis.Nil) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}

	if err := json.Unmarshal([]byte(s), &out); err != nil {
		// a corrupt entry is treated as a miss and overwritten by the loader
		return out, false, nil
	}

	return out, true, nil
}

// GetOrSetJSON returns the value cached under key, loading and storing it
// with ttl on a miss. Redis failures fall through to the loader.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	get := func() (T, bool, error) {
		return decode[T](c.rdb.Get(ctx, key).Result())
	}
	set := func(b []byte) error {
		return c.rdb.Set(ctx, key, b, ttl).Err()
	}

	return load(ctx, c, key, get, set, loader)
}

// GetOrSetFieldJSON is GetOrSetJSON for one field of a hash. All fields share
// the hash TTL and go away together when the hash key is deleted.
func GetOrSetFieldJSON[T any](
	ctx context.Context,
	c *Cache,
	key, field string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	get := func() (T, bool, error) {
		return decode[T](c.rdb.HGet(ctx, key, field).Result())
	}
	set := func(b []byte) error {
		pipe := c.rdb.TxPipeline()
		pipe.HSet(ctx, key, field, b)
		pipe.Expire(ctx, key, ttl)
		_, err := pipe.Exec(ctx)
		return err
	}

	return load(ctx, c, fmt.Sprintf("%s#%s", key, field), get, set, loader)
}

func load[T any](
	ctx context.Context,
	c *Cache,
	flightKey string,
	get func() (T, bool, error),
	set func(b []byte) error,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	if v, ok, err := get(); err == nil && ok {
		return v, nil
	}

	vAny, err, _ := c.sf.Do(flightKey, func() (any, error) {
		if v, ok, err := get(); err == nil && ok {
			return v, nil
		}

		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		if b, err := json.Marshal(v); err == nil {
			_ = set(b)
		}

		return v, nil
	})
	if err != nil {
		return zero, err
	}

	v, ok := vAny.(T)
	if !ok {
		return zero, errCacheType
	}

	return v, nil
}

// InvalidateShow drops every cached read model of a show.
func (c *Cache) InvalidateShow(ctx context.Context, showID int64) error {
	return c.Del(
		ctx,
		KeyShowSummary(showID),
		KeyShowAvailability(showID),
		KeyShowSeatMap(showID),
	)
}
