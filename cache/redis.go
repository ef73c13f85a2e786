package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/rpupo63/blog-backend/invalidate"
)

// Redis is a Cache shared by every instance. Each group keeps a set of the
// keys filled under it so a group can be dropped in one round trip, and a
// counter that every invalidation increments. Set watches that counter.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(key string) string {
	return r.prefix + "cache:" + key
}

func (r *Redis) groupKey(g invalidate.Group) string {
	return r.prefix + "group:" + string(g)
}

func (r *Redis) genKey(g invalidate.Group) string {
	return r.prefix + "gen:" + string(g)
}

func (r *Redis) Generation(ctx context.Context, group invalidate.Group) (uint64, error) {
	gen, err := r.client.Get(ctx, r.genKey(group)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis generation %s: %w", group, err)
	}
	return gen, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (r *Redis) Set(ctx context.Context, group invalidate.Group, gen uint64, key string, value []byte) error {
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, r.genKey(group)).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return ErrStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key(key), value, r.ttl)
			pipe.SAdd(ctx, r.groupKey(group), r.key(key))
			if r.ttl > 0 {
				pipe.Expire(ctx, r.groupKey(group), 2*r.ttl)
			}
			return nil
		})
		return err
	}, r.genKey(group))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return ErrStale
	default:
		return fmt.Errorf("redis set %s: %w", key, err)
	}
}

func (r *Redis) InvalidateGroups(ctx context.Context, groups ...invalidate.Group) error {
	for _, g := range groups {
		if err := r.client.Incr(ctx, r.genKey(g)).Err(); err != nil {
			return fmt.Errorf("redis bump %s: %w", g, err)
		}
		members, err := r.client.SMembers(ctx, r.groupKey(g)).Result()
		if err != nil {
			return fmt.Errorf("redis members %s: %w", g, err)
		}
		keys := append(members, r.groupKey(g))
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis invalidate %s: %w", g, err)
		}
	}
	return nil
}
