// Package cache stores serialized query results keyed by query and grouped
// by the invalidation group that makes them stale.
package cache

import (
	"context"
	"errors"

	"github.com/rpupo63/blog-backend/invalidate"
)

var (
	// ErrMiss is returned by Get when no fresh value exists for a key.
	ErrMiss = errors.New("cache miss")
	// ErrStale is returned by Set when the group was invalidated after the
	// generation the value was loaded under.
	ErrStale = errors.New("cache generation moved")
)

// Cache stores values under a group generation. Every InvalidateGroups call
// moves the generation of the groups it names, so a value loaded before an
// invalidation can never be stored after it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Generation reports the current generation of group. Read it before
	// loading the value that will be passed to Set.
	Generation(ctx context.Context, group invalidate.Group) (uint64, error)
	Set(ctx context.Context, group invalidate.Group, gen uint64, key string, value []byte) error
	InvalidateGroups(ctx context.Context, groups ...invalidate.Group) error
}
