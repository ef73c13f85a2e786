package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/rpupo63/blog-backend/cache"
	"github.com/rpupo63/blog-backend/feed"
	"github.com/rpupo63/blog-backend/invalidate"
	"github.com/rpupo63/blog-backend/models"
)

// Queries serves reads through a cache. Concurrent misses on the same key
// share one store round trip, and every dispatched event drops the groups it
// names.
type Queries struct {
	gateway     *Gateway
	cache       cache.Cache
	fills       singleflight.Group
	fillTimeout time.Duration
	logger      zerolog.Logger
}

// DefaultFillTimeout bounds one shared store read behind a cache miss.
const DefaultFillTimeout = 10 * time.Second

func NewQueries(gateway *Gateway, c cache.Cache) *Queries {
	return &Queries{
		gateway:     gateway,
		cache:       c,
		fillTimeout: DefaultFillTimeout,
		logger:      log.With().Str("component", "contentQueries").Logger(),
	}
}

// Invalidate drops every cached query in the groups ev names. It is
// subscribed to the dispatcher and applied to events from other instances.
func (q *Queries) Invalidate(ctx context.Context, ev invalidate.Event) {
	if ev.Empty() {
		return
	}
	if err := q.cache.InvalidateGroups(ctx, ev.Groups...); err != nil {
		q.logger.Error().Err(err).Str("op", string(ev.Op)).Msg("cache invalidation failed")
	}
}

// Blogs lists the records of scope.
func (q *Queries) Blogs(ctx context.Context, scope Scope) ([]models.Blog, error) {
	group := invalidate.GroupBlogs
	if scope == ScopeAdmin {
		group = invalidate.GroupAdminBlogs
	}

	var blogs []models.Blog
	err := q.cached(ctx, group, "blogs:"+scope.String(), &blogs, func(ctx context.Context) (any, error) {
		return q.gateway.FetchAll(ctx, scope)
	})
	return blogs, err
}

// Blog returns one record as seen from scope.
func (q *Queries) Blog(ctx context.Context, id uuid.UUID, scope Scope) (models.Blog, error) {
	var blog models.Blog
	err := q.cached(ctx, invalidate.GroupBlog, fmt.Sprintf("blog:%s:%s", scope, id), &blog, func(ctx context.Context) (any, error) {
		return q.gateway.FetchByID(ctx, id, scope)
	})
	return blog, err
}

// Stats folds the full record set.
func (q *Queries) Stats(ctx context.Context) (models.BlogStats, error) {
	var stats models.BlogStats
	err := q.cached(ctx, invalidate.GroupStats, "blog-stats", &stats, func(ctx context.Context) (any, error) {
		blogs, err := q.gateway.FetchAll(ctx, ScopeAdmin)
		if err != nil {
			return nil, err
		}
		return feed.Stats(blogs), nil
	})
	return stats, err
}

// cached decodes the value stored under key into out, filling it from load
// on a miss. Cache failures fall through to the store.
//
// A fill is keyed by the group generation read before load runs, and its
// result is only stored if that generation still holds. The shared load runs
// detached from the caller that started it; a caller whose ctx ends stops
// waiting and gets ctx.Err().
func (q *Queries) cached(ctx context.Context, group invalidate.Group, key string, out any, load func(context.Context) (any, error)) error {
	data, err := q.cache.Get(ctx, key)
	if err == nil {
		if err := json.Unmarshal(data, out); err == nil {
			return nil
		}
		q.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	} else if !errors.Is(err, cache.ErrMiss) {
		q.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	gen, err := q.cache.Generation(ctx, group)
	if err != nil {
		q.logger.Warn().Err(err).Str("group", string(group)).Msg("cache generation read failed, skipping cache")
		value, err := load(ctx)
		if err != nil {
			return err
		}
		return remarshal(value, out)
	}

	fillKey := fmt.Sprintf("%s@%d", key, gen)
	fill := q.fills.DoChan(fillKey, func() (any, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.fillTimeout)
		defer cancel()

		value, err := load(fillCtx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		switch err := q.cache.Set(fillCtx, group, gen, key, encoded); {
		case errors.Is(err, cache.ErrStale):
			q.logger.Debug().Str("key", key).Msg("group invalidated during fill, not caching")
		case err != nil:
			q.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		return encoded, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-fill:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.([]byte), out)
	}
}

func remarshal(value any, out any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, out)
}
