// Package content is the single entry point for reading and writing blog
// records. Every write returns the invalidation event it caused.
package content

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/invalidate"
	"github.com/rpupo63/blog-backend/models"
)

// Scope selects which records a read may see.
type Scope int

const (
	// ScopePublic sees published records only.
	ScopePublic Scope = iota
	// ScopeAdmin sees everything.
	ScopeAdmin
)

func (s Scope) String() string {
	if s == ScopeAdmin {
		return "admin"
	}
	return "public"
}

type Gateway struct {
	store      Store
	dispatcher *invalidate.Dispatcher
	now        func() time.Time
	logger     zerolog.Logger
}

type Option func(*Gateway)

// WithClock replaces time.Now for timestamps the gateway assigns.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// NewGateway builds a gateway on store. dispatcher may be nil, in which case
// events are only returned.
func NewGateway(store Store, dispatcher *invalidate.Dispatcher, opts ...Option) *Gateway {
	g := &Gateway{
		store:      store,
		dispatcher: dispatcher,
		now:        time.Now,
		logger:     log.With().Str("component", "contentGateway").Logger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FetchAll lists records visible in scope. A store that refuses the read
// yields an empty list.
func (g *Gateway) FetchAll(ctx context.Context, scope Scope) ([]models.Blog, error) {
	blogs, err := g.store.List(ctx, scope == ScopePublic)
	if err != nil {
		if errs.IsPermissionDenied(err) {
			g.logger.Warn().Err(err).Str("scope", scope.String()).Msg("store refused listing, returning empty result")
			return []models.Blog{}, nil
		}
		return nil, err
	}
	if blogs == nil {
		blogs = []models.Blog{}
	}
	return blogs, nil
}

// FetchByID returns one record. Unpublished records are not found on the
// public scope.
func (g *Gateway) FetchByID(ctx context.Context, id uuid.UUID, scope Scope) (models.Blog, error) {
	blog, err := g.store.Get(ctx, id)
	if err != nil {
		return models.Blog{}, err
	}
	if scope == ScopePublic && !blog.Published {
		return models.Blog{}, errs.NewNotFound("blog")
	}
	return blog, nil
}

// Create validates in and stores a new record with zeroed counters.
func (g *Gateway) Create(ctx context.Context, in models.BlogInput) (uuid.UUID, invalidate.Event, error) {
	if err := in.Validate(); err != nil {
		return uuid.Nil, invalidate.Event{}, err
	}

	now := g.now().UTC()
	blog := models.Blog{
		Title:           in.Title,
		Slug:            models.Slugify(in.Title),
		Excerpt:         in.Excerpt,
		Content:         in.Content,
		Thumbnail:       in.Thumbnail,
		Category:        in.Category,
		AuthorName:      in.AuthorName,
		AuthorAvatar:    in.AuthorAvatar,
		AuthorBio:       in.AuthorBio,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		SEOKeywords:     datatypes.JSONSlice[string](models.NormalizeList(in.SEOKeywords)),
		Published:       in.Published,
		Featured:        in.Featured,
		ReadTime:        in.ReadTime,
		CreatedAt:       now,
		UpdatedAt:       now,
		Tags:            models.NewTags(uuid.Nil, models.NormalizeList(in.Tags)),
	}
	if in.Slug != "" {
		blog.Slug = models.Slugify(in.Slug)
	}
	if blog.MetaTitle == "" {
		blog.MetaTitle = blog.Title
	}
	if blog.MetaDescription == "" {
		blog.MetaDescription = blog.Excerpt
	}
	if blog.ReadTime == 0 {
		blog.ReadTime = models.DefaultReadTime
	}
	if blog.Published {
		blog.PublishedAt = &now
	}

	if err := g.store.Insert(ctx, &blog); err != nil {
		g.logger.Error().Err(err).Str("title", in.Title).Msg("create failed")
		return uuid.Nil, invalidate.Event{}, err
	}

	ev := invalidate.NewEvent(invalidate.OpCreate, blog.ID, now)
	ev.Publishes = blog.Published
	g.publish(ctx, ev)
	return blog.ID, ev, nil
}

// Update applies patch. updatedAt always moves; publishedAt moves whenever
// the patch sets published=true. Concurrent updates are last write wins.
func (g *Gateway) Update(ctx context.Context, id uuid.UUID, patch models.BlogPatch) (models.Blog, invalidate.Event, error) {
	if err := patch.Validate(); err != nil {
		return models.Blog{}, invalidate.Event{}, err
	}

	prior, err := g.store.Get(ctx, id)
	if err != nil {
		return models.Blog{}, invalidate.Event{}, err
	}

	now := g.now().UTC()
	fields := patchFields(patch, now)

	var tags *[]string
	if patch.Tags != nil {
		normalized := models.NormalizeList(*patch.Tags)
		tags = &normalized
	}

	updated, err := g.store.Patch(ctx, id, fields, tags)
	if err != nil {
		g.logger.Error().Err(err).Str("blogID", id.String()).Msg("update failed")
		return models.Blog{}, invalidate.Event{}, err
	}

	ev := invalidate.NewEvent(invalidate.OpUpdate, id, now)
	ev.Publishes = !prior.Published && updated.Published
	g.publish(ctx, ev)
	return updated, ev, nil
}

func patchFields(p models.BlogPatch, now time.Time) map[string]any {
	fields := map[string]any{"updated_at": now}

	setString := func(column string, v *string) {
		if v != nil {
			fields[column] = *v
		}
	}
	setString("title", p.Title)
	setString("excerpt", p.Excerpt)
	setString("content", p.Content)
	setString("thumbnail", p.Thumbnail)
	setString("category", p.Category)
	setString("author_name", p.AuthorName)
	setString("author_avatar", p.AuthorAvatar)
	setString("meta_title", p.MetaTitle)
	setString("meta_description", p.MetaDescription)

	switch {
	case p.Slug != nil:
		fields["slug"] = models.Slugify(*p.Slug)
	case p.Title != nil:
		fields["slug"] = models.Slugify(*p.Title)
	}
	if p.AuthorBio != nil {
		fields["author_bio"] = p.AuthorBio
	}
	if p.SEOKeywords != nil {
		fields["seo_keywords"] = datatypes.JSONSlice[string](models.NormalizeList(*p.SEOKeywords))
	}
	if p.Featured != nil {
		fields["featured"] = *p.Featured
	}
	if p.ReadTime != nil {
		fields["read_time"] = *p.ReadTime
	}
	if p.Published != nil {
		fields["published"] = *p.Published
		if *p.Published {
			fields["published_at"] = now
		}
	}
	return fields
}

// Delete removes a record permanently.
func (g *Gateway) Delete(ctx context.Context, id uuid.UUID) (invalidate.Event, error) {
	if err := g.store.Delete(ctx, id); err != nil {
		g.logger.Error().Err(err).Str("blogID", id.String()).Msg("delete failed")
		return invalidate.Event{}, err
	}

	ev := invalidate.NewEvent(invalidate.OpDelete, id, g.now().UTC())
	g.publish(ctx, ev)
	return ev, nil
}

// IncrementView adds one view. The event names no groups.
func (g *Gateway) IncrementView(ctx context.Context, id uuid.UUID) (invalidate.Event, error) {
	if err := g.store.AddCounter(ctx, id, models.CounterViews, 1); err != nil {
		return invalidate.Event{}, err
	}
	return invalidate.NewEvent(invalidate.OpView, id, g.now().UTC()), nil
}

// AdjustLikes adds delta, which must be +1 or -1, to the like counter.
func (g *Gateway) AdjustLikes(ctx context.Context, id uuid.UUID, delta int) (invalidate.Event, error) {
	if delta != 1 && delta != -1 {
		return invalidate.Event{}, errs.NewValidationError("delta", "must be +1 or -1")
	}
	if err := g.store.AddCounter(ctx, id, models.CounterLikes, int64(delta)); err != nil {
		return invalidate.Event{}, err
	}

	ev := invalidate.NewEvent(invalidate.OpLike, id, g.now().UTC())
	g.publish(ctx, ev)
	return ev, nil
}

func (g *Gateway) publish(ctx context.Context, ev invalidate.Event) {
	if g.dispatcher != nil {
		g.dispatcher.Publish(ctx, ev)
	}
}
