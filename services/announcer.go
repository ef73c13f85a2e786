// Package services announces newly published posts on outside channels.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/config"
	"github.com/rpupo63/blog-backend/content"
	"github.com/rpupo63/blog-backend/invalidate"
	"github.com/rpupo63/blog-backend/models"
)

const announceTimeout = 30 * time.Second

type Channel interface {
	Name() string
	Announce(ctx context.Context, blog models.Blog) error
}

type BlogReader interface {
	FetchByID(ctx context.Context, id uuid.UUID, scope content.Scope) (models.Blog, error)
}

// Announcer reacts to events that publish a post for the first time and
// sends it to every configured channel in the background.
type Announcer struct {
	blogs    BlogReader
	channels []Channel
	inflight sync.WaitGroup
	logger   zerolog.Logger
}

func NewAnnouncer(blogs BlogReader, channels ...Channel) *Announcer {
	return &Announcer{
		blogs:    blogs,
		channels: channels,
		logger:   log.With().Str("component", "announcer").Logger(),
	}
}

// AnnouncerFromConfig enables the e-mail channel when RESEND_API_KEY,
// RESEND_FROM_EMAIL and ANNOUNCE_EMAILS are set, and the Twitter channel
// when all four TWITTER_* credentials are set.
func AnnouncerFromConfig(cfg map[string]string, blogs BlogReader) *Announcer {
	baseURL := config.GetString(cfg, "BASE_URL", "")
	var channels []Channel

	apiKey := config.GetString(cfg, "RESEND_API_KEY", "")
	from := config.GetString(cfg, "RESEND_FROM_EMAIL", "")
	recipients := config.GetList(cfg, "ANNOUNCE_EMAILS")
	if apiKey != "" && from != "" && len(recipients) > 0 {
		channels = append(channels, NewEmailChannel(apiKey, from, recipients, baseURL))
	}

	creds := TwitterCredentials{
		APIKey:            config.GetString(cfg, "TWITTER_API_KEY", ""),
		APIKeySecret:      config.GetString(cfg, "TWITTER_API_KEY_SECRET", ""),
		AccessToken:       config.GetString(cfg, "TWITTER_ACCESS_TOKEN", ""),
		AccessTokenSecret: config.GetString(cfg, "TWITTER_ACCESS_TOKEN_SECRET", ""),
	}
	if creds.complete() {
		channels = append(channels, NewTwitterChannel(creds, baseURL))
	}

	return NewAnnouncer(blogs, channels...)
}

func (a *Announcer) Channels() []string {
	names := make([]string, 0, len(a.channels))
	for _, c := range a.channels {
		names = append(names, c.Name())
	}
	return names
}

// Handle is subscribed to the dispatcher. Events relayed from other
// instances were announced where they happened.
func (a *Announcer) Handle(ctx context.Context, ev invalidate.Event) {
	if !ev.Publishes || ev.Origin != "" || len(a.channels) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()

		ctx, cancel := context.WithTimeout(ctx, announceTimeout)
		defer cancel()

		if err := a.Announce(ctx, ev.BlogID); err != nil {
			a.logger.Error().Err(err).Str("blogID", ev.BlogID.String()).Msg("announcement incomplete")
		}
	}()
}

// Announce sends the post to every channel. A failing channel does not stop
// the others; their errors are joined.
func (a *Announcer) Announce(ctx context.Context, id uuid.UUID) error {
	blog, err := a.blogs.FetchByID(ctx, id, content.ScopePublic)
	if err != nil {
		return fmt.Errorf("load blog: %w", err)
	}

	var failures []error
	var successes []string
	for _, c := range a.channels {
		if err := c.Announce(ctx, blog); err != nil {
			a.logger.Error().Err(err).Str("channel", c.Name()).Msg("announce failed")
			failures = append(failures, fmt.Errorf("%s: %w", c.Name(), err))
			continue
		}
		successes = append(successes, c.Name())
	}

	if len(successes) > 0 {
		a.logger.Info().Strs("channels", successes).Str("title", blog.Title).Msg("announced post")
	}
	return errors.Join(failures...)
}

// Close waits for background announcements.
func (a *Announcer) Close() {
	a.inflight.Wait()
}
