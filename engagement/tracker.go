// Package engagement records reader activity: fire-and-forget view counts
// and optimistic like toggles.
package engagement

//go:generate mockgen -source=tracker.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/invalidate"
)

// Counter is the slice of the content gateway the tracker writes through.
type Counter interface {
	IncrementView(ctx context.Context, id uuid.UUID) (invalidate.Event, error)
	AdjustLikes(ctx context.Context, id uuid.UUID, delta int) (invalidate.Event, error)
}

const DefaultViewTimeout = 5 * time.Second

type Tracker struct {
	counter     Counter
	viewTimeout time.Duration
	inflight    sync.WaitGroup
	logger      zerolog.Logger
}

func NewTracker(counter Counter, viewTimeout time.Duration) *Tracker {
	if viewTimeout <= 0 {
		viewTimeout = DefaultViewTimeout
	}
	return &Tracker{
		counter:     counter,
		viewTimeout: viewTimeout,
		logger:      log.With().Str("component", "engagementTracker").Logger(),
	}
}

// ViewMounted records one view of id in the background. It returns at once;
// the increment outlives the request that triggered it and failures are only
// logged.
func (t *Tracker) ViewMounted(ctx context.Context, id uuid.UUID) {
	ctx = context.WithoutCancel(ctx)

	t.inflight.Add(1)
	go func() {
		defer t.inflight.Done()

		ctx, cancel := context.WithTimeout(ctx, t.viewTimeout)
		defer cancel()

		if _, err := t.counter.IncrementView(ctx, id); err != nil {
			t.logger.Warn().Err(err).Str("blogID", id.String()).Msg("view increment dropped")
		}
	}()
}

// Close waits for in-flight view increments.
func (t *Tracker) Close() {
	t.inflight.Wait()
}

// ToggleLike flips like optimistically and sends the matching delta. On
// failure the like is rolled back to exactly its prior value and a mutation
// error is returned.
func (t *Tracker) ToggleLike(ctx context.Context, like *Like) (bool, error) {
	liked, err := like.Begin()
	if err != nil {
		return like.Liked(), err
	}

	delta := -1
	if liked {
		delta = 1
	}

	if _, err := t.counter.AdjustLikes(ctx, like.BlogID, delta); err != nil {
		prior := like.Rollback()
		t.logger.Warn().Err(err).Str("blogID", like.BlogID.String()).Bool("restored", prior).Msg("like rolled back")
		if errs.IsNotFound(err) || errs.IsMutationError(err) {
			return prior, err
		}
		return prior, errs.NewMutationError("update like", err)
	}

	return like.Commit(), nil
}
