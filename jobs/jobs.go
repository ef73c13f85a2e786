// Package jobs runs the periodic maintenance work of a blog instance.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/models"
)

const (
	DefaultPruneSchedule = "@every 1h"
	DefaultStatsSchedule = "@every 6h"

	jobTimeout = 2 * time.Minute
)

type RevocationPruner interface {
	PruneRevocations(ctx context.Context) (int, error)
}

type StatsSource interface {
	Stats(ctx context.Context) (models.BlogStats, error)
}

type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
	ctx    context.Context
	jobs   []string
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: log.With().Str("component", "jobs").Logger(),
		ctx:    context.Background(),
	}
}

// Add registers fn under schedule. Each run gets its own timeout derived from
// the context passed to Run.
func (s *Scheduler) Add(name, schedule string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(schedule, func() { s.runJob(name, fn) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, schedule, err)
	}
	s.jobs = append(s.jobs, name)
	return nil
}

func (s *Scheduler) runJob(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Error().Err(err).Str("job", name).Msg("job failed")
		return
	}
	s.logger.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.logger.Info().Strs("jobs", s.jobs).Msg("scheduler started")
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
	return nil
}

// PruneRevocations drops expired entries from the token revocation list.
func PruneRevocations(p RevocationPruner) func(ctx context.Context) error {
	logger := log.With().Str("component", "jobs").Str("job", "prune-revocations").Logger()
	return func(ctx context.Context) error {
		n, err := p.PruneRevocations(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info().Int("pruned", n).Msg("pruned expired revocations")
		}
		return nil
	}
}

// LogStats writes the current aggregate counters to the log.
func LogStats(src StatsSource) func(ctx context.Context) error {
	logger := log.With().Str("component", "jobs").Str("job", "stats").Logger()
	return func(ctx context.Context) error {
		stats, err := src.Stats(ctx)
		if err != nil {
			return err
		}
		logger.Info().
			Int("totalBlogs", stats.TotalBlogs).
			Int("publishedBlogs", stats.PublishedBlogs).
			Int64("totalViews", stats.TotalViews).
			Int64("totalLikes", stats.TotalLikes).
			Msg("blog stats")
		return nil
	}
}
