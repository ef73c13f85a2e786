package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rpupo63/blog-backend/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type pruner struct {
	n   int
	err error
}

func (p pruner) PruneRevocations(context.Context) (int, error) { return p.n, p.err }

type statsFunc func(context.Context) (models.BlogStats, error)

func (f statsFunc) Stats(ctx context.Context) (models.BlogStats, error) { return f(ctx) }

func TestAdd_RejectsBadSchedule(t *testing.T) {
	s := NewScheduler()

	err := s.Add("broken", "every now and then", func(context.Context) error { return nil })

	assert.Error(t, err)
	assert.Empty(t, s.jobs)
}

func TestRun_ExecutesJobsUntilCancelled(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	require.NoError(t, s.Add("tick", "@every 1s", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		runs.Add(1)
		return errors.New("logged, not fatal")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestPruneRevocations(t *testing.T) {
	assert.NoError(t, PruneRevocations(pruner{n: 3})(context.Background()))
	assert.EqualError(t, PruneRevocations(pruner{err: errors.New("redis down")})(context.Background()), "redis down")
}

func TestLogStats(t *testing.T) {
	var called bool
	job := LogStats(statsFunc(func(context.Context) (models.BlogStats, error) {
		called = true
		return models.BlogStats{TotalBlogs: 2, PublishedBlogs: 1}, nil
	}))
	assert.NoError(t, job(context.Background()))
	assert.True(t, called)

	failing := LogStats(statsFunc(func(context.Context) (models.BlogStats, error) {
		return models.BlogStats{}, errors.New("store offline")
	}))
	assert.Error(t, failing(context.Background()))
}
