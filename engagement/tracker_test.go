package engagement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/rpupo63/blog-backend/engagement/mocks"
	"github.com/rpupo63/blog-backend/errs"
	"github.com/rpupo63/blog-backend/invalidate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestViewMounted_IncrementsOnceDetachedFromRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	counter := mocks.NewMockCounter(ctrl)
	id := uuid.New()

	counter.EXPECT().IncrementView(gomock.Any(), id).DoAndReturn(func(ctx context.Context, _ uuid.UUID) (invalidate.Event, error) {
		assert.NoError(t, ctx.Err())
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return invalidate.Event{}, nil
	}).Times(1)

	tracker := NewTracker(counter, time.Second)
	reqCtx, cancel := context.WithCancel(context.Background())
	cancel()

	tracker.ViewMounted(reqCtx, id)
	tracker.Close()
}

func TestViewMounted_SwallowsFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	counter := mocks.NewMockCounter(ctrl)
	counter.EXPECT().IncrementView(gomock.Any(), gomock.Any()).Return(invalidate.Event{}, errors.New("offline")).Times(3)

	tracker := NewTracker(counter, 0)
	for i := 0; i < 3; i++ {
		tracker.ViewMounted(context.Background(), uuid.New())
	}
	tracker.Close()
}

func TestToggleLike_Commits(t *testing.T) {
	ctrl := gomock.NewController(t)
	counter := mocks.NewMockCounter(ctrl)
	id := uuid.New()
	counter.EXPECT().AdjustLikes(gomock.Any(), id, 1).Return(invalidate.Event{}, nil)
	counter.EXPECT().AdjustLikes(gomock.Any(), id, -1).Return(invalidate.Event{}, nil)

	tracker := NewTracker(counter, 0)
	like := NewLike(id, false)

	liked, err := tracker.ToggleLike(context.Background(), like)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, LikeCommitted, like.State())

	liked, err = tracker.ToggleLike(context.Background(), like)
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestToggleLike_RollsBackToExactPriorValue(t *testing.T) {
	for _, prior := range []bool{true, false} {
		ctrl := gomock.NewController(t)
		counter := mocks.NewMockCounter(ctrl)
		counter.EXPECT().AdjustLikes(gomock.Any(), gomock.Any(), gomock.Any()).Return(invalidate.Event{}, errors.New("store offline"))

		tracker := NewTracker(counter, 0)
		like := NewLike(uuid.New(), prior)

		liked, err := tracker.ToggleLike(context.Background(), like)

		require.Error(t, err)
		assert.True(t, errs.IsMutationError(err))
		assert.Equal(t, prior, liked)
		assert.Equal(t, prior, like.Liked())
		assert.Equal(t, LikeRolledBack, like.State())
	}
}

func TestLike_RejectsOverlappingToggle(t *testing.T) {
	like := NewLike(uuid.New(), false)

	liked, err := like.Begin()
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, LikePending, like.State())

	_, err = like.Begin()
	assert.ErrorIs(t, err, ErrLikePending)

	assert.False(t, like.Rollback())
	assert.Equal(t, "rolled_back", like.State().String())

	// rollback outside a pending toggle changes nothing
	assert.False(t, like.Rollback())
	assert.False(t, like.Commit())
}
