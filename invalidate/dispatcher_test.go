package invalidate

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupsFor(t *testing.T) {
	all := []Group{GroupBlogs, GroupBlog, GroupAdminBlogs, GroupStats}
	assert.Equal(t, all, GroupsFor(OpCreate))
	assert.Equal(t, all, GroupsFor(OpUpdate))
	assert.Equal(t, all, GroupsFor(OpDelete))
	assert.Equal(t, []Group{GroupBlogs, GroupBlog}, GroupsFor(OpLike))
	assert.Empty(t, GroupsFor(OpView))
}

func TestEventHelpers(t *testing.T) {
	ev := NewEvent(OpLike, uuid.New(), time.Now())
	assert.True(t, ev.Has(GroupBlog))
	assert.False(t, ev.Has(GroupStats))
	assert.False(t, ev.Empty())
	assert.True(t, NewEvent(OpView, uuid.New(), time.Now()).Empty())
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	var order []string
	d.Subscribe("first", func(_ context.Context, ev Event) { order = append(order, "first:"+string(ev.Op)) })
	d.Subscribe("second", func(_ context.Context, ev Event) { order = append(order, "second:"+string(ev.Op)) })

	d.Publish(context.Background(), NewEvent(OpCreate, uuid.New(), time.Now()))

	assert.Equal(t, []string{"first:create", "second:create"}, order)
}

func TestDispatcher_SkipsEmptyEvents(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	calls := 0
	d.Subscribe("counter", func(context.Context, Event) { calls++ })

	d.Publish(context.Background(), NewEvent(OpView, uuid.New(), time.Now()))

	assert.Zero(t, calls)
}

func TestDispatcher_Unsubscribe(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	calls := 0
	unsubscribe := d.Subscribe("counter", func(context.Context, Event) { calls++ })

	d.Publish(context.Background(), NewEvent(OpDelete, uuid.New(), time.Now()))
	unsubscribe()
	unsubscribe()
	d.Publish(context.Background(), NewEvent(OpDelete, uuid.New(), time.Now()))

	assert.Equal(t, 1, calls)
}

func TestDispatcher_RecoversPanickingSubscriber(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	delivered := false
	d.Subscribe("broken", func(context.Context, Event) { panic("boom") })
	d.Subscribe("healthy", func(context.Context, Event) { delivered = true })

	require.NotPanics(t, func() {
		d.Publish(context.Background(), NewEvent(OpUpdate, uuid.New(), time.Now()))
	})
	assert.True(t, delivered)
}
