package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/blog-backend/invalidate"
)

type recordingPublisher struct {
	messages []amqp.Publishing
	err      error
}

func (p *recordingPublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func newTestBroker(pub publisher) *AMQP {
	return &AMQP{pub: pub, exchange: "blog.invalidations", origin: "instance-a", logger: zerolog.Nop()}
}

func TestForward_StampsOriginAndSkipsRemoteEvents(t *testing.T) {
	pub := &recordingPublisher{}
	b := newTestBroker(pub)
	ev := invalidate.NewEvent(invalidate.OpUpdate, uuid.New(), time.Now().UTC())

	b.Forward(context.Background(), ev)

	require.Len(t, pub.messages, 1)
	var sent invalidate.Event
	require.NoError(t, json.Unmarshal(pub.messages[0].Body, &sent))
	assert.Equal(t, "instance-a", sent.Origin)
	assert.Equal(t, ev.Groups, sent.Groups)
	assert.Equal(t, ev.BlogID, sent.BlogID)

	remote := ev
	remote.Origin = "instance-b"
	b.Forward(context.Background(), remote)
	assert.Len(t, pub.messages, 1)
}

func TestForward_SwallowsPublishErrors(t *testing.T) {
	b := newTestBroker(&recordingPublisher{err: errors.New("channel closed")})

	assert.NotPanics(t, func() {
		b.Forward(context.Background(), invalidate.NewEvent(invalidate.OpDelete, uuid.New(), time.Now()))
	})
}

func TestHandle_AppliesOnlyForeignEvents(t *testing.T) {
	b := newTestBroker(&recordingPublisher{})
	var applied []invalidate.Event
	apply := func(_ context.Context, ev invalidate.Event) { applied = append(applied, ev) }

	own, _ := json.Marshal(invalidate.Event{Op: invalidate.OpLike, Origin: "instance-a", Groups: invalidate.GroupsFor(invalidate.OpLike)})
	foreign, _ := json.Marshal(invalidate.Event{Op: invalidate.OpLike, Origin: "instance-b", Groups: invalidate.GroupsFor(invalidate.OpLike)})

	b.handle(context.Background(), own, apply)
	b.handle(context.Background(), []byte("{not json"), apply)
	b.handle(context.Background(), foreign, apply)

	require.Len(t, applied, 1)
	assert.Equal(t, "instance-b", applied[0].Origin)
}
