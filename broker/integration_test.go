//go:build integration

package broker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rpupo63/blog-backend/invalidate"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestEventsReachOtherInstances() {
	cfg := Config{URL: s.amqpURL, Exchange: "blog.invalidations.test"}

	sender, err := NewAMQP(cfg)
	s.Require().NoError(err)
	defer sender.Close()

	receiver, err := NewAMQP(cfg)
	s.Require().NoError(err)
	defer receiver.Close()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	received := make(chan invalidate.Event, 1)
	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = receiver.Consume(ctx, func(_ context.Context, ev invalidate.Event) { received <- ev })
	}()
	<-ready
	time.Sleep(500 * time.Millisecond)

	ev := invalidate.NewEvent(invalidate.OpCreate, uuid.New(), time.Now().UTC())
	sender.Forward(s.ctx, ev)

	select {
	case got := <-received:
		s.Equal(ev.BlogID, got.BlogID)
		s.Equal(ev.Groups, got.Groups)
	case <-time.After(10 * time.Second):
		s.Fail("event not received")
	}
}
