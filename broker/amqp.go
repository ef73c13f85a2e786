// Package broker shares invalidation events between instances over a
// RabbitMQ fanout exchange.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-backend/invalidate"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AMQP struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	pub      publisher
	exchange string
	origin   string
	logger   zerolog.Logger
}

type Config struct {
	URL      string
	Exchange string
}

func NewAMQP(cfg Config) (*AMQP, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"fanout",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	b := &AMQP{
		conn:     conn,
		channel:  ch,
		pub:      ch,
		exchange: cfg.Exchange,
		origin:   uuid.NewString(),
		logger:   log.With().Str("component", "broker").Logger(),
	}
	b.logger.Info().Str("exchange", cfg.Exchange).Str("origin", b.origin).Msg("connected to rabbitmq")
	return b, nil
}

// Forward publishes a locally produced event to the other instances. It is
// subscribed to the dispatcher; events that arrived from the broker are not
// sent back.
func (b *AMQP) Forward(ctx context.Context, ev invalidate.Event) {
	if ev.Origin != "" {
		return
	}
	ev.Origin = b.origin

	body, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error().Err(err).Msg("marshal event")
		return
	}

	err = b.pub.PublishWithContext(
		ctx,
		b.exchange,
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		b.logger.Warn().Err(err).Str("op", string(ev.Op)).Msg("forward event failed")
		return
	}

	b.logger.Debug().Str("op", string(ev.Op)).Str("blogID", ev.BlogID.String()).Msg("forwarded event")
}

// Consume binds an exclusive queue to the exchange and hands every event
// from another instance to apply until ctx is done.
func (b *AMQP) Consume(ctx context.Context, apply invalidate.Handler) error {
	q, err := b.channel.QueueDeclare(
		"",
		false,
		true,
		true,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := b.channel.QueueBind(q.Name, "", b.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	deliveries, err := b.channel.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			b.handle(ctx, d.Body, apply)
		}
	}
}

func (b *AMQP) handle(ctx context.Context, body []byte, apply invalidate.Handler) {
	var ev invalidate.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		b.logger.Warn().Err(err).Msg("dropping undecodable event")
		return
	}
	if ev.Origin == b.origin {
		return
	}
	apply(ctx, ev)
}

func (b *AMQP) Close() error {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
