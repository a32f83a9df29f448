// Package service provides the outbound integrations used by handlers.
// Publishing errors are logged and returned so that callers can ignore them
// without interrupting the main request flow.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/backend-service-lab3/internal/config"
	q "github.com/iliyamo/backend-service-lab3/internal/queue"
)

// Publisher publishes item events.
type Publisher interface {
	PublishItemCreated(ctx context.Context, event q.ItemCreatedEvent) error
}

// NoopPublisher drops every event.  It is used when the queue is disabled.
type NoopPublisher struct{}

// PublishItemCreated implements Publisher.
func (NoopPublisher) PublishItemCreated(context.Context, q.ItemCreatedEvent) error { return nil }

// RabbitPublisher sends events to a durable RabbitMQ queue through the
// default exchange.  It dials per message; item creation is rare enough.
type RabbitPublisher struct {
	url     string
	queue   string
	timeout time.Duration
	log     *zap.Logger
}

// NewPublisher returns a RabbitPublisher when cfg.Enabled, else a NoopPublisher.
func NewPublisher(cfg config.QueueConfig, log *zap.Logger) Publisher {
	if !cfg.Enabled {
		return NoopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RabbitPublisher{url: cfg.URL, queue: cfg.Name, timeout: cfg.PublishTimeout.Duration, log: log}
}

// PublishItemCreated publishes event as a persistent JSON message.
func (p *RabbitPublisher) PublishItemCreated(ctx context.Context, event q.ItemCreatedEvent) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout()),
	})
	if err != nil {
		p.log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		p.log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.Warn("rabbitmq: marshal event failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		MessageId:    event.RequestID,
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		p.log.Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}
	return nil
}

func (p *RabbitPublisher) dialTimeout() time.Duration {
	if p.timeout > 0 {
		return p.timeout
	}
	return 30 * time.Second
}
