// Package queue contains the background consumer that listens to the item
// queue and appends one audit line per created item to a rotated log file.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iliyamo/backend-service-lab3/internal/config"
)

// StartItemConsumer connects to RabbitMQ, declares the durable item queue and
// consumes until ctx is cancelled.  Broker failures are retried with an
// exponential backoff capped at 30s.  Bad messages are logged and rejected
// without requeue so the consumer keeps going.
func StartItemConsumer(ctx context.Context, cfg config.QueueConfig, log *zap.Logger) error {
	audit := &lumberjack.Logger{
		Filename:   cfg.AuditLog,
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     30, // days
	}
	defer audit.Close()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Warn("item-consumer: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, cfg.Name, audit, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("item-consumer: consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queueName string, audit io.Writer, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("item-consumer: set QoS failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info("item-consumer: consuming", zap.String("queue", queueName))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(audit, d.Body); err != nil {
				log.Error("item-consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handleMessage decodes an ItemCreatedEvent and writes its audit line to w.
func handleMessage(w io.Writer, body []byte) error {
	var ev ItemCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	tax := "null"
	if ev.Item.Tax != nil {
		tax = strconv.FormatFloat(*ev.Item.Tax, 'f', -1, 64)
	}
	line := fmt.Sprintf("[%s] Item created | index=%d | name=%q | price=%s | tax=%s | request_id=%s\n",
		ev.CreatedAt, ev.Index, ev.Item.Name, strconv.FormatFloat(ev.Item.Price, 'f', -1, 64), tax, ev.RequestID)

	if _, err := io.WriteString(w, line); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// sleep waits for d or ctx, reporting false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
