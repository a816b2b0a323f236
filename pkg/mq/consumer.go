package mq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Handle func(ctx context.Context, body []byte) error

type Consumer interface {
	Consume(ctx context.Context, prefetch int, queue string, handler Handle) error
}

type RabbitConsumer struct {
	ch     *amqp.Channel
	logger *zap.Logger
}

func NewRabbitConsumer(ch *amqp.Channel, logger *zap.Logger) Consumer {
	return &RabbitConsumer{ch: ch, logger: logger}
}

func (c *RabbitConsumer) Consume(ctx context.Context, prefetch int, queue string, handler Handle) error {
	if prefetch <= 0 {
		prefetch = 1
	}

	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return err
	}

	deliveries, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			_ = c.ch.Cancel("", false)
			time.Sleep(50 * time.Millisecond)
			return ctx.Err()

		case d, ok := <-deliveries:
			if !ok {
				return nil
			}

			err := c.handle(ctx, handler, d.Body)
			if err == nil {
				_ = d.Ack(false)
				continue
			}

			requeue := ShouldRequeue(err)
			c.logger.Warn("Delivery rejected",
				zap.String("queue", queue),
				zap.String("messageID", d.MessageId),
				zap.Bool("requeue", requeue),
				zap.Error(err))
			_ = d.Nack(false, requeue)
		}
	}
}

func (c *RabbitConsumer) handle(ctx context.Context, handler Handle, body []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return handler(ctx, body)
}
