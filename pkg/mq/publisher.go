package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConfirmed is returned when the broker nacks a published message.
var ErrNotConfirmed = errors.New("message not confirmed by broker")

type Publisher interface {
	Publish(ctx context.Context, exchange string, routingKey string, body []byte) error
}

// RabbitPublisher publishes persistent JSON messages on a channel in confirm
// mode. Publish returns only after the broker has taken responsibility for the
// message, so callers may mark an outbox row as queued once it returns nil.
type RabbitPublisher struct {
	ch *amqp.Channel
}

func NewRabbitPublisher(ch *amqp.Channel) (Publisher, error) {
	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	return &RabbitPublisher{ch: ch}, nil
}

func (r *RabbitPublisher) Publish(ctx context.Context, exchange string, routingKey string, body []byte) error {
	confirmation, err := r.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         routingKey,
		Body:         body,
	})
	if err != nil {
		return err
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !acked {
		return fmt.Errorf("%w: %s", ErrNotConfirmed, routingKey)
	}
	return nil
}

func (r *RabbitPublisher) Close() error {
	if r.ch == nil {
		return nil
	}
	return r.ch.Close()
}
