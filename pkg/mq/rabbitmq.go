package mq

import (
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	QueueCampaignDispatch = "campaign.dispatch"
	QueueCreditAutoCharge = "credit.autocharge"

	deadLetterSuffix = ".dlq"
)

var ErrConnectionClosed = errors.New("rabbitmq connection is closed")

type Config struct {
	URL      string `mapstructure:"url"`
	Prefetch int    `mapstructure:"prefetch"`
}

type RabbitMQ struct {
	conn   *amqp.Connection
	logger *zap.Logger
}

// NewConnection dials the broker. A connection lost later is logged; the
// process is expected to be restarted by its supervisor.
func NewConnection(cfg Config, logger *zap.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if amqpErr, ok := <-closed; ok && amqpErr != nil {
			logger.Error("RabbitMQ connection lost",
				zap.Int("code", amqpErr.Code),
				zap.String("reason", amqpErr.Reason))
		}
	}()

	logger.Info("Connected to RabbitMQ")

	return &RabbitMQ{conn: conn, logger: logger}, nil
}

func (r *RabbitMQ) channel() (*amqp.Channel, error) {
	if r.conn == nil || r.conn.IsClosed() {
		return nil, ErrConnectionClosed
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, nil
}

// DeadLetterQueue names the queue that receives rejected deliveries of queue.
func DeadLetterQueue(queue string) string {
	return queue + deadLetterSuffix
}

// DeclareTopology declares every work queue durable, each wired to its own
// dead letter queue for deliveries that are rejected without requeue.
func (r *RabbitMQ) DeclareTopology(queues []string) error {
	ch, err := r.channel()
	if err != nil {
		return fmt.Errorf("failed to open channel for topology: %w", err)
	}
	defer ch.Close()

	for _, queue := range queues {
		dlq := DeadLetterQueue(queue)
		if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", dlq, err)
		}

		args := amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": dlq,
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	r.logger.Info("Queues declared", zap.Strings("queues", queues))
	return nil
}

func (r *RabbitMQ) CreatePublisher() (Publisher, error) {
	ch, err := r.channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel for publisher: %w", err)
	}
	return NewRabbitPublisher(ch)
}

func (r *RabbitMQ) CreateConsumer() (Consumer, error) {
	ch, err := r.channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel for consumer: %w", err)
	}
	return NewRabbitConsumer(ch, r.logger), nil
}

func (r *RabbitMQ) Close() error {
	if r.conn == nil || r.conn.IsClosed() {
		return nil
	}
	return r.conn.Close()
}
