package consumers

import (
	"context"
	"encoding/json"

	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/Behyna/sms-services/creditgateway/pkg/mq"
	"go.uber.org/zap"
)

type DispatchConsumer interface {
	Consume(ctx context.Context) error
}

type dispatchConsumer struct {
	service  service.DispatchService
	consumer mq.Consumer
	prefetch int
	logger   *zap.Logger
}

func NewDispatchConsumer(service service.DispatchService, consumer mq.Consumer, cfg *config.Config,
	logger *zap.Logger) DispatchConsumer {
	prefetch := cfg.RabbitMQ.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &dispatchConsumer{service: service, consumer: consumer, prefetch: prefetch, logger: logger}
}

func (d *dispatchConsumer) Consume(ctx context.Context) error {
	return d.consumer.Consume(ctx, d.prefetch, mq.QueueCampaignDispatch, d.handleMessage)
}

func (d *dispatchConsumer) handleMessage(ctx context.Context, body []byte) error {
	d.logger.Info("received dispatch command", zap.ByteString("body", body))

	var cmd service.DispatchCampaignCommand
	if err := json.Unmarshal(body, &cmd); err != nil {
		d.logger.Warn("invalid dispatch command", zap.Error(err))
		return err
	}

	return d.service.Dispatch(ctx, cmd)
}
