package publishers

import (
	"context"
	"encoding/json"

	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/Behyna/sms-services/creditgateway/pkg/mq"
	"go.uber.org/zap"
)

const defaultBatchSize = 100

type DispatchPublisher interface {
	Publish(ctx context.Context) error
}

type dispatchPublisher struct {
	service   service.DispatchQueueService
	publisher mq.Publisher
	batchSize int
	logger    *zap.Logger
}

func NewDispatchPublisher(service service.DispatchQueueService, publisher mq.Publisher, cfg *config.Config,
	logger *zap.Logger) DispatchPublisher {
	batchSize := cfg.Dispatch.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &dispatchPublisher{service: service, publisher: publisher, batchSize: batchSize, logger: logger}
}

// Publish moves one batch of undispatched campaigns onto the dispatch queue.
// A campaign is marked queued only after the broker accepted it, so a crash in
// between publishes it again and the dispatcher's claim drops the duplicate.
func (d *dispatchPublisher) Publish(ctx context.Context) error {
	commands, err := d.service.FindCampaignsToQueue(ctx, d.batchSize)
	if err != nil {
		return err
	}

	if len(commands) == 0 {
		return nil
	}

	d.logger.Info("Publishing campaigns", zap.Int("count", len(commands)))

	successCount := 0
	for _, cmd := range commands {
		body, err := json.Marshal(cmd)
		if err != nil {
			d.logger.Error("Failed to encode dispatch command", zap.Error(err), zap.Int64("campaignID", cmd.CampaignID))
			continue
		}

		if err := d.publisher.Publish(ctx, "", mq.QueueCampaignDispatch, body); err != nil {
			d.logger.Error("Failed to publish campaign",
				zap.Error(err),
				zap.Int64("campaignID", cmd.CampaignID))
			continue
		}

		if err := d.service.MarkCampaignAsQueued(ctx, cmd.CampaignID); err != nil {
			continue
		}

		successCount++
	}

	if successCount > 0 {
		d.logger.Info("Successfully published campaigns",
			zap.Int("published", successCount),
			zap.Int("total", len(commands)))
	}

	return nil
}
