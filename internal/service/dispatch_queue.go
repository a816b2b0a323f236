package service

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"go.uber.org/zap"
)

type DispatchQueueService interface {
	FindCampaignsToQueue(ctx context.Context, limit int) ([]DispatchCampaignCommand, error)
	MarkCampaignAsQueued(ctx context.Context, campaignID int64) error
}

type dispatchQueue struct {
	campaignRepo repository.CampaignRepository
	logger       *zap.Logger
}

func NewDispatchQueueService(campaignRepo repository.CampaignRepository, logger *zap.Logger) DispatchQueueService {
	return &dispatchQueue{campaignRepo: campaignRepo, logger: logger}
}

func (q *dispatchQueue) FindCampaignsToQueue(ctx context.Context, limit int) ([]DispatchCampaignCommand, error) {
	q.logger.Debug("Finding campaigns to publish", zap.Int("batchSize", limit))

	campaigns, err := q.campaignRepo.FindUnpublishedPending(ctx, limit)
	if err != nil {
		q.logger.Error("Failed to find unpublished campaigns", zap.Error(err))
		return nil, err
	}

	if len(campaigns) == 0 {
		q.logger.Debug("No campaigns found to publish")
		return nil, nil
	}

	commands := make([]DispatchCampaignCommand, 0, len(campaigns))
	for _, c := range campaigns {
		commands = append(commands, DispatchCampaignCommand{CampaignID: c.ID})
	}

	return commands, nil
}

func (q *dispatchQueue) MarkCampaignAsQueued(ctx context.Context, campaignID int64) error {
	if err := q.campaignRepo.MarkPublished(ctx, campaignID); err != nil {
		q.logger.Error("Failed to mark campaign as published",
			zap.Error(err),
			zap.Int64("campaignID", campaignID))
		return err
	}

	q.logger.Debug("Successfully marked campaign as published", zap.Int64("campaignID", campaignID))

	return nil
}
