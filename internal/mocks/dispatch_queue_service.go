package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/stretchr/testify/mock"
)

type DispatchQueueService struct {
	mock.Mock
}

func (m *DispatchQueueService) FindCampaignsToQueue(ctx context.Context, limit int) ([]service.DispatchCampaignCommand, error) {
	args := m.Called(ctx, limit)
	commands, _ := args.Get(0).([]service.DispatchCampaignCommand)
	return commands, args.Error(1)
}

func (m *DispatchQueueService) MarkCampaignAsQueued(ctx context.Context, campaignID int64) error {
	args := m.Called(ctx, campaignID)
	return args.Error(0)
}
