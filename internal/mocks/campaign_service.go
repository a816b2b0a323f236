package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/stretchr/testify/mock"
)

type CampaignService struct {
	mock.Mock
}

func (m *CampaignService) Submit(ctx context.Context, cmd service.SubmitCampaignCommand) (service.SubmitCampaignResponse, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(service.SubmitCampaignResponse), args.Error(1)
}

func (m *CampaignService) SubmitFallback(ctx context.Context, parent *model.Campaign) (service.SubmitCampaignResponse, error) {
	args := m.Called(ctx, parent)
	return args.Get(0).(service.SubmitCampaignResponse), args.Error(1)
}

func (m *CampaignService) Cancel(ctx context.Context, cmd service.CancelCampaignCommand) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

func (m *CampaignService) Get(ctx context.Context, tenantID string, campaignID int64) (service.CampaignDetail, error) {
	args := m.Called(ctx, tenantID, campaignID)
	return args.Get(0).(service.CampaignDetail), args.Error(1)
}
