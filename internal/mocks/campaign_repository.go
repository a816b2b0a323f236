package mocks

import (
	"context"
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/stretchr/testify/mock"
)

type CampaignRepository struct {
	mock.Mock
}

func (m *CampaignRepository) Create(ctx context.Context, campaign *model.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *CampaignRepository) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	campaign, _ := args.Get(0).(*model.Campaign)
	return campaign, args.Error(1)
}

func (m *CampaignRepository) GetByClientRequestID(ctx context.Context, tenantID, clientRequestID string) (*model.Campaign, error) {
	args := m.Called(ctx, tenantID, clientRequestID)
	campaign, _ := args.Get(0).(*model.Campaign)
	return campaign, args.Error(1)
}

func (m *CampaignRepository) LockByID(ctx context.Context, id int64) (*model.Campaign, error) {
	args := m.Called(ctx, id)
	campaign, _ := args.Get(0).(*model.Campaign)
	return campaign, args.Error(1)
}

func (m *CampaignRepository) UpdateDeliveryResult(ctx context.Context, campaign *model.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *CampaignRepository) ClaimForDispatch(ctx context.Context, id int64, staleThreshold time.Time) error {
	args := m.Called(ctx, id, staleThreshold)
	return args.Error(0)
}

func (m *CampaignRepository) ReleaseClaim(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *CampaignRepository) MarkDispatched(ctx context.Context, id int64, gatewayKey string) error {
	args := m.Called(ctx, id, gatewayKey)
	return args.Error(0)
}

func (m *CampaignRepository) MarkFailed(ctx context.Context, id int64, lastError string) error {
	args := m.Called(ctx, id, lastError)
	return args.Error(0)
}

func (m *CampaignRepository) MarkCancelled(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *CampaignRepository) MarkSettled(ctx context.Context, id int64, settledAt time.Time) error {
	args := m.Called(ctx, id, settledAt)
	return args.Error(0)
}

func (m *CampaignRepository) FindUnpublishedPending(ctx context.Context, limit int) ([]model.Campaign, error) {
	args := m.Called(ctx, limit)
	campaigns, _ := args.Get(0).([]model.Campaign)
	return campaigns, args.Error(1)
}

func (m *CampaignRepository) MarkPublished(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
