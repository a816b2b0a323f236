package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/stretchr/testify/mock"
)

type CampaignMessageRepository struct {
	mock.Mock
}

func (m *CampaignMessageRepository) CreateBatch(ctx context.Context, messages []model.CampaignMessage) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

func (m *CampaignMessageRepository) FindByCampaign(ctx context.Context, campaignID int64) ([]model.CampaignMessage, error) {
	args := m.Called(ctx, campaignID)
	messages, _ := args.Get(0).([]model.CampaignMessage)
	return messages, args.Error(1)
}

func (m *CampaignMessageRepository) UpdateResultByPhone(ctx context.Context, campaignID int64, phone string, kakaoCode, smsCode *string) error {
	args := m.Called(ctx, campaignID, phone, kakaoCode, smsCode)
	return args.Error(0)
}
