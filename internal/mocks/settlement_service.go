package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/stretchr/testify/mock"
)

type SettlementService struct {
	mock.Mock
}

func (m *SettlementService) Settle(ctx context.Context, campaignID int64) (service.SettlementResult, error) {
	args := m.Called(ctx, campaignID)
	return args.Get(0).(service.SettlementResult), args.Error(1)
}

func (m *SettlementService) RefundAll(ctx context.Context, campaignID int64, reason string) (service.SettlementResult, error) {
	args := m.Called(ctx, campaignID, reason)
	return args.Get(0).(service.SettlementResult), args.Error(1)
}
