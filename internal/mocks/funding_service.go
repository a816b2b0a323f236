package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/stretchr/testify/mock"
)

type FundingService struct {
	mock.Mock
}

func (m *FundingService) CreateCharge(ctx context.Context, cmd service.CreateChargeCommand) (*model.CreditPool, error) {
	args := m.Called(ctx, cmd)
	pool, _ := args.Get(0).(*model.CreditPool)
	return pool, args.Error(1)
}

func (m *FundingService) ConfirmCharge(ctx context.Context, tenantID string, poolID int64) (*model.CreditPool, error) {
	args := m.Called(ctx, tenantID, poolID)
	pool, _ := args.Get(0).(*model.CreditPool)
	return pool, args.Error(1)
}

func (m *FundingService) CheckAutoCharge(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}
