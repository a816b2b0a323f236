package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type CreditPoolRepository struct {
	mock.Mock
}

func (m *CreditPoolRepository) Create(ctx context.Context, pool *model.CreditPool) error {
	args := m.Called(ctx, pool)
	return args.Error(0)
}

func (m *CreditPoolRepository) GetByID(ctx context.Context, id int64) (*model.CreditPool, error) {
	args := m.Called(ctx, id)
	pool, _ := args.Get(0).(*model.CreditPool)
	return pool, args.Error(1)
}

func (m *CreditPoolRepository) GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*model.CreditPool, error) {
	args := m.Called(ctx, tenantID, key)
	pool, _ := args.Get(0).(*model.CreditPool)
	return pool, args.Error(1)
}

func (m *CreditPoolRepository) FindEligible(ctx context.Context, tenantID string, channel model.Channel, lock bool) ([]model.CreditPool, error) {
	args := m.Called(ctx, tenantID, channel, lock)
	pools, _ := args.Get(0).([]model.CreditPool)
	return pools, args.Error(1)
}

func (m *CreditPoolRepository) Consume(ctx context.Context, pool *model.CreditPool, credits decimal.Decimal) error {
	args := m.Called(ctx, pool, credits)
	return args.Error(0)
}

func (m *CreditPoolRepository) UpdateStatus(ctx context.Context, id int64, from, to model.PoolStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *CreditPoolRepository) SumBalance(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
