package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/stretchr/testify/mock"
)

type LedgerRepository struct {
	mock.Mock
}

func (m *LedgerRepository) Create(ctx context.Context, entry *model.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *LedgerRepository) FindByCampaign(ctx context.Context, campaignID int64) ([]model.LedgerEntry, error) {
	args := m.Called(ctx, campaignID)
	entries, _ := args.Get(0).([]model.LedgerEntry)
	return entries, args.Error(1)
}

func (m *LedgerRepository) FindDeductsByCampaign(ctx context.Context, campaignID int64) ([]model.LedgerEntry, error) {
	args := m.Called(ctx, campaignID)
	entries, _ := args.Get(0).([]model.LedgerEntry)
	return entries, args.Error(1)
}

func (m *LedgerRepository) HasRefund(ctx context.Context, campaignID int64) (bool, error) {
	args := m.Called(ctx, campaignID)
	return args.Bool(0), args.Error(1)
}
