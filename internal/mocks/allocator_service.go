package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/stretchr/testify/mock"
)

type AllocatorService struct {
	mock.Mock
}

func (m *AllocatorService) ClassifyChannel(requestType model.Channel, replaceSms bool, fallbackContentLength int) model.Channel {
	args := m.Called(requestType, replaceSms, fallbackContentLength)
	return args.Get(0).(model.Channel)
}

func (m *AllocatorService) Capacity(ctx context.Context, tenantID string, channel model.Channel) (int64, error) {
	args := m.Called(ctx, tenantID, channel)
	return args.Get(0).(int64), args.Error(1)
}

func (m *AllocatorService) ValidateCapacity(ctx context.Context, tenantID string, channel model.Channel, target int64) error {
	args := m.Called(ctx, tenantID, channel, target)
	return args.Error(0)
}

func (m *AllocatorService) Deduct(ctx context.Context, cmd service.DeductCommand) (service.DeductResult, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(service.DeductResult), args.Error(1)
}
