package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/stretchr/testify/mock"
)

type WebhookService struct {
	mock.Mock
}

func (m *WebhookService) ApplyDeliveryResult(ctx context.Context, cmd service.ApplyDeliveryResultCommand) (service.ApplyDeliveryResultResponse, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(service.ApplyDeliveryResultResponse), args.Error(1)
}
