package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/stretchr/testify/mock"
)

type RouterService struct {
	mock.Mock
}

func (m *RouterService) Route(ctx context.Context, cmd service.RouteCommand) (service.RouteDecision, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(service.RouteDecision), args.Error(1)
}

func (m *RouterService) EstimateCost(ctx context.Context, tenantID string, channel model.Channel, recipients int64) (service.CostEstimate, error) {
	args := m.Called(ctx, tenantID, channel, recipients)
	return args.Get(0).(service.CostEstimate), args.Error(1)
}

func (m *RouterService) ValidateRecipients(recipients []service.Recipient) ([]service.Recipient, error) {
	args := m.Called(recipients)
	valid, _ := args.Get(0).([]service.Recipient)
	return valid, args.Error(1)
}
