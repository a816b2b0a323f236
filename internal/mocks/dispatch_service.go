package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/stretchr/testify/mock"
)

type DispatchService struct {
	mock.Mock
}

func (m *DispatchService) Dispatch(ctx context.Context, cmd service.DispatchCampaignCommand) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}
