package mocks

import (
	"context"

	"github.com/Behyna/sms-services/creditgateway/pkg/kakaogateway"
	"github.com/stretchr/testify/mock"
)

type Gateway struct {
	mock.Mock
}

func (m *Gateway) Authenticate(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *Gateway) SendCampaign(ctx context.Context, request kakaogateway.SendCampaignRequest) (kakaogateway.SendCampaignResponse, error) {
	args := m.Called(ctx, request)
	return args.Get(0).(kakaogateway.SendCampaignResponse), args.Error(1)
}
