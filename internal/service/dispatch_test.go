package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/mocks"
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/Behyna/sms-services/creditgateway/internal/service"
	"github.com/Behyna/sms-services/creditgateway/pkg/kakaogateway"
	"github.com/Behyna/sms-services/creditgateway/pkg/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type dispatchMocks struct {
	campaignRepo *mocks.CampaignRepository
	messageRepo  *mocks.CampaignMessageRepository
	txManager    *mocks.TxManager
	gateway      *mocks.Gateway
	settlement   *mocks.SettlementService
	campaigns    *mocks.CampaignService
}

func newDispatch() (service.DispatchService, dispatchMocks) {
	m := dispatchMocks{
		campaignRepo: &mocks.CampaignRepository{},
		messageRepo:  &mocks.CampaignMessageRepository{},
		txManager:    &mocks.TxManager{},
		gateway:      &mocks.Gateway{},
		settlement:   &mocks.SettlementService{},
		campaigns:    &mocks.CampaignService{},
	}

	cfg := testConfig()
	cfg.Gateway = kakaogateway.Config{SenderKey: "default-sender", KakaoSenderKey: "default-kakao"}

	svc := service.NewDispatchService(m.campaignRepo, m.messageRepo, m.txManager, m.gateway, m.settlement,
		m.campaigns, cfg, nil, zap.NewNop())
	return svc, m
}

func pendingCampaign(strategy model.Strategy, channel model.Channel) *model.Campaign {
	return &model.Campaign{
		Base:            model.Base{ID: 42},
		TenantID:        "t1",
		ClientRequestID: "r1",
		Strategy:        strategy,
		Channel:         channel,
		CreditChannel:   channel,
		Status:          model.CampaignStatusPending,
		TemplateCode:    "ORDER_SHIPPED",
		Content:         "Your order has shipped",
		DeliveryCounts:  model.DeliveryCounts{TotalCount: 2, PendingCount: 2},
	}
}

func (m dispatchMocks) expectClaim(campaign *model.Campaign) {
	m.campaignRepo.On("GetByID", mock.Anything, campaign.ID).Return(campaign, nil)
	m.campaignRepo.On("ClaimForDispatch", mock.Anything, campaign.ID, mock.AnythingOfType("time.Time")).Return(nil)
	m.messageRepo.On("FindByCampaign", mock.Anything, campaign.ID).Return([]model.CampaignMessage{
		{CampaignID: campaign.ID, Phone: "+821011112222", Name: "Kim"},
		{CampaignID: campaign.ID, Phone: "+821033334444"},
	}, nil)
}

func TestDispatch_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted campaign is marked in progress", func(t *testing.T) {
		svc, m := newDispatch()
		campaign := pendingCampaign(model.StrategySMSOnly, model.ChannelSMS)
		m.expectClaim(campaign)

		m.gateway.On("SendCampaign", ctx, mock.MatchedBy(func(r kakaogateway.SendCampaignRequest) bool {
			return r.SenderKey == "default-sender" &&
				r.KakaoSenderKey == "default-kakao" &&
				r.SMSContent == "Your order has shipped" &&
				r.ScheduleType == kakaogateway.ScheduleTypeDirectly &&
				len(r.Contacts) == 2 && r.Contacts[0].Name == "Kim"
		})).Return(kakaogateway.SendCampaignResponse{Success: true, CampaignKey: "gw-42"}, nil)
		m.campaignRepo.On("MarkDispatched", ctx, int64(42), "gw-42").Return(nil)

		err := svc.Dispatch(ctx, service.DispatchCampaignCommand{CampaignID: 42})

		assert.NoError(t, err)
		m.campaignRepo.AssertExpectations(t)
		m.gateway.AssertExpectations(t)
	})

	t.Run("accepted campaign keeps its claim when the status write fails", func(t *testing.T) {
		svc, m := newDispatch()
		campaign := pendingCampaign(model.StrategySMSOnly, model.ChannelSMS)
		m.expectClaim(campaign)
		m.gateway.On("SendCampaign", ctx, mock.Anything).
			Return(kakaogateway.SendCampaignResponse{Success: true, CampaignKey: "gw-42"}, nil)
		m.campaignRepo.On("MarkDispatched", ctx, int64(42), "gw-42").Return(errors.New("connection reset"))

		err := svc.Dispatch(ctx, service.DispatchCampaignCommand{CampaignID: 42})

		assert.NoError(t, err)
		m.campaignRepo.AssertNotCalled(t, "ReleaseClaim", mock.Anything, mock.Anything)
		m.settlement.AssertNotCalled(t, "RefundAll", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("future send time is reserved", func(t *testing.T) {
		svc, m := newDispatch()
		campaign := pendingCampaign(model.StrategyAlimtalkFirst, model.ChannelAlimtalk)
		sendAt := time.Now().Add(2 * time.Hour)
		campaign.SendAt = &sendAt
		m.expectClaim(campaign)

		m.gateway.On("SendCampaign", ctx, mock.MatchedBy(func(r kakaogateway.SendCampaignRequest) bool {
			return r.ScheduleType == kakaogateway.ScheduleTypeReserved &&
				r.ScheduledTime != "" &&
				r.SMSContent == "" &&
				r.TemplateCode == "ORDER_SHIPPED"
		})).Return(kakaogateway.SendCampaignResponse{Success: true, CampaignKey: "gw-42"}, nil)
		m.campaignRepo.On("MarkDispatched", ctx, int64(42), "gw-42").Return(nil)

		assert.NoError(t, svc.Dispatch(ctx, service.DispatchCampaignCommand{CampaignID: 42}))
		m.gateway.AssertExpectations(t)
	})

	t.Run("unknown campaign is dropped", func(t *testing.T) {
		svc, m := newDispatch()
		m.campaignRepo.On("GetByID", ctx, int64(7)).Return(nil, repository.ErrCampaignNotFound)

		assert.NoError(t, svc.Dispatch(ctx, service.DispatchCampaignCommand{CampaignID: 7}))
		m.gateway.AssertNotCalled(t, "SendCampaign", mock.Anything, mock.Anything)
	})

	t.Run("database failure is requeued", func(t *testing.T) {
		svc, m := newDispatch()
		m.campaignRepo.On("GetByID", ctx, int64(7)).Return(nil, errors.New("connection reset"))

		err := svc.Dispatch(ctx, service.DispatchCampaignCommand{CampaignID: 7})

		assert.True(t, mq.ShouldRequeue(err))
	})

	t.Run("already dispatched campaign is skipped", func(t *testing.T) {
		svc, m := newDispatch()
		campaign := pendingCampaign(model.StrategySMSOnly, model.ChannelSMS)
		campaign.Status = model.CampaignStatusProgress
		m.campaignRepo.On("GetByID", ctx, int64(42)).Return(campaign, nil)

		assert.NoError(t, svc.Dispatch(ctx, service.DispatchCampaignCommand{CampaignID: 42}))
		m.campaignRepo.AssertNotCalled(t, "ClaimForDispatch", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("campaign claimed elsewhere is skipped", func(t *testing.T) {
		svc, m := newDispatch()
		campaign := pendingCampaign(model.StrategySMSOnly, model.ChannelSMS)
		m.campaignRepo.On("GetByID", ctx, int64(42)).Return(campaign, nil)
		m.campaignRepo.On("ClaimForDispatch", ctx, int64(42), mock.AnythingOfType("time.Time")).
			Return(repository.ErrNoRowsAffected)

		assert.NoError(t, svc.Dispatch(ctx, service.DispatchCampaignCommand{CampaignID: 42}))
		m.gateway.AssertNotCalled(t, "SendCampaign", mock.Anything, mock.Anything)
	})

	t.Run("gateway timeout releases the claim and requeues", func(t *testing.T) {
		svc, m := newDispatch()
		campaign := pendingCampaign(model.StrategySMSOnly, model.ChannelSMS)
		m.expectClaim(campaign)
		m.gateway.On("SendCampaign", ctx, mock.Anything).
			Return(kakaogateway.SendCampaignResponse{}, kakaogateway.ErrTimeout)
		m.campaignRepo.On("ReleaseClaim", ctx, int64(42)).Return(nil)

		err := svc.Dispatch(ctx, service.DispatchCampaignCommand{CampaignID: 42})

		assert.True(t, mq.ShouldRequeue(err))
		assert.ErrorIs(t, err, kakaogateway.ErrTimeout)
		m.campaignRepo.AssertCalled(t, "ReleaseClaim", ctx, int64(42))
		m.settlement.AssertNotCalled(t, "RefundAll", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejected alimtalk campaign is refunded and falls back to sms", func(t *testing.T) {
		svc, m := newDispatch()
		campaign := pendingCampaign(model.StrategyAlimtalkFirst, model.ChannelAlimtalk)
		m.expectClaim(campaign)

		txCtx := mock.AnythingOfType("*context.valueCtx")
		m.gateway.On("SendCampaign", ctx, mock.Anything).Return(kakaogateway.SendCampaignResponse{},
			&kakaogateway.RejectedError{StatusCode: 400, Code: "TEMPLATE_NOT_FOUND", Message: "template not approved"})
		m.txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		m.campaignRepo.On("MarkFailed", txCtx, int64(42), "template not approved").Return(nil)
		m.settlement.On("RefundAll", txCtx, int64(42), service.RefundReasonRejected).
			Return(service.SettlementResult{CampaignID: 42, RefundCount: 2}, nil)
		m.campaigns.On("SubmitFallback", ctx, campaign).
			Return(service.SubmitCampaignResponse{CampaignID: 43, Channel: model.ChannelSMS}, nil)

		err := svc.Dispatch(ctx, service.DispatchCampaignCommand{CampaignID: 42})

		assert.NoError(t, err)
		m.settlement.AssertExpectations(t)
		m.campaigns.AssertExpectations(t)
		m.campaignRepo.AssertNotCalled(t, "MarkDispatched", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejected sms campaign has no fallback", func(t *testing.T) {
		svc, m := newDispatch()
		campaign := pendingCampaign(model.StrategySMSOnly, model.ChannelSMS)
		m.expectClaim(campaign)

		txCtx := mock.AnythingOfType("*context.valueCtx")
		m.gateway.On("SendCampaign", ctx, mock.Anything).Return(kakaogateway.SendCampaignResponse{},
			&kakaogateway.RejectedError{StatusCode: 400, Message: "invalid sender"})
		m.txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		m.campaignRepo.On("MarkFailed", txCtx, int64(42), "invalid sender").Return(nil)
		m.settlement.On("RefundAll", txCtx, int64(42), service.RefundReasonRejected).
			Return(service.SettlementResult{CampaignID: 42}, nil)

		assert.NoError(t, svc.Dispatch(ctx, service.DispatchCampaignCommand{CampaignID: 42}))
		m.campaigns.AssertNotCalled(t, "SubmitFallback", mock.Anything, mock.Anything)
	})

	t.Run("failed refund after rejection is requeued", func(t *testing.T) {
		svc, m := newDispatch()
		campaign := pendingCampaign(model.StrategySMSOnly, model.ChannelSMS)
		m.expectClaim(campaign)

		txCtx := mock.AnythingOfType("*context.valueCtx")
		m.gateway.On("SendCampaign", ctx, mock.Anything).Return(kakaogateway.SendCampaignResponse{},
			&kakaogateway.RejectedError{StatusCode: 400, Message: "invalid sender"})
		m.txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		m.campaignRepo.On("MarkFailed", txCtx, int64(42), "invalid sender").Return(nil)
		m.settlement.On("RefundAll", txCtx, int64(42), service.RefundReasonRejected).
			Return(service.SettlementResult{}, errors.New("lock wait timeout"))
		m.campaignRepo.On("ReleaseClaim", ctx, int64(42)).Return(nil)

		err := svc.Dispatch(ctx, service.DispatchCampaignCommand{CampaignID: 42})

		assert.True(t, mq.ShouldRequeue(err))
		m.campaigns.AssertNotCalled(t, "SubmitFallback", mock.Anything, mock.Anything)
	})
}

// unmarkableCampaigns fails every attempt to record gateway acceptance.
type unmarkableCampaigns struct{ fakeCampaigns }

func (unmarkableCampaigns) MarkDispatched(context.Context, int64, string) error {
	return errors.New("connection reset")
}

func TestDispatch_AcceptedCampaignIsNeverCancelled(t *testing.T) {
	ctx := context.Background()
	f := newCampaignFixture()
	f.store.addPool(pool("t1", "100", "8", "9", "1"))
	resp, err := f.campaign.Submit(ctx, smsCampaign("r1", "01011112222", "01022223333"))
	require.NoError(t, err)

	gateway := &mocks.Gateway{}
	gateway.On("SendCampaign", ctx, mock.Anything).
		Return(kakaogateway.SendCampaignResponse{Success: true, CampaignKey: "gw-1"}, nil)
	svc := service.NewDispatchService(unmarkableCampaigns{fakeCampaigns{f.store}}, fakeMessages{f.store}, fakeTx{f.store},
		gateway, f.settlement, f.campaign, testConfig(), nil, zap.NewNop())

	require.NoError(t, svc.Dispatch(ctx, service.DispatchCampaignCommand{CampaignID: resp.CampaignID}))
	gateway.AssertExpectations(t)

	stale := time.Now().Add(-6 * time.Minute)
	require.NoError(t, fakeCampaigns{f.store}.mutate(resp.CampaignID, func(c *model.Campaign) bool {
		c.DispatchAttemptAt = &stale
		return true
	}))

	err = f.campaign.Cancel(ctx, service.CancelCampaignCommand{TenantID: "t1", CampaignID: resp.CampaignID})

	assert.ErrorIs(t, err, service.ErrCampaignBeingDispatched)
	assert.Equal(t, model.CampaignStatusPending, f.store.campaign(resp.CampaignID).Status)
	assert.Len(t, f.store.entries(resp.CampaignID), 1)
	assert.Empty(t, f.store.recharges())
}
