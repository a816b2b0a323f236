package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/metrics"
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/Behyna/sms-services/creditgateway/pkg/kakaogateway"
	"github.com/Behyna/sms-services/creditgateway/pkg/mq"
	"go.uber.org/zap"
)

const defaultStaleAfter = 5 * time.Minute

type DispatchService interface {
	Dispatch(ctx context.Context, cmd DispatchCampaignCommand) error
}

type dispatch struct {
	campaignRepo repository.CampaignRepository
	messageRepo  repository.CampaignMessageRepository
	txManager    repository.TxManager
	gateway      kakaogateway.Gateway
	settlement   SettlementService
	campaigns    CampaignService
	gatewayCfg   kakaogateway.Config
	staleAfter   time.Duration
	now          func() time.Time
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewDispatchService(campaignRepo repository.CampaignRepository, messageRepo repository.CampaignMessageRepository,
	txManager repository.TxManager, gateway kakaogateway.Gateway, settlement SettlementService, campaigns CampaignService,
	cfg *config.Config, metrics *metrics.Metrics, logger *zap.Logger) DispatchService {
	staleAfter := cfg.Dispatch.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &dispatch{
		campaignRepo: campaignRepo,
		messageRepo:  messageRepo,
		txManager:    txManager,
		gateway:      gateway,
		settlement:   settlement,
		campaigns:    campaigns,
		gatewayCfg:   cfg.Gateway,
		staleAfter:   staleAfter,
		now:          time.Now,
		metrics:      metrics,
		logger:       logger,
	}
}

// Dispatch hands a PENDING campaign to the gateway. Returning a temporary
// error requeues the command; nil drops it.
func (d *dispatch) Dispatch(ctx context.Context, cmd DispatchCampaignCommand) error {
	campaign, err := d.campaignRepo.GetByID(ctx, cmd.CampaignID)
	if errors.Is(err, repository.ErrCampaignNotFound) {
		d.logger.Warn("Campaign to dispatch not found", zap.Int64("campaignID", cmd.CampaignID))
		return nil
	}
	if err != nil {
		d.logger.Error("Failed to load campaign for dispatch",
			zap.Int64("campaignID", cmd.CampaignID),
			zap.Error(err))
		return mq.Temporary(ErrDatabase)
	}

	if campaign.Status != model.CampaignStatusPending {
		d.logger.Info("Campaign already dispatched or closed",
			zap.Int64("campaignID", cmd.CampaignID),
			zap.String("status", string(campaign.Status)))
		return nil
	}

	err = d.campaignRepo.ClaimForDispatch(ctx, cmd.CampaignID, d.now().Add(-d.staleAfter))
	if errors.Is(err, repository.ErrNoRowsAffected) {
		d.logger.Info("Campaign being dispatched by another consumer", zap.Int64("campaignID", cmd.CampaignID))
		return nil
	}
	if err != nil {
		return mq.Temporary(err)
	}

	messages, err := d.messageRepo.FindByCampaign(ctx, cmd.CampaignID)
	if err != nil {
		d.release(ctx, cmd.CampaignID)
		return mq.Temporary(err)
	}

	request := d.buildRequest(campaign, messages)

	d.logger.Debug("Submitting campaign to gateway",
		zap.Int64("campaignID", campaign.ID),
		zap.String("channel", string(campaign.Channel)),
		zap.Int("contacts", len(request.Contacts)),
		zap.String("scheduleType", request.ScheduleType))

	response, err := d.gateway.SendCampaign(ctx, request)
	if err == nil {
		d.metrics.RecordDispatch("accepted")
		if err := d.campaignRepo.MarkDispatched(ctx, campaign.ID, response.CampaignKey); err != nil {
			// The claim is kept so the campaign cannot be cancelled and refunded
			// while the provider delivers it. The delivery report moves it on.
			d.logger.Error("Failed to mark campaign dispatched",
				zap.Int64("campaignID", campaign.ID),
				zap.String("campaignKey", response.CampaignKey),
				zap.Error(err))
			return nil
		}

		d.logger.Info("Campaign accepted by gateway",
			zap.Int64("campaignID", campaign.ID),
			zap.String("campaignKey", response.CampaignKey))
		return nil
	}

	var rejected *kakaogateway.RejectedError
	if errors.As(err, &rejected) {
		return d.reject(ctx, campaign, rejected.Message)
	}

	d.metrics.RecordDispatch("temporary_failure")
	d.logger.Warn("Gateway call failed, will retry",
		zap.Int64("campaignID", campaign.ID),
		zap.Bool("temporary", kakaogateway.IsTemporary(err)),
		zap.Error(err))

	d.release(ctx, campaign.ID)
	return mq.Temporary(err)
}

// reject fails the campaign, refunds it in full and, for alimtalk-first
// campaigns, resubmits the recipients over SMS.
func (d *dispatch) reject(ctx context.Context, campaign *model.Campaign, reason string) error {
	d.metrics.RecordDispatch("rejected")
	d.logger.Warn("Gateway rejected campaign",
		zap.Int64("campaignID", campaign.ID),
		zap.Error(fmt.Errorf("%w: %s", ErrGatewayDispatch, reason)))

	err := d.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := d.campaignRepo.MarkFailed(ctx, campaign.ID, reason); err != nil {
			return err
		}

		_, err := d.settlement.RefundAll(ctx, campaign.ID, RefundReasonRejected)
		return err
	})
	if err != nil {
		d.logger.Error("Failed to fail and refund rejected campaign",
			zap.Int64("campaignID", campaign.ID),
			zap.Error(err))
		d.release(ctx, campaign.ID)
		return mq.Temporary(err)
	}

	if campaign.Strategy != model.StrategyAlimtalkFirst || campaign.FallbackOf != nil {
		return nil
	}

	fallback, err := d.campaigns.SubmitFallback(ctx, campaign)
	if err != nil {
		d.logger.Error("Failed to submit SMS fallback campaign",
			zap.Int64("campaignID", campaign.ID),
			zap.Error(err))
		return nil
	}

	d.logger.Info("SMS fallback campaign submitted",
		zap.Int64("campaignID", campaign.ID),
		zap.Int64("fallbackCampaignID", fallback.CampaignID),
		zap.String("channel", string(fallback.Channel)))

	return nil
}

func (d *dispatch) release(ctx context.Context, campaignID int64) {
	if err := d.campaignRepo.ReleaseClaim(ctx, campaignID); err != nil {
		d.logger.Error("Failed to release dispatch claim",
			zap.Int64("campaignID", campaignID),
			zap.Error(err))
	}
}

func (d *dispatch) buildRequest(campaign *model.Campaign, messages []model.CampaignMessage) kakaogateway.SendCampaignRequest {
	senderKey := campaign.SenderKey
	if senderKey == "" {
		senderKey = d.gatewayCfg.SenderKey
	}
	kakaoSenderKey := campaign.KakaoSenderKey
	if kakaoSenderKey == "" {
		kakaoSenderKey = d.gatewayCfg.KakaoSenderKey
	}

	smsContent := campaign.SMSContent
	if smsContent == "" && campaign.Channel != model.ChannelAlimtalk {
		smsContent = campaign.Content
	}

	contacts := make([]kakaogateway.Contact, 0, len(messages))
	for _, m := range messages {
		contacts = append(contacts, kakaogateway.Contact{Contact: m.Phone, Name: m.Name})
	}

	request := kakaogateway.SendCampaignRequest{
		SenderKey:      senderKey,
		KakaoSenderKey: kakaoSenderKey,
		ReplaceSms:     campaign.ReplaceSms,
		TemplateCode:   campaign.TemplateCode,
		Contacts:       contacts,
		SMSSubject:     campaign.SMSTitle,
		SMSContent:     smsContent,
	}
	request.Schedule(campaign.SendAt, d.now())

	return request
}
