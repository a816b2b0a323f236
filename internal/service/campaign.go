package service

import (
	"context"
	"errors"

	"github.com/Behyna/sms-services/creditgateway/internal/constants"
	"github.com/Behyna/sms-services/creditgateway/internal/metrics"
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"go.uber.org/zap"
)

const fallbackSuffix = ":sms-fallback"

type CampaignService interface {
	Submit(ctx context.Context, cmd SubmitCampaignCommand) (SubmitCampaignResponse, error)
	SubmitFallback(ctx context.Context, parent *model.Campaign) (SubmitCampaignResponse, error)
	Cancel(ctx context.Context, cmd CancelCampaignCommand) error
	Get(ctx context.Context, tenantID string, campaignID int64) (CampaignDetail, error)
}

type campaign struct {
	campaignRepo repository.CampaignRepository
	messageRepo  repository.CampaignMessageRepository
	ledgerRepo   repository.LedgerRepository
	txManager    repository.TxManager
	router       RouterService
	allocator    AllocatorService
	settlement   SettlementService
	funding      FundingService
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewCampaignService(campaignRepo repository.CampaignRepository, messageRepo repository.CampaignMessageRepository,
	ledgerRepo repository.LedgerRepository, txManager repository.TxManager, router RouterService,
	allocator AllocatorService, settlement SettlementService, funding FundingService,
	metrics *metrics.Metrics, logger *zap.Logger) CampaignService {
	return &campaign{
		campaignRepo: campaignRepo,
		messageRepo:  messageRepo,
		ledgerRepo:   ledgerRepo,
		txManager:    txManager,
		router:       router,
		allocator:    allocator,
		settlement:   settlement,
		funding:      funding,
		metrics:      metrics,
		logger:       logger,
	}
}

// Submit creates a PENDING campaign and deducts its credits in one
// transaction. Resubmitting a client request id returns the first campaign.
func (c *campaign) Submit(ctx context.Context, cmd SubmitCampaignCommand) (SubmitCampaignResponse, error) {
	dup, err := c.existing(ctx, cmd.TenantID, cmd.ClientRequestID)
	if err != nil {
		return SubmitCampaignResponse{}, err
	}
	if dup != nil {
		return *dup, nil
	}

	recipients, err := c.router.ValidateRecipients(cmd.Recipients)
	if err != nil {
		return SubmitCampaignResponse{}, err
	}

	count := int64(len(recipients))
	decision, err := c.router.Route(ctx, RouteCommand{
		TenantID:       cmd.TenantID,
		Strategy:       cmd.Strategy,
		ReplaceSms:     cmd.ReplaceSms,
		Content:        cmd.Content,
		SMSContent:     cmd.SMSContent,
		RecipientCount: count,
	})
	if err != nil {
		return SubmitCampaignResponse{}, err
	}

	entity := model.Campaign{
		TenantID:        cmd.TenantID,
		ClientRequestID: cmd.ClientRequestID,
		Strategy:        cmd.Strategy,
		Channel:         decision.Channel,
		CreditChannel:   decision.CreditChannel,
		Status:          model.CampaignStatusPending,
		ReplaceSms:      decision.ReplaceSms,
		SenderKey:       cmd.SenderKey,
		KakaoSenderKey:  cmd.KakaoSenderKey,
		TemplateCode:    cmd.TemplateCode,
		Content:         cmd.Content,
		SMSTitle:        cmd.SMSTitle,
		SMSContent:      cmd.SMSContent,
		SendAt:          cmd.SendAt,
		DeliveryCounts:  model.DeliveryCounts{TotalCount: count, PendingCount: count},
		FallbackOf:      cmd.FallbackOf,
	}

	var deducted DeductResult
	err = c.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := c.allocator.ValidateCapacity(ctx, cmd.TenantID, decision.CreditChannel, count); err != nil {
			return err
		}

		if err := c.campaignRepo.Create(ctx, &entity); err != nil {
			if errors.Is(err, repository.ErrCampaignDuplicate) {
				return err
			}
			c.logger.Warn("Failed to create campaign", zap.Error(err))
			return NewServiceError(ErrCodeDatabase, err)
		}

		messages := make([]model.CampaignMessage, 0, len(recipients))
		for _, r := range recipients {
			messages = append(messages, model.CampaignMessage{CampaignID: entity.ID, Phone: r.Phone, Name: r.Name})
		}
		if err := c.messageRepo.CreateBatch(ctx, messages); err != nil {
			c.logger.Warn("Failed to create campaign messages", zap.Error(err))
			return NewServiceError(ErrCodeDatabase, err)
		}

		result, err := c.allocator.Deduct(ctx, DeductCommand{
			TenantID:   cmd.TenantID,
			Channel:    decision.CreditChannel,
			Target:     count,
			CampaignID: entity.ID,
		})
		if err != nil {
			return err
		}
		deducted = result

		return nil
	})

	if errors.Is(err, repository.ErrCampaignDuplicate) {
		if dup, getErr := c.existing(ctx, cmd.TenantID, cmd.ClientRequestID); getErr == nil && dup != nil {
			return *dup, nil
		}
		err = NewServiceError(ErrCodeDatabase, err)
	}

	if err != nil {
		c.logger.Error("Campaign submission failed",
			zap.String("tenantID", cmd.TenantID),
			zap.String("clientRequestID", cmd.ClientRequestID),
			zap.Error(err))
		return SubmitCampaignResponse{}, err
	}

	c.metrics.RecordCampaignSubmitted(string(cmd.Strategy), string(decision.Channel))
	c.logger.Info("Campaign accepted",
		zap.Int64("campaignID", entity.ID),
		zap.String("tenantID", cmd.TenantID),
		zap.String("channel", string(decision.Channel)),
		zap.String("creditChannel", string(decision.CreditChannel)),
		zap.Int64("recipients", count))

	if err := c.funding.CheckAutoCharge(ctx, cmd.TenantID); err != nil {
		c.logger.Warn("Auto-charge check failed", zap.String("tenantID", cmd.TenantID), zap.Error(err))
	}

	return SubmitCampaignResponse{
		CampaignID:    entity.ID,
		Status:        entity.Status,
		Channel:       entity.Channel,
		CreditChannel: entity.CreditChannel,
		Recipients:    count,
		Credits:       deducted.Credits,
		Cost:          deducted.Cost,
	}, nil
}

func (c *campaign) existing(ctx context.Context, tenantID, clientRequestID string) (*SubmitCampaignResponse, error) {
	found, err := c.campaignRepo.GetByClientRequestID(ctx, tenantID, clientRequestID)
	if errors.Is(err, repository.ErrCampaignNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	c.logger.Info("Duplicate campaign submission",
		zap.String("tenantID", tenantID),
		zap.String("clientRequestID", clientRequestID),
		zap.Int64("campaignID", found.ID))

	return &SubmitCampaignResponse{
		CampaignID:    found.ID,
		Status:        found.Status,
		Channel:       found.Channel,
		CreditChannel: found.CreditChannel,
		Recipients:    found.TotalCount,
		Duplicate:     true,
	}, nil
}

// SubmitFallback resubmits the recipients of a rejected alimtalk campaign as
// an SMS campaign.
func (c *campaign) SubmitFallback(ctx context.Context, parent *model.Campaign) (SubmitCampaignResponse, error) {
	messages, err := c.messageRepo.FindByCampaign(ctx, parent.ID)
	if err != nil {
		return SubmitCampaignResponse{}, NewServiceError(ErrCodeDatabase, err)
	}

	recipients := make([]Recipient, 0, len(messages))
	for _, m := range messages {
		recipients = append(recipients, Recipient{Phone: m.Phone, Name: m.Name})
	}

	content := parent.SMSContent
	if content == "" {
		content = parent.Content
	}

	parentID := parent.ID
	return c.Submit(ctx, SubmitCampaignCommand{
		TenantID:        parent.TenantID,
		ClientRequestID: parent.ClientRequestID + fallbackSuffix,
		Strategy:        model.StrategySMSOnly,
		SenderKey:       parent.SenderKey,
		Content:         content,
		SMSTitle:        parent.SMSTitle,
		SMSContent:      content,
		SendAt:          parent.SendAt,
		Recipients:      recipients,
		FallbackOf:      &parentID,
	})
}

// Cancel voids a campaign that no dispatcher has picked up yet and returns
// its deducted credits.
func (c *campaign) Cancel(ctx context.Context, cmd CancelCampaignCommand) error {
	err := c.txManager.WithTx(ctx, func(ctx context.Context) error {
		entity, err := c.campaignRepo.LockByID(ctx, cmd.CampaignID)
		if errors.Is(err, repository.ErrCampaignNotFound) {
			return NewServiceError(constants.ErrCodeCampaignNotFound, ErrCampaignNotFound)
		}
		if err != nil {
			return NewServiceError(ErrCodeDatabase, err)
		}

		if entity.TenantID != cmd.TenantID {
			return NewServiceError(constants.ErrCodeCampaignNotFound, ErrCampaignNotFound)
		}

		if entity.Status != model.CampaignStatusPending {
			return NewServiceError(constants.ErrCodeCampaignNotCancellable, ErrCampaignNotCancellable)
		}

		err = c.campaignRepo.MarkCancelled(ctx, cmd.CampaignID)
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return NewServiceError(constants.ErrCodeCampaignNotCancellable, ErrCampaignBeingDispatched)
		}
		if err != nil {
			return NewServiceError(ErrCodeDatabase, err)
		}

		_, err = c.settlement.RefundAll(ctx, cmd.CampaignID, RefundReasonCancelled)
		return err
	})
	if err != nil {
		c.logger.Warn("Campaign cancellation failed",
			zap.Int64("campaignID", cmd.CampaignID),
			zap.Error(err))
		return err
	}

	c.metrics.RecordCampaignCancelled()
	c.logger.Info("Campaign cancelled", zap.Int64("campaignID", cmd.CampaignID))

	return nil
}

func (c *campaign) Get(ctx context.Context, tenantID string, campaignID int64) (CampaignDetail, error) {
	entity, err := c.campaignRepo.GetByID(ctx, campaignID)
	if errors.Is(err, repository.ErrCampaignNotFound) || (err == nil && entity.TenantID != tenantID) {
		return CampaignDetail{}, NewServiceError(constants.ErrCodeCampaignNotFound, ErrCampaignNotFound)
	}
	if err != nil {
		return CampaignDetail{}, NewServiceError(ErrCodeDatabase, err)
	}

	messages, err := c.messageRepo.FindByCampaign(ctx, campaignID)
	if err != nil {
		return CampaignDetail{}, NewServiceError(ErrCodeDatabase, err)
	}
	entity.Messages = messages

	entries, err := c.ledgerRepo.FindByCampaign(ctx, campaignID)
	if err != nil {
		return CampaignDetail{}, NewServiceError(ErrCodeDatabase, err)
	}

	return CampaignDetail{Campaign: *entity, Ledger: entries}, nil
}
