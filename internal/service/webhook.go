package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/constants"
	"github.com/Behyna/sms-services/creditgateway/internal/metrics"
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/Behyna/sms-services/creditgateway/pkg/idempotent"
	"go.uber.org/zap"
)

const (
	signaturePrefix    = "sha256="
	webhookNamespace   = "webhook"
	retryBackoffFactor = 100 * time.Millisecond
)

type WebhookService interface {
	ApplyDeliveryResult(ctx context.Context, cmd ApplyDeliveryResultCommand) (ApplyDeliveryResultResponse, error)
}

type webhook struct {
	campaignRepo  repository.CampaignRepository
	messageRepo   repository.CampaignMessageRepository
	txManager     repository.TxManager
	settlement    SettlementService
	guard         idempotent.Guard
	secret        string
	retryAttempts int
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

func NewWebhookService(campaignRepo repository.CampaignRepository, messageRepo repository.CampaignMessageRepository,
	txManager repository.TxManager, settlement SettlementService, guard idempotent.Guard, cfg *config.Config,
	metrics *metrics.Metrics, logger *zap.Logger) WebhookService {
	return &webhook{
		campaignRepo:  campaignRepo,
		messageRepo:   messageRepo,
		txManager:     txManager,
		settlement:    settlement,
		guard:         guard,
		secret:        cfg.Webhook.Secret,
		retryAttempts: max(1, cfg.Webhook.RetryAttempts),
		metrics:       metrics,
		logger:        logger,
	}
}

// VerifySignature checks a hex HMAC-SHA256 of body, optionally prefixed with
// "sha256=". An empty secret disables verification.
func VerifySignature(secret, signature string, body []byte) bool {
	if secret == "" {
		return true
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), signaturePrefix))
	if err != nil || len(provided) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hmac.Equal(mac.Sum(nil), provided)
}

// Sign returns the signature VerifySignature accepts for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// ApplyDeliveryResult overwrites a campaign's delivery outcome with the
// provider's report and settles the campaign once the report is terminal.
func (w *webhook) ApplyDeliveryResult(ctx context.Context, cmd ApplyDeliveryResultCommand) (ApplyDeliveryResultResponse, error) {
	if !VerifySignature(w.secret, cmd.Signature, cmd.RawBody) {
		w.metrics.RecordWebhook("invalid_signature")
		w.logger.Warn("Webhook signature mismatch", zap.Int("bodySize", len(cmd.RawBody)))
		return ApplyDeliveryResultResponse{}, NewServiceError(constants.ErrCodeInvalidSignature, ErrInvalidSignature)
	}

	var payload deliveryPayload
	if err := json.Unmarshal(cmd.RawBody, &payload); err != nil || payload.CampaignID <= 0 {
		w.metrics.RecordWebhook("invalid_payload")
		return ApplyDeliveryResultResponse{}, NewServiceError(constants.ErrCodeValidationFailed,
			fmt.Errorf("%w: %v", ErrInvalidPayload, err))
	}

	status, err := model.ParseCampaignStatus(payload.Campaign.Status)
	if err != nil {
		w.metrics.RecordWebhook("invalid_payload")
		return ApplyDeliveryResultResponse{}, NewServiceError(constants.ErrCodeValidationFailed,
			fmt.Errorf("%w: %v", ErrInvalidPayload, err))
	}

	key := idempotent.Digest(webhookNamespace, cmd.RawBody)
	seen, err := w.guard.Seen(ctx, key)
	if err != nil {
		w.logger.Warn("Replay guard unavailable", zap.Error(err))
	}
	if seen {
		w.metrics.RecordWebhook("duplicate")
		w.logger.Info("Webhook replay ignored", zap.Int64("campaignID", payload.CampaignID))
		return ApplyDeliveryResultResponse{CampaignID: payload.CampaignID, Status: status, Duplicate: true}, nil
	}

	var response ApplyDeliveryResultResponse
	for attempt := 1; ; attempt++ {
		response, err = w.apply(ctx, payload, status)
		if err == nil || !repository.IsRetryable(err) || attempt >= w.retryAttempts {
			break
		}

		w.logger.Warn("Retrying webhook after lock conflict",
			zap.Int64("campaignID", payload.CampaignID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ApplyDeliveryResultResponse{}, ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoffFactor):
		}
	}

	if err != nil {
		w.metrics.RecordWebhook("error")
		w.logger.Error("Failed to apply delivery result",
			zap.Int64("campaignID", payload.CampaignID),
			zap.Error(err))
		return ApplyDeliveryResultResponse{}, err
	}

	if err := w.guard.Mark(ctx, key); err != nil {
		w.logger.Warn("Failed to record webhook digest", zap.Error(err))
	}

	w.metrics.RecordWebhook("applied")
	return response, nil
}

func (w *webhook) apply(ctx context.Context, payload deliveryPayload, status model.CampaignStatus) (ApplyDeliveryResultResponse, error) {
	response := ApplyDeliveryResultResponse{CampaignID: payload.CampaignID}

	err := w.txManager.WithTx(ctx, func(ctx context.Context) error {
		campaign, err := w.campaignRepo.LockByID(ctx, payload.CampaignID)
		if errors.Is(err, repository.ErrCampaignNotFound) {
			w.logger.Warn("Webhook for unknown campaign", zap.Int64("campaignID", payload.CampaignID))
			return NewServiceError(constants.ErrCodeCampaignNotFound, ErrCampaignNotFound)
		}
		if err != nil {
			return NewServiceError(ErrCodeDatabase, err)
		}

		next := status
		if campaign.Status.IsTerminal() && status != campaign.Status {
			w.logger.Info("Ignoring status change for closed campaign",
				zap.Int64("campaignID", campaign.ID),
				zap.String("current", string(campaign.Status)),
				zap.String("reported", string(status)))
			next = campaign.Status
		}

		now := time.Now()
		campaign.Status = next
		campaign.WebhookReceivedAt = &now
		campaign.DeliveryCounts = model.DeliveryCounts{
			TotalCount:      payload.Campaign.TotalCount,
			PendingCount:    payload.Campaign.PendingCount,
			SuccessCount:    payload.Campaign.SuccessCount,
			FailedCount:     payload.Campaign.FailedCount,
			RejectedCount:   payload.Campaign.RejectedCount,
			CanceledCount:   payload.Campaign.CanceledCount,
			SMSSuccessCount: payload.Campaign.SMSSuccessCount,
			SMSFailedCount:  payload.Campaign.SMSFailedCount,
		}

		if next.IsTerminal() && !campaign.DeliveryCounts.Balanced() {
			w.logger.Warn("Terminal delivery counts do not add up",
				zap.Int64("campaignID", campaign.ID),
				zap.Int64("total", campaign.TotalCount),
				zap.Int64("pending", campaign.PendingCount),
				zap.Int64("success", campaign.SuccessCount),
				zap.Int64("failed", campaign.FailedCount),
				zap.Int64("rejected", campaign.RejectedCount),
				zap.Int64("canceled", campaign.CanceledCount))
		}

		if err := w.campaignRepo.UpdateDeliveryResult(ctx, campaign); err != nil {
			return NewServiceError(ErrCodeDatabase, err)
		}

		for _, phone := range slices.Sorted(maps.Keys(payload.Messages)) {
			if err := w.applyMessage(ctx, campaign.ID, phone, payload.Messages[phone]); err != nil {
				return err
			}
		}

		response.Status = next
		if !next.IsTerminal() {
			return nil
		}

		result, err := w.settlement.Settle(ctx, campaign.ID)
		if err != nil {
			return err
		}
		response.Settled = !result.AlreadySettled

		return nil
	})
	if err != nil {
		return ApplyDeliveryResultResponse{}, err
	}

	w.logger.Info("Delivery result applied",
		zap.Int64("campaignID", payload.CampaignID),
		zap.String("status", string(response.Status)),
		zap.Bool("settled", response.Settled))

	return response, nil
}

func (w *webhook) applyMessage(ctx context.Context, campaignID int64, phone string, result messageResult) error {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		w.logger.Warn("Skipping result for malformed recipient",
			zap.Int64("campaignID", campaignID),
			zap.String("phone", phone))
		return nil
	}

	err = w.messageRepo.UpdateResultByPhone(ctx, campaignID, normalized, result.KakaoResultCode, result.SMSResultCode)
	if errors.Is(err, repository.ErrNoRowsAffected) {
		w.logger.Debug("Result for unknown recipient",
			zap.Int64("campaignID", campaignID),
			zap.String("phone", normalized))
		return nil
	}
	if err != nil {
		return NewServiceError(ErrCodeDatabase, err)
	}

	return nil
}
