package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/Behyna/sms-services/creditgateway/internal/constants"
	"github.com/Behyna/sms-services/creditgateway/internal/metrics"
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	replaceSmsLMSThreshold = 90
	smsMaxLength           = 90
	lmsMaxLength           = 2000
)

type AllocatorService interface {
	ClassifyChannel(requestType model.Channel, replaceSms bool, fallbackContentLength int) model.Channel
	Capacity(ctx context.Context, tenantID string, channel model.Channel) (int64, error)
	ValidateCapacity(ctx context.Context, tenantID string, channel model.Channel, target int64) error
	Deduct(ctx context.Context, cmd DeductCommand) (DeductResult, error)
}

type allocator struct {
	poolRepo   repository.CreditPoolRepository
	ledgerRepo repository.LedgerRepository
	txManager  repository.TxManager
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewAllocatorService(poolRepo repository.CreditPoolRepository, ledgerRepo repository.LedgerRepository,
	txManager repository.TxManager, metrics *metrics.Metrics, logger *zap.Logger) AllocatorService {
	return &allocator{poolRepo: poolRepo, ledgerRepo: ledgerRepo, txManager: txManager, metrics: metrics, logger: logger}
}

// ClassifyChannel picks the channel whose unit cost funds a campaign. An
// alimtalk campaign with SMS replacement is costed as its fallback message.
func (a *allocator) ClassifyChannel(requestType model.Channel, replaceSms bool, fallbackContentLength int) model.Channel {
	if requestType == model.ChannelAlimtalk {
		if !replaceSms {
			return model.ChannelAlimtalk
		}
		if fallbackContentLength >= replaceSmsLMSThreshold {
			return model.ChannelLMS
		}
		return model.ChannelSMS
	}

	return ClassifyByLength(fallbackContentLength)
}

// ClassifyByLength maps a text message length in characters to sms, lms or mms.
func ClassifyByLength(length int) model.Channel {
	switch {
	case length <= smsMaxLength:
		return model.ChannelSMS
	case length <= lmsMaxLength:
		return model.ChannelLMS
	default:
		return model.ChannelMMS
	}
}

func contentLength(s string) int {
	return utf8.RuneCountInString(s)
}

func (a *allocator) Capacity(ctx context.Context, tenantID string, channel model.Channel) (int64, error) {
	pools, err := a.poolRepo.FindEligible(ctx, tenantID, channel, false)
	if err != nil {
		a.logger.Error("Failed to load eligible pools",
			zap.String("tenantID", tenantID),
			zap.String("channel", string(channel)),
			zap.Error(err))
		return 0, NewServiceError(ErrCodeDatabase, err)
	}

	return sumSendable(pools, channel), nil
}

// ValidateCapacity fails with the exact sendable quantity when target exceeds
// it. Inside a transaction the pools are read FOR UPDATE, so the answer holds
// for a Deduct in the same transaction.
func (a *allocator) ValidateCapacity(ctx context.Context, tenantID string, channel model.Channel, target int64) error {
	pools, err := a.poolRepo.FindEligible(ctx, tenantID, channel, repository.HasTx(ctx))
	if err != nil {
		a.logger.Error("Failed to load eligible pools",
			zap.String("tenantID", tenantID),
			zap.String("channel", string(channel)),
			zap.Error(err))
		return NewServiceError(ErrCodeDatabase, err)
	}

	sendable := sumSendable(pools, channel)
	if target > sendable {
		a.logger.Info("Insufficient credit",
			zap.String("tenantID", tenantID),
			zap.String("channel", string(channel)),
			zap.Int64("requested", target),
			zap.Int64("sendable", sendable))
		a.metrics.RecordAllocationFailure(string(channel), "insufficient_credit")

		return NewServiceError(constants.ErrCodeInsufficientCredit,
			InsufficientCreditError{Requested: target, Sendable: sendable})
	}

	return nil
}

// Deduct spends target units of channel greedily across the tenant's eligible
// pools in ascending id order, writing one DEDUCT entry per touched pool.
// Fractional balances too small for one unit are left on their pools.
func (a *allocator) Deduct(ctx context.Context, cmd DeductCommand) (DeductResult, error) {
	var result DeductResult
	if cmd.Target <= 0 {
		return DeductResult{Credits: decimal.Zero, Cost: decimal.Zero}, nil
	}

	err := a.txManager.WithTx(ctx, func(ctx context.Context) error {
		result = DeductResult{Credits: decimal.Zero, Cost: decimal.Zero}

		pools, err := a.poolRepo.FindEligible(ctx, cmd.TenantID, cmd.Channel, true)
		if err != nil {
			a.logger.Error("Failed to lock eligible pools",
				zap.Int64("campaignID", cmd.CampaignID),
				zap.Error(err))
			return NewServiceError(ErrCodeDatabase, err)
		}

		remaining := cmd.Target
		for i := range pools {
			if remaining < 1 {
				break
			}

			pool := &pools[i]
			unitCost := pool.UnitCost(cmd.Channel)
			maxSendable := pool.MaxSendable(cmd.Channel)
			if !unitCost.IsPositive() || maxSendable < 1 {
				if pool.BalanceCredits.IsPositive() {
					a.logger.Debug("Skipping pool with stranded balance",
						zap.Int64("poolID", pool.ID),
						zap.String("balance", pool.BalanceCredits.String()),
						zap.String("unitCost", unitCost.String()))
				}
				continue
			}

			take := min(maxSendable, remaining)
			creditsSpent := unitCost.Mul(decimal.NewFromInt(take))
			costSpent := creditsSpent.Mul(pool.CostPerCredit).Round(model.CreditScale)

			if err := a.poolRepo.Consume(ctx, pool, creditsSpent); err != nil {
				if errors.Is(err, repository.ErrPoolConflict) {
					a.logger.Error("Pool changed during allocation",
						zap.Int64("poolID", pool.ID),
						zap.Int64("campaignID", cmd.CampaignID))
					return NewServiceError(constants.ErrCodeAllocationFailed, fmt.Errorf("%w: %v", ErrAllocation, err))
				}
				return NewServiceError(ErrCodeDatabase, err)
			}

			entry := model.LedgerEntry{
				TenantID:      cmd.TenantID,
				PoolID:        pool.ID,
				CampaignID:    cmd.CampaignID,
				Direction:     model.DirectionDeduct,
				Channel:       cmd.Channel,
				UnitCount:     take,
				CreditsAmount: creditsSpent,
				CostAmount:    costSpent,
			}
			if err := a.ledgerRepo.Create(ctx, &entry); err != nil {
				a.logger.Error("Failed to write deduct entry",
					zap.Int64("poolID", pool.ID),
					zap.Int64("campaignID", cmd.CampaignID),
					zap.Error(err))
				return NewServiceError(ErrCodeDatabase, err)
			}

			result.Entries = append(result.Entries, entry)
			result.Credits = result.Credits.Add(creditsSpent)
			result.Cost = result.Cost.Add(costSpent)
			remaining -= take
		}

		if remaining >= 1 {
			a.logger.Error("Credit allocation exhausted eligible pools",
				zap.String("tenantID", cmd.TenantID),
				zap.String("channel", string(cmd.Channel)),
				zap.Int64("campaignID", cmd.CampaignID),
				zap.Int64("target", cmd.Target),
				zap.Int64("remaining", remaining))
			return NewServiceError(constants.ErrCodeAllocationFailed,
				fmt.Errorf("%w: %d of %d units unfunded", ErrAllocation, remaining, cmd.Target))
		}

		return nil
	})
	if err != nil {
		a.metrics.RecordAllocationFailure(string(cmd.Channel), "deduct")
		return DeductResult{}, err
	}

	a.metrics.RecordCreditsDeducted(string(cmd.Channel), result.Credits)
	a.logger.Info("Credits deducted",
		zap.Int64("campaignID", cmd.CampaignID),
		zap.String("channel", string(cmd.Channel)),
		zap.Int64("units", cmd.Target),
		zap.String("credits", result.Credits.String()),
		zap.Int("pools", len(result.Entries)))

	return result, nil
}

func sumSendable(pools []model.CreditPool, channel model.Channel) int64 {
	var total int64
	for _, pool := range pools {
		if !pool.Eligible(channel) {
			continue
		}
		total += pool.MaxSendable(channel)
	}
	return total
}
