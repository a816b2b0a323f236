package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/constants"
	"github.com/Behyna/sms-services/creditgateway/internal/metrics"
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	RefundReasonSettlement = "settlement"
	RefundReasonCancelled  = "cancelled"
	RefundReasonRejected   = "gateway_rejected"
)

type SettlementService interface {
	Settle(ctx context.Context, campaignID int64) (SettlementResult, error)
	RefundAll(ctx context.Context, campaignID int64, reason string) (SettlementResult, error)
}

type settlement struct {
	campaignRepo repository.CampaignRepository
	ledgerRepo   repository.LedgerRepository
	poolRepo     repository.CreditPoolRepository
	allocator    AllocatorService
	txManager    repository.TxManager
	costs        config.DefaultCosts
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewSettlementService(campaignRepo repository.CampaignRepository, ledgerRepo repository.LedgerRepository,
	poolRepo repository.CreditPoolRepository, allocator AllocatorService, txManager repository.TxManager,
	cfg *config.Config, metrics *metrics.Metrics, logger *zap.Logger) SettlementService {
	return &settlement{
		campaignRepo: campaignRepo,
		ledgerRepo:   ledgerRepo,
		poolRepo:     poolRepo,
		allocator:    allocator,
		txManager:    txManager,
		costs:        cfg.Billing.DefaultCosts,
		metrics:      metrics,
		logger:       logger,
	}
}

// refundPlan is the number of deducted units to give back and the number of
// delivered units to re-book on the alimtalk channel.
type refundPlan struct {
	refund     int64
	reclassify int64
}

// Settle books the final refund of a terminal campaign from its delivery
// counts. It runs at most once per campaign; later calls are no-ops.
func (s *settlement) Settle(ctx context.Context, campaignID int64) (SettlementResult, error) {
	return s.settle(ctx, campaignID, RefundReasonSettlement, isFinal, planFromCounts)
}

// RefundAll returns every deducted unit of a campaign that never reached the
// gateway. It shares the once-per-campaign guarantee with Settle.
func (s *settlement) RefundAll(ctx context.Context, campaignID int64, reason string) (SettlementResult, error) {
	return s.settle(ctx, campaignID, reason, neverAccepted, func(c *model.Campaign) refundPlan {
		return refundPlan{refund: c.TotalCount}
	})
}

func isFinal(c *model.Campaign) bool {
	return c.Status.IsTerminal()
}

// neverAccepted holds for campaigns closed before the gateway took them.
func neverAccepted(c *model.Campaign) bool {
	closed := c.Status == model.CampaignStatusCancelled || c.Status == model.CampaignStatusFailed
	return closed && c.GatewayCampaignKey == nil
}

func planFromCounts(c *model.Campaign) refundPlan {
	switch {
	case c.Channel == model.ChannelAlimtalk && c.ReplaceSms:
		return refundPlan{refund: c.SMSFailedCount + c.SuccessCount, reclassify: c.SuccessCount}
	case c.Channel == model.ChannelAlimtalk:
		return refundPlan{refund: c.FailedCount}
	default:
		return refundPlan{refund: c.TotalCount - c.SuccessCount}
	}
}

func (s *settlement) settle(ctx context.Context, campaignID int64, reason string,
	settleable func(*model.Campaign) bool, plan func(*model.Campaign) refundPlan) (SettlementResult, error) {
	joined := repository.HasTx(ctx)
	result := SettlementResult{CampaignID: campaignID}

	err := s.txManager.WithTx(ctx, func(ctx context.Context) error {
		result = SettlementResult{CampaignID: campaignID, RefundCredits: decimal.Zero, RefundCost: decimal.Zero}

		campaign, err := s.campaignRepo.LockByID(ctx, campaignID)
		if err != nil {
			if errors.Is(err, repository.ErrCampaignNotFound) {
				return NewServiceError(constants.ErrCodeCampaignNotFound, ErrCampaignNotFound)
			}
			return NewServiceError(ErrCodeDatabase, err)
		}

		settled, err := s.ledgerRepo.HasRefund(ctx, campaignID)
		if err != nil {
			return NewServiceError(ErrCodeDatabase, err)
		}
		if settled {
			result.AlreadySettled = true
			return nil
		}

		if !settleable(campaign) {
			s.logger.Warn("Campaign is not settleable",
				zap.Int64("campaignID", campaignID),
				zap.String("status", string(campaign.Status)),
				zap.String("reason", reason))
			return NewServiceError(constants.ErrCodeCampaignNotSettleable, ErrCampaignNotSettleable)
		}

		deducts, err := s.ledgerRepo.FindDeductsByCampaign(ctx, campaignID)
		if err != nil {
			return NewServiceError(ErrCodeDatabase, err)
		}

		basis := newRateBasis(deducts, campaign.CreditChannel)
		p := plan(campaign)
		refundCount := max(0, min(p.refund, basis.units))
		credits, cost := basis.portion(refundCount)

		result.RefundCount = refundCount
		result.RefundCredits = credits
		result.RefundCost = cost

		var poolID int64
		if credits.IsPositive() {
			pool := s.rechargePool(campaign, credits, cost)
			if err := s.poolRepo.Create(ctx, pool); err != nil {
				if errors.Is(err, repository.ErrPoolDuplicate) {
					return ErrSettlementConflict
				}
				s.logger.Error("Failed to create recharge pool",
					zap.Int64("campaignID", campaignID),
					zap.Error(err))
				return NewServiceError(ErrCodeDatabase, err)
			}
			poolID = pool.ID
			result.RechargePoolID = pool.ID
		}

		entry := model.LedgerEntry{
			TenantID:             campaign.TenantID,
			PoolID:               poolID,
			CampaignID:           campaignID,
			Direction:            model.DirectionRefund,
			Channel:              basis.channel,
			UnitCount:            -refundCount,
			CreditsAmount:        credits.Neg(),
			CostAmount:           cost.Neg(),
			SettlementCampaignID: &campaignID,
		}
		if err := s.ledgerRepo.Create(ctx, &entry); err != nil {
			if errors.Is(err, repository.ErrRefundExists) {
				return ErrSettlementConflict
			}
			s.logger.Error("Failed to write refund entry",
				zap.Int64("campaignID", campaignID),
				zap.Error(err))
			return NewServiceError(ErrCodeDatabase, err)
		}

		if p.reclassify > 0 {
			booked, err := s.reclassify(ctx, campaign, p.reclassify)
			if err != nil {
				return err
			}
			result.Reclassified = booked
			result.Unfunded = p.reclassify - booked
		}

		if err := s.campaignRepo.MarkSettled(ctx, campaignID, time.Now()); err != nil {
			return NewServiceError(ErrCodeDatabase, err)
		}

		return nil
	})

	if errors.Is(err, ErrSettlementConflict) && !joined {
		s.logger.Info("Campaign settled concurrently", zap.Int64("campaignID", campaignID))
		s.metrics.RecordSettlement("already_settled")
		return SettlementResult{CampaignID: campaignID, AlreadySettled: true}, nil
	}

	if err != nil {
		s.metrics.RecordSettlement("error")
		s.logger.Error("Settlement failed",
			zap.Int64("campaignID", campaignID),
			zap.String("reason", reason),
			zap.Error(err))
		return SettlementResult{}, err
	}

	if result.AlreadySettled {
		s.logger.Debug("Campaign already settled", zap.Int64("campaignID", campaignID))
		s.metrics.RecordSettlement("already_settled")
		return result, nil
	}

	s.metrics.RecordSettlement(reason)
	s.metrics.RecordCreditsRefunded(reason, result.RefundCredits)
	s.logger.Info("Campaign settled",
		zap.Int64("campaignID", campaignID),
		zap.String("reason", reason),
		zap.Int64("refundCount", result.RefundCount),
		zap.String("refundCredits", result.RefundCredits.String()),
		zap.Int64("reclassified", result.Reclassified),
		zap.Int64("unfunded", result.Unfunded),
		zap.Int64("rechargePoolID", result.RechargePoolID))

	return result, nil
}

// reclassify re-books delivered units on the alimtalk channel, up to what the
// tenant can still fund. The rest is reported as unfunded so the delivery
// result is never blocked by a short balance.
func (s *settlement) reclassify(ctx context.Context, campaign *model.Campaign, units int64) (int64, error) {
	capacity, err := s.allocator.Capacity(ctx, campaign.TenantID, model.ChannelAlimtalk)
	if err != nil {
		return 0, err
	}

	booked := min(units, capacity)
	if booked < units {
		s.metrics.RecordAllocationFailure(string(model.ChannelAlimtalk), "reclassify")
		s.logger.Warn("Delivered alimtalk messages exceed remaining credit",
			zap.Int64("campaignID", campaign.ID),
			zap.String("tenantID", campaign.TenantID),
			zap.Int64("delivered", units),
			zap.Int64("unfunded", units-booked))
	}
	if booked < 1 {
		return 0, nil
	}

	_, err = s.allocator.Deduct(ctx, DeductCommand{
		TenantID:   campaign.TenantID,
		Channel:    model.ChannelAlimtalk,
		Target:     booked,
		CampaignID: campaign.ID,
	})
	if err != nil {
		s.logger.Error("Failed to re-book delivered messages on alimtalk",
			zap.Int64("campaignID", campaign.ID),
			zap.Int64("units", booked),
			zap.Error(err))
		return 0, err
	}

	return booked, nil
}

// rechargePool is fresh funding for refunded credits, stamped with today's
// default unit costs.
func (s *settlement) rechargePool(campaign *model.Campaign, credits, cost decimal.Decimal) *model.CreditPool {
	key := fmt.Sprintf("refund:%d", campaign.ID)
	source := campaign.ID

	return &model.CreditPool{
		TenantID:         campaign.TenantID,
		Kind:             model.PoolKindRecharge,
		Status:           model.PoolStatusSuccess,
		PurchaseAmount:   cost,
		CreditsAmount:    credits,
		UsedCredits:      decimal.Zero,
		BalanceCredits:   credits,
		CostPerCredit:    cost.DivRound(credits, model.CreditScale),
		AlimtalkCost:     s.costs.Alimtalk,
		SMSCost:          s.costs.SMS,
		LMSCost:          s.costs.LMS,
		MMSCost:          s.costs.MMS,
		IdempotencyKey:   &key,
		SourceCampaignID: &source,
	}
}

// rateBasis is the campaign's original deduction, the price at which units
// are refunded.
type rateBasis struct {
	units   int64
	credits decimal.Decimal
	cost    decimal.Decimal
	channel model.Channel
}

func newRateBasis(deducts []model.LedgerEntry, fallback model.Channel) rateBasis {
	basis := rateBasis{credits: decimal.Zero, cost: decimal.Zero, channel: fallback}
	for i, entry := range deducts {
		if i == 0 {
			basis.channel = entry.Channel
		}
		basis.units += entry.UnitCount
		basis.credits = basis.credits.Add(entry.CreditsAmount)
		basis.cost = basis.cost.Add(entry.CostAmount)
	}
	return basis
}

func (b rateBasis) portion(n int64) (credits, cost decimal.Decimal) {
	if n <= 0 || b.units <= 0 {
		return decimal.Zero, decimal.Zero
	}
	if n == b.units {
		return b.credits, b.cost
	}

	share := decimal.NewFromInt(n)
	total := decimal.NewFromInt(b.units)

	credits = b.credits.Mul(share).DivRound(total, model.CreditScale)
	cost = b.cost.Mul(share).DivRound(total, model.CreditScale)
	return credits, cost
}
