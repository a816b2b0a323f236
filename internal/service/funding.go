package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Behyna/sms-services/creditgateway/internal/config"
	"github.com/Behyna/sms-services/creditgateway/internal/constants"
	"github.com/Behyna/sms-services/creditgateway/internal/metrics"
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/Behyna/sms-services/creditgateway/internal/repository"
	"github.com/Behyna/sms-services/creditgateway/pkg/mq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type FundingService interface {
	CreateCharge(ctx context.Context, cmd CreateChargeCommand) (*model.CreditPool, error)
	ConfirmCharge(ctx context.Context, tenantID string, poolID int64) (*model.CreditPool, error)
	CheckAutoCharge(ctx context.Context, tenantID string) error
}

type funding struct {
	poolRepo   repository.CreditPoolRepository
	publisher  mq.Publisher
	costs      config.DefaultCosts
	autoCharge config.AutoCharge
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewFundingService(poolRepo repository.CreditPoolRepository, publisher mq.Publisher, cfg *config.Config,
	metrics *metrics.Metrics, logger *zap.Logger) FundingService {
	return &funding{
		poolRepo:   poolRepo,
		publisher:  publisher,
		costs:      cfg.Billing.DefaultCosts,
		autoCharge: cfg.Billing.AutoCharge,
		metrics:    metrics,
		logger:     logger,
	}
}

// CreateCharge records a purchased pool. A confirmed payment yields a SUCCESS
// pool; otherwise the pool waits in PENDING for ConfirmCharge. Repeating an
// idempotency key returns the pool created the first time.
func (f *funding) CreateCharge(ctx context.Context, cmd CreateChargeCommand) (*model.CreditPool, error) {
	if !cmd.CreditsAmount.IsPositive() || cmd.PurchaseAmount.IsNegative() {
		return nil, NewServiceError(constants.ErrCodeValidationFailed,
			fmt.Errorf("credits must be positive and purchase non-negative"))
	}

	status := model.PoolStatusPending
	if cmd.Confirmed {
		status = model.PoolStatusSuccess
	}

	credits := cmd.CreditsAmount.Round(model.CreditScale)
	pool := &model.CreditPool{
		TenantID:       cmd.TenantID,
		Kind:           model.PoolKindCharge,
		Status:         status,
		PurchaseAmount: cmd.PurchaseAmount.Round(model.CreditScale),
		CreditsAmount:  credits,
		UsedCredits:    decimal.Zero,
		BalanceCredits: credits,
		CostPerCredit:  cmd.PurchaseAmount.DivRound(credits, model.CreditScale),
		AlimtalkCost:   f.costs.Alimtalk,
		SMSCost:        f.costs.SMS,
		LMSCost:        f.costs.LMS,
		MMSCost:        f.costs.MMS,
	}
	if cmd.IdempotencyKey != "" {
		key := cmd.IdempotencyKey
		pool.IdempotencyKey = &key
	}

	err := f.poolRepo.Create(ctx, pool)
	if errors.Is(err, repository.ErrPoolDuplicate) && pool.IdempotencyKey != nil {
		existing, getErr := f.poolRepo.GetByIdempotencyKey(ctx, cmd.TenantID, cmd.IdempotencyKey)
		if getErr != nil {
			return nil, NewServiceError(ErrCodeDatabase, getErr)
		}

		f.logger.Info("Charge already recorded",
			zap.String("tenantID", cmd.TenantID),
			zap.String("idempotencyKey", cmd.IdempotencyKey),
			zap.Int64("poolID", existing.ID))
		return existing, nil
	}

	if err != nil {
		f.logger.Error("Failed to create charge pool",
			zap.String("tenantID", cmd.TenantID),
			zap.Error(err))
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	f.logger.Info("Charge pool created",
		zap.String("tenantID", cmd.TenantID),
		zap.Int64("poolID", pool.ID),
		zap.String("status", string(pool.Status)),
		zap.String("credits", pool.CreditsAmount.String()))

	return pool, nil
}

func (f *funding) ConfirmCharge(ctx context.Context, tenantID string, poolID int64) (*model.CreditPool, error) {
	pool, err := f.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		if errors.Is(err, repository.ErrPoolNotFound) {
			return nil, NewServiceError(constants.ErrCodePoolNotFound, ErrPoolNotFound)
		}
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	if pool.TenantID != tenantID {
		return nil, NewServiceError(constants.ErrCodePoolNotFound, ErrPoolNotFound)
	}

	if pool.Status == model.PoolStatusSuccess {
		return pool, nil
	}

	err = f.poolRepo.UpdateStatus(ctx, poolID, model.PoolStatusPending, model.PoolStatusSuccess)
	if errors.Is(err, repository.ErrNoRowsAffected) {
		return nil, NewServiceError(constants.ErrCodePoolNotConfirmable, ErrPoolNotConfirmable)
	}
	if err != nil {
		return nil, NewServiceError(ErrCodeDatabase, err)
	}

	pool.Status = model.PoolStatusSuccess
	f.logger.Info("Charge pool confirmed", zap.Int64("poolID", poolID), zap.String("tenantID", tenantID))

	return pool, nil
}

// CheckAutoCharge asks the payment collaborator to top up a tenant whose
// spendable balance fell below the configured threshold.
func (f *funding) CheckAutoCharge(ctx context.Context, tenantID string) error {
	if !f.autoCharge.Enabled || f.publisher == nil {
		return nil
	}

	balance, err := f.poolRepo.SumBalance(ctx, tenantID)
	if err != nil {
		return NewServiceError(ErrCodeDatabase, err)
	}

	if !balance.LessThan(f.autoCharge.Threshold) {
		return nil
	}

	body, err := json.Marshal(AutoChargeCommand{TenantID: tenantID, Amount: f.autoCharge.Amount, Balance: balance})
	if err != nil {
		return err
	}

	if err := f.publisher.Publish(ctx, "", mq.QueueCreditAutoCharge, body); err != nil {
		f.logger.Error("Failed to publish auto-charge request",
			zap.String("tenantID", tenantID),
			zap.Error(err))
		return err
	}

	f.metrics.RecordAutoChargeRequested()
	f.logger.Info("Auto-charge requested",
		zap.String("tenantID", tenantID),
		zap.String("balance", balance.String()),
		zap.String("amount", f.autoCharge.Amount.String()))

	return nil
}
