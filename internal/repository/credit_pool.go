package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPoolNotFound  = errors.New("POOL_NOT_FOUND")
	ErrPoolDuplicate = errors.New("POOL_DUPLICATE")
	ErrPoolConflict  = errors.New("POOL_CONFLICT")
)

type CreditPoolRepository interface {
	Create(ctx context.Context, pool *model.CreditPool) error
	GetByID(ctx context.Context, id int64) (*model.CreditPool, error)
	GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*model.CreditPool, error)
	FindEligible(ctx context.Context, tenantID string, channel model.Channel, lock bool) ([]model.CreditPool, error)
	Consume(ctx context.Context, pool *model.CreditPool, credits decimal.Decimal) error
	UpdateStatus(ctx context.Context, id int64, from, to model.PoolStatus) error
	SumBalance(ctx context.Context, tenantID string) (decimal.Decimal, error)
}

type CreditPool struct {
	db *gorm.DB
}

func NewCreditPoolRepository(db *gorm.DB) CreditPoolRepository {
	return &CreditPool{db: db}
}

func (r *CreditPool) Create(ctx context.Context, pool *model.CreditPool) error {
	db := GetTx(ctx, r.db)
	err := db.Create(pool).Error
	if err == nil {
		return nil
	}

	if isDuplicateKey(err) {
		return ErrPoolDuplicate
	}

	return err
}

func (r *CreditPool) GetByID(ctx context.Context, id int64) (*model.CreditPool, error) {
	var pool model.CreditPool

	err := GetTx(ctx, r.db).Where("id = ?", id).First(&pool).Error
	if err == nil {
		return &pool, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPoolNotFound
	}

	return nil, err
}

func (r *CreditPool) GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*model.CreditPool, error) {
	var pool model.CreditPool

	err := GetTx(ctx, r.db).Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).First(&pool).Error
	if err == nil {
		return &pool, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPoolNotFound
	}

	return nil, err
}

// FindEligible returns the pools that can fund channel, in ascending id order.
// With lock set the rows are read FOR UPDATE, so every allocator locks pools in
// the same order.
func (r *CreditPool) FindEligible(ctx context.Context, tenantID string, channel model.Channel, lock bool) ([]model.CreditPool, error) {
	var pools []model.CreditPool

	db := GetTx(ctx, r.db)
	if lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	err := db.
		Where("tenant_id = ? AND status = ? AND retired_at IS NULL AND balance_credits > 0", tenantID, model.PoolStatusSuccess).
		Where(clause.Gt{Column: clause.Column{Name: channel.CostColumn()}, Value: 0}).
		Order("id ASC").
		Find(&pools).Error
	if err != nil {
		return nil, err
	}

	return pools, nil
}

// Consume spends credits from pool. The update is conditional on the version
// and balance read by the caller; a pool exhausted to zero is retired.
func (r *CreditPool) Consume(ctx context.Context, pool *model.CreditPool, credits decimal.Decimal) error {
	db := GetTx(ctx, r.db)
	now := time.Now()

	updates := map[string]any{
		"used_credits":    gorm.Expr("used_credits + ?", credits),
		"balance_credits": gorm.Expr("balance_credits - ?", credits),
		"version":         gorm.Expr("version + 1"),
		"updated_at":      now,
	}

	remaining := pool.BalanceCredits.Sub(credits)
	if remaining.IsZero() {
		updates["retired_at"] = now
	}

	result := db.Model(&model.CreditPool{}).
		Where("id = ? AND version = ? AND balance_credits >= ?", pool.ID, pool.Version, credits).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrPoolConflict
	}

	pool.UsedCredits = pool.UsedCredits.Add(credits)
	pool.BalanceCredits = remaining
	pool.Version++
	if remaining.IsZero() {
		pool.RetiredAt = &now
	}

	return nil
}

func (r *CreditPool) UpdateStatus(ctx context.Context, id int64, from, to model.PoolStatus) error {
	result := GetTx(ctx, r.db).Model(&model.CreditPool{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}

	return nil
}

func (r *CreditPool) SumBalance(ctx context.Context, tenantID string) (decimal.Decimal, error) {
	var total decimal.NullDecimal

	err := GetTx(ctx, r.db).Model(&model.CreditPool{}).
		Select("SUM(balance_credits)").
		Where("tenant_id = ? AND status = ? AND retired_at IS NULL", tenantID, model.PoolStatusSuccess).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}

	if !total.Valid {
		return decimal.Zero, nil
	}

	return total.Decimal, nil
}
