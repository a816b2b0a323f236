package repository

import (
	"context"
	"errors"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"gorm.io/gorm"
)

var ErrRefundExists = errors.New("REFUND_EXISTS")

type LedgerRepository interface {
	Create(ctx context.Context, entry *model.LedgerEntry) error
	FindByCampaign(ctx context.Context, campaignID int64) ([]model.LedgerEntry, error)
	FindDeductsByCampaign(ctx context.Context, campaignID int64) ([]model.LedgerEntry, error)
	HasRefund(ctx context.Context, campaignID int64) (bool, error)
}

type Ledger struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &Ledger{db: db}
}

func (l *Ledger) Create(ctx context.Context, entry *model.LedgerEntry) error {
	db := GetTx(ctx, l.db)
	err := db.Create(entry).Error
	if err == nil {
		return nil
	}

	if isDuplicateKey(err) {
		return ErrRefundExists
	}

	return err
}

func (l *Ledger) FindByCampaign(ctx context.Context, campaignID int64) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry

	err := GetTx(ctx, l.db).
		Where("campaign_id = ?", campaignID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (l *Ledger) FindDeductsByCampaign(ctx context.Context, campaignID int64) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry

	err := GetTx(ctx, l.db).
		Where("campaign_id = ? AND direction = ?", campaignID, model.DirectionDeduct).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (l *Ledger) HasRefund(ctx context.Context, campaignID int64) (bool, error) {
	var count int64

	err := GetTx(ctx, l.db).Model(&model.LedgerEntry{}).
		Where("settlement_campaign_id = ?", campaignID).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
