package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCampaignNotFound  = errors.New("CAMPAIGN_NOT_FOUND")
	ErrCampaignDuplicate = errors.New("CAMPAIGN_DUPLICATE")
)

var deliveryColumns = []string{
	"status", "total_count", "pending_count", "success_count", "failed_count",
	"rejected_count", "canceled_count", "sms_success_count", "sms_failed_count",
	"webhook_received_at", "updated_at",
}

type CampaignRepository interface {
	Create(ctx context.Context, campaign *model.Campaign) error
	GetByID(ctx context.Context, id int64) (*model.Campaign, error)
	GetByClientRequestID(ctx context.Context, tenantID, clientRequestID string) (*model.Campaign, error)
	LockByID(ctx context.Context, id int64) (*model.Campaign, error)
	UpdateDeliveryResult(ctx context.Context, campaign *model.Campaign) error
	ClaimForDispatch(ctx context.Context, id int64, staleThreshold time.Time) error
	ReleaseClaim(ctx context.Context, id int64) error
	MarkDispatched(ctx context.Context, id int64, gatewayKey string) error
	MarkFailed(ctx context.Context, id int64, lastError string) error
	MarkCancelled(ctx context.Context, id int64) error
	MarkSettled(ctx context.Context, id int64, settledAt time.Time) error
	FindUnpublishedPending(ctx context.Context, limit int) ([]model.Campaign, error)
	MarkPublished(ctx context.Context, id int64) error
}

type Campaign struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &Campaign{db: db}
}

func (c *Campaign) Create(ctx context.Context, campaign *model.Campaign) error {
	db := GetTx(ctx, c.db)
	err := db.Omit("Messages").Create(campaign).Error
	if err == nil {
		return nil
	}

	if isDuplicateKey(err) {
		return ErrCampaignDuplicate
	}

	return err
}

func (c *Campaign) GetByID(ctx context.Context, id int64) (*model.Campaign, error) {
	var campaign model.Campaign

	err := GetTx(ctx, c.db).Where("id = ?", id).First(&campaign).Error
	return found(&campaign, err)
}

func (c *Campaign) GetByClientRequestID(ctx context.Context, tenantID, clientRequestID string) (*model.Campaign, error) {
	var campaign model.Campaign

	err := GetTx(ctx, c.db).
		Where("tenant_id = ? AND client_request_id = ?", tenantID, clientRequestID).
		First(&campaign).Error
	return found(&campaign, err)
}

// LockByID reads the campaign FOR UPDATE. Only meaningful inside a transaction.
func (c *Campaign) LockByID(ctx context.Context, id int64) (*model.Campaign, error) {
	var campaign model.Campaign

	err := GetTx(ctx, c.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&campaign).Error
	return found(&campaign, err)
}

// UpdateDeliveryResult overwrites the delivery counters and status, zero
// values included.
func (c *Campaign) UpdateDeliveryResult(ctx context.Context, campaign *model.Campaign) error {
	db := GetTx(ctx, c.db)
	return db.Model(campaign).
		Select(deliveryColumns).
		Where("id = ?", campaign.ID).
		Updates(campaign).Error
}

func (c *Campaign) ClaimForDispatch(ctx context.Context, id int64, staleThreshold time.Time) error {
	now := time.Now()
	result := GetTx(ctx, c.db).Model(&model.Campaign{}).
		Where("id = ? AND status = ? AND (dispatch_attempt_at IS NULL OR dispatch_attempt_at < ?)",
			id, model.CampaignStatusPending, staleThreshold).
		Updates(map[string]any{"dispatch_attempt_at": now, "updated_at": now})

	return affected(result)
}

func (c *Campaign) ReleaseClaim(ctx context.Context, id int64) error {
	return GetTx(ctx, c.db).Model(&model.Campaign{}).
		Where("id = ? AND status = ?", id, model.CampaignStatusPending).
		Updates(map[string]any{"dispatch_attempt_at": nil, "updated_at": time.Now()}).Error
}

func (c *Campaign) MarkDispatched(ctx context.Context, id int64, gatewayKey string) error {
	result := GetTx(ctx, c.db).Model(&model.Campaign{}).
		Where("id = ? AND status = ?", id, model.CampaignStatusPending).
		Updates(map[string]any{
			"status":               model.CampaignStatusProgress,
			"gateway_campaign_key": gatewayKey,
			"updated_at":           time.Now(),
		})

	return affected(result)
}

func (c *Campaign) MarkFailed(ctx context.Context, id int64, lastError string) error {
	result := GetTx(ctx, c.db).Model(&model.Campaign{}).
		Where("id = ? AND status = ?", id, model.CampaignStatusPending).
		Updates(map[string]any{
			"status":     model.CampaignStatusFailed,
			"last_error": lastError,
			"updated_at": time.Now(),
		})

	return affected(result)
}

// MarkCancelled succeeds only while the campaign is PENDING and unclaimed. A
// claim, even a stale one, may stand for a gateway call whose outcome was never
// recorded, so it blocks cancellation until the claim is released.
func (c *Campaign) MarkCancelled(ctx context.Context, id int64) error {
	result := GetTx(ctx, c.db).Model(&model.Campaign{}).
		Where("id = ? AND status = ? AND dispatch_attempt_at IS NULL", id, model.CampaignStatusPending).
		Updates(map[string]any{
			"status":     model.CampaignStatusCancelled,
			"updated_at": time.Now(),
		})

	return affected(result)
}

func (c *Campaign) MarkSettled(ctx context.Context, id int64, settledAt time.Time) error {
	return GetTx(ctx, c.db).Model(&model.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{"settled_at": settledAt, "updated_at": time.Now()}).Error
}

func (c *Campaign) FindUnpublishedPending(ctx context.Context, limit int) ([]model.Campaign, error) {
	var campaigns []model.Campaign

	err := GetTx(ctx, c.db).
		Where("status = ? AND dispatch_published = ?", model.CampaignStatusPending, false).
		Order("id ASC").
		Limit(limit).
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

func (c *Campaign) MarkPublished(ctx context.Context, id int64) error {
	now := time.Now()
	return GetTx(ctx, c.db).Model(&model.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"dispatch_published":    true,
			"dispatch_published_at": now,
			"updated_at":            now,
		}).Error
}

func found(campaign *model.Campaign, err error) (*model.Campaign, error) {
	if err == nil {
		return campaign, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCampaignNotFound
	}

	return nil, err
}

func affected(result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}

	return nil
}
