package repository

import (
	"context"
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"gorm.io/gorm"
)

const messageBatchSize = 500

type CampaignMessageRepository interface {
	CreateBatch(ctx context.Context, messages []model.CampaignMessage) error
	FindByCampaign(ctx context.Context, campaignID int64) ([]model.CampaignMessage, error)
	UpdateResultByPhone(ctx context.Context, campaignID int64, phone string, kakaoCode, smsCode *string) error
}

type CampaignMessage struct {
	db *gorm.DB
}

func NewCampaignMessageRepository(db *gorm.DB) CampaignMessageRepository {
	return &CampaignMessage{db: db}
}

func (m *CampaignMessage) CreateBatch(ctx context.Context, messages []model.CampaignMessage) error {
	if len(messages) == 0 {
		return nil
	}

	return GetTx(ctx, m.db).CreateInBatches(messages, messageBatchSize).Error
}

func (m *CampaignMessage) FindByCampaign(ctx context.Context, campaignID int64) ([]model.CampaignMessage, error) {
	var messages []model.CampaignMessage

	err := GetTx(ctx, m.db).
		Where("campaign_id = ?", campaignID).
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// UpdateResultByPhone overwrites both result codes of one recipient row.
func (m *CampaignMessage) UpdateResultByPhone(ctx context.Context, campaignID int64, phone string, kakaoCode, smsCode *string) error {
	result := GetTx(ctx, m.db).Model(&model.CampaignMessage{}).
		Where("campaign_id = ? AND phone = ?", campaignID, phone).
		Updates(map[string]any{
			"kakao_result_code": kakaoCode,
			"sms_result_code":   smsCode,
			"updated_at":        time.Now(),
		})

	return affected(result)
}
