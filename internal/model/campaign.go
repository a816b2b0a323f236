package model

import (
	"fmt"
	"strings"
	"time"
)

type CampaignStatus string

const (
	CampaignStatusPending   CampaignStatus = "PENDING"
	CampaignStatusProgress  CampaignStatus = "PROGRESS"
	CampaignStatusSuccess   CampaignStatus = "SUCCESS"
	CampaignStatusFailed    CampaignStatus = "FAILED"
	CampaignStatusCancelled CampaignStatus = "CANCELLED"
)

func (s CampaignStatus) IsTerminal() bool {
	switch s {
	case CampaignStatusSuccess, CampaignStatusFailed, CampaignStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseCampaignStatus accepts the provider spelling of a status, case-insensitively.
func ParseCampaignStatus(s string) (CampaignStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PENDING", "READY", "RESERVED":
		return CampaignStatusPending, nil
	case "PROGRESS", "IN_PROGRESS", "SENDING":
		return CampaignStatusProgress, nil
	case "SUCCESS", "COMPLETED", "DONE":
		return CampaignStatusSuccess, nil
	case "FAILED", "FAIL":
		return CampaignStatusFailed, nil
	case "CANCELLED", "CANCELED":
		return CampaignStatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown campaign status %q", s)
	}
}

type Strategy string

const (
	StrategyAlimtalkFirst Strategy = "alimtalk_first"
	StrategySMSOnly       Strategy = "sms_only"
	StrategyCostOptimized Strategy = "cost_optimized"
)

// DeliveryCounts are overwritten, never incremented, by webhook results.
type DeliveryCounts struct {
	TotalCount      int64 `gorm:"column:total_count;not null;default:0"`
	PendingCount    int64 `gorm:"column:pending_count;not null;default:0"`
	SuccessCount    int64 `gorm:"column:success_count;not null;default:0"`
	FailedCount     int64 `gorm:"column:failed_count;not null;default:0"`
	RejectedCount   int64 `gorm:"column:rejected_count;not null;default:0"`
	CanceledCount   int64 `gorm:"column:canceled_count;not null;default:0"`
	SMSSuccessCount int64 `gorm:"column:sms_success_count;not null;default:0"`
	SMSFailedCount  int64 `gorm:"column:sms_failed_count;not null;default:0"`
}

// Balanced reports whether total = pending + success + failed + rejected + canceled.
func (c DeliveryCounts) Balanced() bool {
	return c.TotalCount == c.PendingCount+c.SuccessCount+c.FailedCount+c.RejectedCount+c.CanceledCount
}

type Campaign struct {
	Base
	TenantID            string         `gorm:"column:tenant_id;type:varchar(64);not null;uniqueIndex:idx_campaign_tenant_request"`
	ClientRequestID     string         `gorm:"column:client_request_id;type:varchar(128);not null;uniqueIndex:idx_campaign_tenant_request"`
	Strategy            Strategy       `gorm:"column:strategy;type:varchar(32);not null"`
	Channel             Channel        `gorm:"column:channel;type:varchar(16);not null"`
	CreditChannel       Channel        `gorm:"column:credit_channel;type:varchar(16);not null"`
	Status              CampaignStatus `gorm:"column:status;type:enum('PENDING','PROGRESS','SUCCESS','FAILED','CANCELLED');not null;index:idx_campaign_dispatch"`
	ReplaceSms          bool           `gorm:"column:replace_sms;not null;default:false"`
	SenderKey           string         `gorm:"column:sender_key;type:varchar(128)"`
	KakaoSenderKey      string         `gorm:"column:kakao_sender_key;type:varchar(128)"`
	TemplateCode        string         `gorm:"column:template_code;type:varchar(128)"`
	Content             string         `gorm:"column:content;type:text"`
	SMSTitle            string         `gorm:"column:sms_title;type:varchar(255)"`
	SMSContent          string         `gorm:"column:sms_content;type:text"`
	SendAt              *time.Time     `gorm:"column:send_at;type:timestamp;null"`
	DeliveryCounts      `gorm:"embedded"`
	WebhookReceivedAt   *time.Time `gorm:"column:webhook_received_at;type:timestamp;null"`
	GatewayCampaignKey  *string    `gorm:"column:gateway_campaign_key;type:varchar(128)"`
	DispatchPublished   bool       `gorm:"column:dispatch_published;not null;default:false;index:idx_campaign_dispatch"`
	DispatchPublishedAt *time.Time `gorm:"column:dispatch_published_at;type:timestamp;null"`
	DispatchAttemptAt   *time.Time `gorm:"column:dispatch_attempt_at;type:timestamp;null"`
	LastError           *string    `gorm:"column:last_error;type:text;null"`
	SettledAt           *time.Time `gorm:"column:settled_at;type:timestamp;null"`
	FallbackOf          *int64     `gorm:"column:fallback_of;index"`

	Messages []CampaignMessage `gorm:"foreignKey:CampaignID"`
}

func (Campaign) TableName() string {
	return "campaigns"
}
