package service

import (
	"time"

	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/shopspring/decimal"
)

type DeductCommand struct {
	TenantID   string
	Channel    model.Channel
	Target     int64
	CampaignID int64
}

type RouteCommand struct {
	TenantID       string
	Strategy       model.Strategy
	ReplaceSms     bool
	Content        string
	SMSContent     string
	RecipientCount int64
}

type Recipient struct {
	Phone string
	Name  string
}

type SubmitCampaignCommand struct {
	TenantID        string
	ClientRequestID string
	Strategy        model.Strategy
	ReplaceSms      bool
	SenderKey       string
	KakaoSenderKey  string
	TemplateCode    string
	Content         string
	SMSTitle        string
	SMSContent      string
	SendAt          *time.Time
	Recipients      []Recipient
	FallbackOf      *int64
}

type CancelCampaignCommand struct {
	TenantID   string
	CampaignID int64
}

type DispatchCampaignCommand struct {
	CampaignID int64 `json:"campaign_id"`
}

type ApplyDeliveryResultCommand struct {
	Signature string
	RawBody   []byte
}

type CreateChargeCommand struct {
	TenantID       string
	PurchaseAmount decimal.Decimal
	CreditsAmount  decimal.Decimal
	IdempotencyKey string
	Confirmed      bool
}

type AutoChargeCommand struct {
	TenantID string          `json:"tenant_id"`
	Amount   decimal.Decimal `json:"amount"`
	Balance  decimal.Decimal `json:"balance"`
}

// deliveryPayload is the provider's webhook body.
type deliveryPayload struct {
	CampaignID int64 `json:"campaign_id"`
	Campaign   struct {
		Status          string `json:"status"`
		TotalCount      int64  `json:"total_count"`
		PendingCount    int64  `json:"pending_count"`
		SuccessCount    int64  `json:"success_count"`
		CanceledCount   int64  `json:"canceled_count"`
		RejectedCount   int64  `json:"rejected_count"`
		FailedCount     int64  `json:"failed_count"`
		SMSSuccessCount int64  `json:"sms_success_count"`
		SMSFailedCount  int64  `json:"sms_failed_count"`
	} `json:"campaign"`
	Messages map[string]messageResult `json:"messages"`
}

type messageResult struct {
	KakaoResultCode *string `json:"kakao_result_code"`
	SMSResultCode   *string `json:"sms_result_code"`
}
