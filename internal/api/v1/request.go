package v1

import (
	"time"

	"github.com/shopspring/decimal"
)

type SubmitCampaignRequest struct {
	ClientRequestID string             `json:"client_request_id" validate:"required,max=64"`
	Strategy        string             `json:"strategy" validate:"omitempty,strategy"`
	ReplaceSms      bool               `json:"replace_sms"`
	SenderKey       string             `json:"sender_key" validate:"max=64"`
	KakaoSenderKey  string             `json:"kakao_sender_key" validate:"max=64"`
	TemplateCode    string             `json:"template_code" validate:"max=64"`
	Content         string             `json:"content" validate:"required"`
	SMSTitle        string             `json:"sms_title" validate:"max=40"`
	SMSContent      string             `json:"sms_content"`
	SendAt          *time.Time         `json:"send_at"`
	Recipients      []RecipientRequest `json:"recipients" validate:"required,min=1,max=10000,dive"`
}

type RecipientRequest struct {
	Phone string `json:"phone" validate:"required"`
	Name  string `json:"name" validate:"max=64"`
}

type EstimateCostRequest struct {
	Channel    string `json:"channel" validate:"required,channel"`
	Recipients int64  `json:"recipients" validate:"required,min=1"`
}

type CreateChargeRequest struct {
	PurchaseAmount decimal.Decimal `json:"purchase_amount" validate:"gt=0"`
	CreditsAmount  decimal.Decimal `json:"credits_amount" validate:"gt=0"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required,max=64"`
	Confirmed      bool            `json:"confirmed"`
}
