package service

import (
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/shopspring/decimal"
)

type DeductResult struct {
	Credits decimal.Decimal
	Cost    decimal.Decimal
	Entries []model.LedgerEntry
}

type RouteDecision struct {
	Channel       model.Channel
	CreditChannel model.Channel
	ReplaceSms    bool
}

type CostEstimate struct {
	Channel         model.Channel   `json:"channel"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	CurrentCapacity int64           `json:"current_capacity"`
}

type SettlementResult struct {
	CampaignID     int64           `json:"campaign_id"`
	RefundCount    int64           `json:"refund_count"`
	RefundCredits  decimal.Decimal `json:"refund_credits"`
	RefundCost     decimal.Decimal `json:"refund_cost"`
	RechargePoolID int64           `json:"recharge_pool_id,omitempty"`
	Reclassified   int64           `json:"reclassified"`
	Unfunded       int64           `json:"unfunded,omitempty"`
	AlreadySettled bool            `json:"already_settled"`
}

type SubmitCampaignResponse struct {
	CampaignID    int64                `json:"campaign_id"`
	Status        model.CampaignStatus `json:"status"`
	Channel       model.Channel        `json:"channel"`
	CreditChannel model.Channel        `json:"credit_channel"`
	Recipients    int64                `json:"recipients"`
	Credits       decimal.Decimal      `json:"credits"`
	Cost          decimal.Decimal      `json:"cost"`
	Duplicate     bool                 `json:"duplicate"`
}

type CampaignDetail struct {
	Campaign model.Campaign      `json:"campaign"`
	Ledger   []model.LedgerEntry `json:"ledger"`
}

type ApplyDeliveryResultResponse struct {
	CampaignID int64                `json:"campaign_id"`
	Status     model.CampaignStatus `json:"status"`
	Settled    bool                 `json:"settled"`
	Duplicate  bool                 `json:"duplicate"`
}
