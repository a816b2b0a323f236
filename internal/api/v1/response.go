package v1

import (
	"github.com/Behyna/sms-services/creditgateway/internal/model"
	"github.com/shopspring/decimal"
)

type CancelCampaignResponse struct {
	CampaignID int64                `json:"campaign_id"`
	Status     model.CampaignStatus `json:"status"`
}

type PoolResponse struct {
	PoolID         int64            `json:"pool_id"`
	Kind           model.PoolKind   `json:"kind"`
	Status         model.PoolStatus `json:"status"`
	CreditsAmount  decimal.Decimal  `json:"credits_amount"`
	BalanceCredits decimal.Decimal  `json:"balance_credits"`
	CostPerCredit  decimal.Decimal  `json:"cost_per_credit"`
	IdempotencyKey string           `json:"idempotency_key,omitempty"`
}

func newPoolResponse(pool *model.CreditPool) PoolResponse {
	resp := PoolResponse{
		PoolID:         pool.ID,
		Kind:           pool.Kind,
		Status:         pool.Status,
		CreditsAmount:  pool.CreditsAmount,
		BalanceCredits: pool.BalanceCredits,
		CostPerCredit:  pool.CostPerCredit,
	}
	if pool.IdempotencyKey != nil {
		resp.IdempotencyKey = *pool.IdempotencyKey
	}
	return resp
}
