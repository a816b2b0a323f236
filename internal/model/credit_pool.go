package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PoolKind string

const (
	PoolKindCharge   PoolKind = "CHARGE"
	PoolKindRecharge PoolKind = "RECHARGE"
)

type PoolStatus string

const (
	PoolStatusPending PoolStatus = "PENDING"
	PoolStatusSuccess PoolStatus = "SUCCESS"
	PoolStatusFailed  PoolStatus = "FAILED"
)

// CreditPool is a funding batch. BalanceCredits always equals
// CreditsAmount - UsedCredits and never goes negative.
type CreditPool struct {
	Base
	TenantID         string          `gorm:"column:tenant_id;type:varchar(64);not null;index:idx_pool_tenant_status;uniqueIndex:idx_pool_tenant_key"`
	Kind             PoolKind        `gorm:"column:kind;type:enum('CHARGE','RECHARGE');not null"`
	Status           PoolStatus      `gorm:"column:status;type:enum('PENDING','SUCCESS','FAILED');not null;index:idx_pool_tenant_status"`
	PurchaseAmount   decimal.Decimal `gorm:"column:purchase_amount;type:decimal(20,4);not null"`
	CreditsAmount    decimal.Decimal `gorm:"column:credits_amount;type:decimal(20,4);not null"`
	UsedCredits      decimal.Decimal `gorm:"column:used_credits;type:decimal(20,4);not null"`
	BalanceCredits   decimal.Decimal `gorm:"column:balance_credits;type:decimal(20,4);not null"`
	CostPerCredit    decimal.Decimal `gorm:"column:cost_per_credit;type:decimal(20,4);not null"`
	AlimtalkCost     decimal.Decimal `gorm:"column:alimtalk_cost;type:decimal(20,4);not null"`
	SMSCost          decimal.Decimal `gorm:"column:sms_cost;type:decimal(20,4);not null"`
	LMSCost          decimal.Decimal `gorm:"column:lms_cost;type:decimal(20,4);not null"`
	MMSCost          decimal.Decimal `gorm:"column:mms_cost;type:decimal(20,4);not null"`
	IdempotencyKey   *string         `gorm:"column:idempotency_key;type:varchar(128);uniqueIndex:idx_pool_tenant_key"`
	SourceCampaignID *int64          `gorm:"column:source_campaign_id"`
	RetiredAt        *time.Time      `gorm:"column:retired_at;type:timestamp;null"`
	Version          int64           `gorm:"column:version;not null;default:0"`
}

func (CreditPool) TableName() string {
	return "credit_pools"
}

func (p CreditPool) UnitCost(ch Channel) decimal.Decimal {
	switch ch {
	case ChannelAlimtalk:
		return p.AlimtalkCost
	case ChannelSMS:
		return p.SMSCost
	case ChannelLMS:
		return p.LMSCost
	case ChannelMMS:
		return p.MMSCost
	default:
		return decimal.Zero
	}
}

// MaxSendable is floor(balance / unitCost) for ch, zero when the channel has no
// positive unit cost.
func (p CreditPool) MaxSendable(ch Channel) int64 {
	cost := p.UnitCost(ch)
	if !cost.IsPositive() || !p.BalanceCredits.IsPositive() {
		return 0
	}

	q, _ := p.BalanceCredits.QuoRem(cost, 0)
	return q.IntPart()
}

func (p CreditPool) Eligible(ch Channel) bool {
	return p.Status == PoolStatusSuccess &&
		p.RetiredAt == nil &&
		p.BalanceCredits.IsPositive() &&
		p.UnitCost(ch).IsPositive()
}
