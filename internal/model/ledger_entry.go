package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction int8

const (
	DirectionDeduct Direction = 1
	DirectionRefund Direction = -1
)

func (d Direction) String() string {
	if d == DirectionRefund {
		return "REFUND"
	}
	return "DEDUCT"
}

// LedgerEntry is append-only. REFUND rows carry negative unit, credit and cost
// amounts and set SettlementCampaignID, whose unique index allows at most one
// refund per campaign.
type LedgerEntry struct {
	ID                   int64           `gorm:"primaryKey;autoIncrement;column:id;<-:create"`
	TenantID             string          `gorm:"column:tenant_id;type:varchar(64);not null;<-:create"`
	PoolID               int64           `gorm:"column:pool_id;not null;index;<-:create"`
	CampaignID           int64           `gorm:"column:campaign_id;not null;index;<-:create"`
	Direction            Direction       `gorm:"column:direction;type:tinyint;not null;<-:create"`
	Channel              Channel         `gorm:"column:channel;type:varchar(16);not null;<-:create"`
	UnitCount            int64           `gorm:"column:unit_count;not null;<-:create"`
	CreditsAmount        decimal.Decimal `gorm:"column:credits_amount;type:decimal(20,4);not null;<-:create"`
	CostAmount           decimal.Decimal `gorm:"column:cost_amount;type:decimal(20,4);not null;<-:create"`
	SettlementCampaignID *int64          `gorm:"column:settlement_campaign_id;uniqueIndex;<-:create"`
	CreatedAt            time.Time       `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP;<-:create"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

func (e LedgerEntry) GetID() int64 {
	return e.ID
}
