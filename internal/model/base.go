package model

import "time"

// CreditScale is the number of decimal places kept for credits and money.
const CreditScale int32 = 4

// Persistable is implemented by every stored entity.
type Persistable interface {
	TableName() string
	GetID() int64
}

type Base struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;column:id;<-:create"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP"`
}

func (b Base) GetID() int64 {
	return b.ID
}

// Entities lists the entities owned by this service, in migration order.
func Entities() []Persistable {
	return []Persistable{&CreditPool{}, &LedgerEntry{}, &Campaign{}, &CampaignMessage{}}
}

// All returns Entities in the form gorm's AutoMigrate accepts.
func All() []any {
	entities := Entities()
	out := make([]any, 0, len(entities))
	for _, e := range entities {
		out = append(out, e)
	}
	return out
}
