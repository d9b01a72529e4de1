package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MembershipType is a catalog tier such as "mensual". The tag set is open;
// operators may add tiers without a code change.
type MembershipType struct {
	ID           int64           `json:"id,string" gorm:"primaryKey"`
	Tag          string          `json:"tag" gorm:"type:varchar(50);not null;uniqueIndex:ux_membership_types_tag"`
	DurationDays int             `json:"duration_days" gorm:"not null"`
	Price        decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"not null"`
}

func (MembershipType) TableName() string { return "membership_types" }

// DefaultCatalog is seeded on first start.
func DefaultCatalog() []MembershipType {
	return []MembershipType{
		{Tag: "diaria", DurationDays: 1, Price: decimal.NewFromInt(30)},
		{Tag: "semanal", DurationDays: 7, Price: decimal.NewFromInt(150)},
		{Tag: "mensual", DurationDays: 30, Price: decimal.NewFromInt(300)},
	}
}
