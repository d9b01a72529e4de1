package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindInitial Kind = "initial"
	KindRenewal Kind = "renewal"
)

// Payment is an append-only ledger row. PeriodEnd is fixed at write time from
// the duration the membership type had then; later catalog edits never
// recompute it.
type Payment struct {
	ID               int64           `json:"id,string" gorm:"primaryKey"`
	MemberID         int64           `json:"member_id,string" gorm:"not null;index:ix_payments_member_end,priority:1"`
	MembershipTypeID int64           `json:"membership_type_id,string" gorm:"not null"`
	MembershipTag    string          `json:"membership_type" gorm:"type:varchar(50);not null"`
	DurationDays     int             `json:"duration_days" gorm:"not null"`
	Kind             Kind            `json:"kind" gorm:"type:varchar(20);not null"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	PaidAt           time.Time       `json:"paid_at" gorm:"not null"`
	PeriodStart      time.Time       `json:"period_start" gorm:"not null"`
	PeriodEnd        time.Time       `json:"period_end" gorm:"not null;index:ix_payments_member_end,priority:2"`
	RecordedBy       string          `json:"recorded_by" gorm:"type:varchar(100);not null"`
}

func (Payment) TableName() string { return "payments" }

// PeriodEnd returns start plus the membership duration in whole days.
func PeriodEnd(start time.Time, durationDays int) time.Time {
	return start.AddDate(0, 0, durationDays)
}
