package domain

import (
	"strings"
	"time"
)

type Shift string

const (
	ShiftMorning Shift = "morning"
	ShiftOther   Shift = "other"
)

// Member is a gym membership holder. Payment state lives in the payment
// ledger; nothing here changes when a member pays or renews.
type Member struct {
	ID              int64     `json:"id,string" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"type:varchar(150);not null;index"`
	Phone           string    `json:"phone" gorm:"type:varchar(30);not null;default:''"`
	Shift           Shift     `json:"shift" gorm:"type:varchar(20);not null"`
	Institute       *string   `json:"institute,omitempty" gorm:"type:varchar(150)"`
	EnrolledOn      time.Time `json:"enrolled_on" gorm:"not null"`
	EnrollmentMonth string    `json:"enrollment_month" gorm:"type:varchar(7);not null"`
	RegisteredBy    string    `json:"registered_by" gorm:"type:varchar(100);not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"not null"`
}

func (Member) TableName() string { return "members" }

// IsStudent reports whether the member declared an institute.
func (m Member) IsStudent() bool {
	return m.Institute != nil && strings.TrimSpace(*m.Institute) != ""
}
