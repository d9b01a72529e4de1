package domain

import "time"

type Attendance struct {
	ID          int64     `json:"id,string" gorm:"primaryKey"`
	MemberID    int64     `json:"member_id,string" gorm:"not null;index:ix_attendances_member_checked,priority:1"`
	CheckedInAt time.Time `json:"checked_in_at" gorm:"not null;index:ix_attendances_member_checked,priority:2"`
	RecordedBy  string    `json:"recorded_by" gorm:"type:varchar(100);not null"`
}

func (Attendance) TableName() string { return "attendances" }
