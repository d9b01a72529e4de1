package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Action string

const (
	ActionLogin             Action = "LOGIN"
	ActionLogout            Action = "LOGOUT"
	ActionMemberRegistered  Action = "MEMBER_REGISTERED"
	ActionMemberUpdated     Action = "MEMBER_UPDATED"
	ActionMemberDeleted     Action = "MEMBER_DELETED"
	ActionPaymentRecorded   Action = "PAYMENT_RECORDED"
	ActionMembershipRenewed Action = "MEMBERSHIP_RENEWED"
	ActionCheckIn           Action = "CHECK_IN"
	ActionProductCreated    Action = "PRODUCT_CREATED"
	ActionProductUpdated    Action = "PRODUCT_UPDATED"
	ActionProductDeleted    Action = "PRODUCT_DELETED"
	ActionStockAdjusted     Action = "STOCK_ADJUSTED"
	ActionSaleCreated       Action = "SALE_CREATED"
	ActionSaleCancelled     Action = "SALE_CANCELLED"
	ActionAlertSweep        Action = "ALERT_SWEEP"
)

// ActivityEntry is one row of the append-only activity log. It records what
// happened for operators to review and is never read back as business state.
type ActivityEntry struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	Actor       string            `gorm:"type:varchar(100);not null;index" json:"actor"`
	Action      Action            `gorm:"type:varchar(50);not null;index" json:"action"`
	TargetType  string            `gorm:"type:varchar(50)" json:"target_type,omitempty"`
	TargetID    *string           `gorm:"type:varchar(64)" json:"target_id,omitempty"`
	Description string            `gorm:"type:text" json:"description"`
	Metadata    datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	OccurredAt  time.Time         `gorm:"not null;index" json:"occurred_at"`
}

func (ActivityEntry) TableName() string { return "activity_log" }
