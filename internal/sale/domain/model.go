package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Sale struct {
	ID       int64           `json:"id,string" gorm:"primaryKey"`
	Operator string          `json:"operator" gorm:"type:varchar(100);not null"`
	Total    decimal.Decimal `json:"total" gorm:"type:numeric(12,2);not null"`
	SoldAt   time.Time       `json:"sold_at" gorm:"not null;index"`
}

func (Sale) TableName() string { return "sales" }

// SaleLine keeps the unit price the cart captured. Later product price
// changes never reach it.
type SaleLine struct {
	ID        int64           `json:"id,string" gorm:"primaryKey"`
	SaleID    int64           `json:"sale_id,string" gorm:"not null;index"`
	ProductID int64           `json:"product_id,string" gorm:"not null;index"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
}

func (SaleLine) TableName() string { return "sale_lines" }

// LineDetail is a sale line joined with the product name.
type LineDetail struct {
	SaleLine
	ProductName string          `json:"product_name"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"-"`
}

type Detail struct {
	Sale  Sale         `json:"sale"`
	Lines []LineDetail `json:"lines"`
}

type TopProduct struct {
	ProductID int64           `json:"product_id,string"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type Stats struct {
	TodayTotal  decimal.Decimal `json:"today_total"`
	MonthTotal  decimal.Decimal `json:"month_total"`
	TopProducts []TopProduct    `json:"top_products"`
}
