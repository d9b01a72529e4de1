package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a point-of-sale item. Stock never drops below zero; sales
// decrement it under a guarded update.
type Product struct {
	ID        int64           `json:"id,string" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"type:varchar(150);not null;uniqueIndex:ux_products_name"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Stock     int             `json:"stock" gorm:"not null;default:0"`
	UpdatedBy string          `json:"updated_by" gorm:"type:varchar(100);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

type Summary struct {
	TotalProducts  int             `json:"total_products"`
	TotalUnits     int64           `json:"total_units"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	LowStock       int             `json:"low_stock"`
	OutOfStock     int             `json:"out_of_stock"`
	Threshold      int             `json:"low_stock_threshold"`
}

// IsLowStock reports stock in (0, threshold].
func (p Product) IsLowStock(threshold int) bool {
	return p.Stock > 0 && p.Stock <= threshold
}
