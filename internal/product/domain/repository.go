package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id int64, forUpdate bool) (*Product, error)
	// FindByName matches the exact, case-sensitive name.
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Product, error)
	Search(ctx context.Context, db *gorm.DB, query string) ([]Product, error)
	ListAll(ctx context.Context, db *gorm.DB) ([]Product, error)
	LowStock(ctx context.Context, db *gorm.DB, threshold int) ([]Product, error)
	OutOfStock(ctx context.Context, db *gorm.DB) ([]Product, error)
	CountSaleLines(ctx context.Context, db *gorm.DB, productID int64) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, id int64) error
}
