package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
	Actor string          `json:"-"`
}

// UpdateRequest overwrites name, price and stock together.
type UpdateRequest struct {
	ID    string          `json:"-"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
	Actor string          `json:"-"`
}

type AdjustStockRequest struct {
	ID    string `json:"-"`
	Stock int    `json:"stock"`
	Actor string `json:"-"`
}

type DeleteRequest struct {
	ID    string
	Actor string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Product, error)
	Update(ctx context.Context, req UpdateRequest) (*Product, error)
	// AdjustStock sets the absolute stock and logs the signed delta.
	AdjustStock(ctx context.Context, req AdjustStockRequest) (*Product, error)
	Delete(ctx context.Context, req DeleteRequest) error
	Search(ctx context.Context, query string) ([]Product, error)
	// LowStock lists products with stock in (0, threshold]. A threshold of
	// zero or less falls back to the policy default.
	LowStock(ctx context.Context, threshold int) ([]Product, error)
	OutOfStock(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	Summary(ctx context.Context) (Summary, error)
}

var (
	ErrNotFound        = errors.New("product_not_found")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidStock    = errors.New("invalid_stock")
	ErrDuplicateName   = errors.New("duplicate_name")
	ErrHasSalesHistory = errors.New("has_sales_history")
)
