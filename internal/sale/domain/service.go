package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	HistoryLimit = 100
	TopProducts  = 5
)

type Line struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type ProcessSaleRequest struct {
	Lines []Line `json:"lines"`
	Actor string `json:"-"`
}

type CancelSaleRequest struct {
	ID    string
	Actor string
}

// HistoryRequest bounds are inclusive civil dates in the business time zone.
type HistoryRequest struct {
	From *time.Time
	To   *time.Time
}

// SoldLine is a line of a sale sold inside a stats window.
type SoldLine struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

type Repository interface {
	InsertSale(ctx context.Context, db *gorm.DB, sale *Sale) error
	InsertLine(ctx context.Context, db *gorm.DB, line *SaleLine) error
	FindByID(ctx context.Context, db *gorm.DB, id int64, forUpdate bool) (*Sale, error)
	ListLines(ctx context.Context, db *gorm.DB, saleID int64) ([]LineDetail, error)
	List(ctx context.Context, db *gorm.DB, from, to *time.Time, limit int) ([]Sale, error)
	// DecrementStock subtracts qty only while stock stays non-negative and
	// reports whether the row was updated.
	DecrementStock(ctx context.Context, db *gorm.DB, productID int64, qty int) (bool, error)
	IncrementStock(ctx context.Context, db *gorm.DB, productID int64, qty int) error
	DeleteLines(ctx context.Context, db *gorm.DB, saleID int64) error
	DeleteSale(ctx context.Context, db *gorm.DB, saleID int64) error
	Totals(ctx context.Context, db *gorm.DB, from, to time.Time) ([]decimal.Decimal, error)
	SoldLines(ctx context.Context, db *gorm.DB, from, to time.Time) ([]SoldLine, error)
}

type Service interface {
	// ProcessSale validates every line against current stock and commits the
	// sale, its lines and the stock decrements together or not at all.
	ProcessSale(ctx context.Context, req ProcessSaleRequest) (*Detail, error)
	// CancelSale restores stock for each line and removes the sale.
	CancelSale(ctx context.Context, req CancelSaleRequest) error
	History(ctx context.Context, req HistoryRequest) ([]Sale, error)
	Detail(ctx context.Context, id string) (*Detail, error)
	Stats(ctx context.Context) (Stats, error)
}

var (
	ErrNotFound          = errors.New("sale_not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrEmptyCart         = errors.New("empty_cart")
	ErrInvalidLine       = errors.New("invalid_line")
	ErrInsufficientStock = errors.New("insufficient_stock")
	ErrInvalidDateRange  = errors.New("invalid_date_range")
)

type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient_stock: product %d has %d, requested %d", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
