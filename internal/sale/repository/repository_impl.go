package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/gymdesk/internal/sale/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertSale(ctx context.Context, db *gorm.DB, sale *domain.Sale) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sales (id, operator, total, sold_at) VALUES (?, ?, ?, ?)`,
		sale.ID,
		sale.Operator,
		sale.Total,
		sale.SoldAt,
	).Error
}

func (r *repo) InsertLine(ctx context.Context, db *gorm.DB, line *domain.SaleLine) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sale_lines (id, sale_id, product_id, quantity, unit_price) VALUES (?, ?, ?, ?, ?)`,
		line.ID,
		line.SaleID,
		line.ProductID,
		line.Quantity,
		line.UnitPrice,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64, forUpdate bool) (*domain.Sale, error) {
	query := `SELECT id, operator, total, sold_at FROM sales WHERE id = ?`
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var sale domain.Sale
	if err := db.WithContext(ctx).Raw(query, id).Scan(&sale).Error; err != nil {
		return nil, err
	}
	if sale.ID == 0 {
		return nil, nil
	}
	return &sale, nil
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, saleID int64) ([]domain.LineDetail, error) {
	var lines []domain.LineDetail
	err := db.WithContext(ctx).Raw(
		`SELECT sl.id, sl.sale_id, sl.product_id, sl.quantity, sl.unit_price, p.name AS product_name
		 FROM sale_lines sl
		 JOIN products p ON p.id = sl.product_id
		 WHERE sl.sale_id = ?
		 ORDER BY sl.id ASC`,
		saleID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, from, to *time.Time, limit int) ([]domain.Sale, error) {
	query := db.WithContext(ctx).
		Table("sales").
		Select("id, operator, total, sold_at")
	if from != nil {
		query = query.Where("sold_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("sold_at < ?", *to)
	}

	var items []domain.Sale
	err := query.
		Order("sold_at DESC").
		Order("id DESC").
		Limit(limit).
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DecrementStock(ctx context.Context, db *gorm.DB, productID int64, qty int) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`,
		qty,
		productID,
		qty,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) IncrementStock(ctx context.Context, db *gorm.DB, productID int64, qty int) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock + ? WHERE id = ?`,
		qty,
		productID,
	).Error
}

func (r *repo) DeleteLines(ctx context.Context, db *gorm.DB, saleID int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM sale_lines WHERE sale_id = ?`, saleID).Error
}

func (r *repo) DeleteSale(ctx context.Context, db *gorm.DB, saleID int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM sales WHERE id = ?`, saleID).Error
}

func (r *repo) Totals(ctx context.Context, db *gorm.DB, from, to time.Time) ([]decimal.Decimal, error) {
	var rows []struct {
		Total decimal.Decimal
	}
	err := db.WithContext(ctx).Raw(
		`SELECT total FROM sales WHERE sold_at >= ? AND sold_at < ?`,
		from,
		to,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make([]decimal.Decimal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, row.Total)
	}
	return totals, nil
}

func (r *repo) SoldLines(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.SoldLine, error) {
	var lines []domain.SoldLine
	err := db.WithContext(ctx).Raw(
		`SELECT sl.product_id, p.name AS product_name, sl.quantity, sl.unit_price
		 FROM sale_lines sl
		 JOIN sales s ON s.id = sl.sale_id
		 JOIN products p ON p.id = sl.product_id
		 WHERE s.sold_at >= ? AND s.sold_at < ?`,
		from,
		to,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}
